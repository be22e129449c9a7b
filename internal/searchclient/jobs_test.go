package searchclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cschmidt0121/alsearch/internal/config"
	"github.com/cschmidt0121/alsearch/internal/transport"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()

	testConfig := config.ClientConfig{
		Endpoint:    serverURL,
		Auth:        config.AuthConfig{Token: "test-token"},
		ServiceName: "search",
		Timeout:     5 * time.Second,
		CacheSize:   16,
		VerifyTLS:   true,
	}

	executor, err := transport.NewExecutor(testConfig)
	require.NoError(t, err)
	return NewClient(executor, testConfig)
}

func TestSearchStatus(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expectedPath := "/search/v1/1234/status/6E6B2C55-1D4A-4E08-9A3C-3F1A4B7B2E10"
		if r.URL.Path != expectedPath {
			t.Errorf("Expected path %s, got %s", expectedPath, r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET, got %s", r.Method)
		}

		data, err := os.ReadFile("testdata/search_status.json")
		if err != nil {
			t.Errorf("Failed to read test data: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}))
	defer testServer.Close()

	client := newTestClient(t, testServer.URL)

	status, err := client.SearchStatus(context.Background(), "1234", "6E6B2C55-1D4A-4E08-9A3C-3F1A4B7B2E10")
	require.NoError(t, err)

	expected := &SearchStatusResponse{
		SearchJob: SearchJob{
			SearchUUID:   "6E6B2C55-1D4A-4E08-9A3C-3F1A4B7B2E10",
			SearchStatus: StatusComplete,
			StartTS:      1756064805,
			UpdateTS:     1756064811,
			Progress:     100,
		},
		Query:      "SELECT message, host_name FROM logmsgs WHERE program = 'sshd'",
		SearchType: SearchTypeInteractive,
	}
	assert.Equal(t, expected, status)
}

func TestFetchSearchResultsOverHTTP(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/v1/1234/fetch/abc" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.URL.RawQuery; got != "limit=50&offset=0" {
			t.Errorf("Expected query limit=50&offset=0, got %s", got)
		}

		data, err := os.ReadFile("testdata/fetch_results.json")
		if err != nil {
			t.Errorf("Failed to read test data: %v", err)
		}
		w.Write(data)
	}))
	defer testServer.Close()

	client := newTestClient(t, testServer.URL)

	page, err := client.FetchSearchResults(context.Background(), "1234", "abc", &ResultsQuery{Limit: Int(50), Offset: Int(0)})
	require.NoError(t, err)

	require.Len(t, page.Results, 2)
	assert.Equal(t, "web-1", page.Results[0].Fields.HostName)
	assert.Equal(t, "m2", page.Results[1].ID.MsgID)
	assert.Equal(t, int64(1234), page.Results[1].ID.Account)
	require.NotNil(t, page.NextToken)
	assert.Equal(t, "b2Zmc2V0OjI=", *page.NextToken)
	assert.Equal(t, 1, *page.Remaining)
	assert.Equal(t, 3, *page.Estimated)
}

func TestWaitUntilSearchIsDone(t *testing.T) {
	tests := []struct {
		name          string
		statuses      []string
		shouldError   bool
		expectedError string
		expectedCalls int32
	}{
		{
			name:          "completes after pending",
			statuses:      []string{"pending", "pending", "complete"},
			expectedCalls: 3,
		},
		{
			name:          "suspended then complete",
			statuses:      []string{"suspended", "complete"},
			expectedCalls: 2,
		},
		{
			name:          "failed search",
			statuses:      []string{"pending", "failed"},
			shouldError:   true,
			expectedError: "out of memory",
			expectedCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := int(calls.Add(1)) - 1
				if n >= len(tt.statuses) {
					n = len(tt.statuses) - 1
				}
				w.Write([]byte(`{"search_uuid":"abc","search_status":"` + tt.statuses[n] + `","status_details":"out of memory"}`))
			}))
			defer testServer.Close()

			client := newTestClient(t, testServer.URL)

			status, err := client.WaitUntilSearchIsDone(context.Background(), "1234", "abc", 10*time.Millisecond)
			if tt.shouldError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			} else {
				require.NoError(t, err)
				assert.Equal(t, StatusComplete, status.SearchStatus)
			}
			assert.Equal(t, tt.expectedCalls, calls.Load())
		})
	}
}

func TestWaitUntilSearchIsDoneCancelled(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"search_uuid":"abc","search_status":"pending"}`))
	}))
	defer testServer.Close()

	client := newTestClient(t, testServer.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.WaitUntilSearchIsDone(ctx, "1234", "abc", 10*time.Millisecond)
	require.Error(t, err)
}
