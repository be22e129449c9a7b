package searchclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/cschmidt0121/alsearch/internal/config"
	"github.com/cschmidt0121/alsearch/internal/transport"
)

const defaultServiceName = "search"

// Client maps search service operations onto requests for an Executor.
// It holds no per-call state and is safe for concurrent use.
type Client struct {
	executor    transport.Executor
	serviceName string
	resultsTTL  time.Duration
	statusTTL   time.Duration
}

func NewClient(executor transport.Executor, cfg config.ClientConfig) *Client {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	return &Client{
		executor:    executor,
		serviceName: serviceName,
		resultsTTL:  cfg.ResultsTTL,
		statusTTL:   cfg.StatusTTL,
	}
}

func (q *ResultsQuery) values() url.Values {
	if q == nil {
		return nil
	}
	params := url.Values{}
	if q.Limit != nil {
		params.Set("limit", strconv.Itoa(*q.Limit))
	}
	if q.Offset != nil {
		params.Set("offset", strconv.Itoa(*q.Offset))
	}
	if q.StartingToken != nil {
		params.Set("starting_token", *q.StartingToken)
	}
	return params
}

// SubmitSearch starts a search job for dataType. A nil query sends no body.
func (c *Client) SubmitSearch(ctx context.Context, accountID, dataType string, query any) (*SearchJob, error) {
	body, err := c.executor.Post(ctx, transport.Request{
		ServiceName: c.serviceName,
		AccountID:   accountID,
		Path:        "/search/" + dataType,
		Body:        query,
	})
	if err != nil {
		return nil, err
	}

	var job SearchJob
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("error unmarshalling submitted search: %w", err)
	}

	slog.Debug("Search submitted", "account_id", accountID, "data_type", dataType, "search_uuid", job.SearchUUID, "search_status", job.SearchStatus)
	return &job, nil
}

func (c *Client) fetchRequest(accountID, searchID string, query *ResultsQuery) transport.Request {
	return transport.Request{
		ServiceName: c.serviceName,
		AccountID:   accountID,
		Path:        "/fetch/" + searchID,
		Params:      query.values(),
		TTL:         c.resultsTTL,
	}
}

// FetchSearchResults returns one page of results for a submitted search.
func (c *Client) FetchSearchResults(ctx context.Context, accountID, searchID string, query *ResultsQuery) (*FetchSearchResponse, error) {
	body, err := c.executor.Get(ctx, c.fetchRequest(accountID, searchID, query))
	if err != nil {
		return nil, err
	}

	var page FetchSearchResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("error unmarshalling search results: %w", err)
	}
	return &page, nil
}

// FetchRawSearchResults is FetchSearchResults without decoding the individual records.
func (c *Client) FetchRawSearchResults(ctx context.Context, accountID, searchID string, query *ResultsQuery) (*RawSearchResponse, error) {
	body, err := c.executor.Get(ctx, c.fetchRequest(accountID, searchID, query))
	if err != nil {
		return nil, err
	}

	var page RawSearchResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("error unmarshalling search results: %w", err)
	}
	return &page, nil
}

// FetchSearchResultsAsCSV returns one page of results as the raw CSV body.
func (c *Client) FetchSearchResultsAsCSV(ctx context.Context, accountID, searchID string, query *ResultsQuery) ([]byte, error) {
	req := c.fetchRequest(accountID, searchID, query)
	req.AcceptHeader = "text/csv"
	req.ResponseType = transport.ResponseBlob

	return c.executor.Get(ctx, req)
}

// SearchStatus returns the latest status of a submitted search.
func (c *Client) SearchStatus(ctx context.Context, accountID, searchID string) (*SearchStatusResponse, error) {
	body, err := c.executor.Get(ctx, transport.Request{
		ServiceName: c.serviceName,
		AccountID:   accountID,
		Path:        "/status/" + searchID,
		TTL:         c.statusTTL,
	})
	if err != nil {
		return nil, err
	}

	var status SearchStatusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("error unmarshalling search status: %w", err)
	}
	return &status, nil
}

// ReleaseSearch frees the resources held by a search and cancels it if still pending.
// The service also releases searches 24 hours after they complete.
func (c *Client) ReleaseSearch(ctx context.Context, accountID, searchID string) (json.RawMessage, error) {
	body, err := c.executor.Post(ctx, transport.Request{
		ServiceName: c.serviceName,
		AccountID:   accountID,
		Path:        "/release/" + searchID,
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// ReadMessages reads stored log messages by id. A non-nil fieldNames restricts the
// returned fields, and is sent even when empty.
func (c *Client) ReadMessages(ctx context.Context, accountID string, messageIDs, fieldNames []string) (json.RawMessage, error) {
	data := readMessagesRequest{IDs: messageIDs}
	if fieldNames != nil {
		data.Fields = &fieldNames
	}

	body, err := c.executor.Post(ctx, transport.Request{
		ServiceName: c.serviceName,
		AccountID:   accountID,
		Path:        "/messages/logmsgs",
		Body:        data,
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}
