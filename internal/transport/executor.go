package transport

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/cschmidt0121/alsearch/internal/config"
)

const (
	authTokenHeader = "X-Aims-Auth-Token"
	requestIDHeader = "X-Request-Id"
	defaultAccept   = "application/json"
)

// RestyExecutor is the HTTP implementation of Executor.
type RestyExecutor struct {
	httpClient *resty.Client
	version    string
	auth       config.AuthConfig
	cache      *responseCache
}

var _ Executor = (*RestyExecutor)(nil)

func NewExecutor(cfg config.ClientConfig) (*RestyExecutor, error) {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Endpoint, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount)
	if !cfg.VerifyTLS {
		httpClient.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	if cfg.UserAgent != "" {
		httpClient.SetHeader("User-Agent", cfg.UserAgent)
	}

	return NewExecutorWithClient(cfg, httpClient)
}

// NewExecutorWithClient wraps a preconfigured resty client.
func NewExecutorWithClient(cfg config.ClientConfig, httpClient *resty.Client) (*RestyExecutor, error) {
	cache, err := newResponseCache(cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	version := cfg.ServiceVersion
	if version == "" {
		version = "v1"
	}

	return &RestyExecutor{
		httpClient: httpClient,
		version:    version,
		auth:       cfg.Auth,
		cache:      cache,
	}, nil
}

func (e *RestyExecutor) Get(ctx context.Context, req Request) ([]byte, error) {
	return e.do(ctx, http.MethodGet, req)
}

func (e *RestyExecutor) Post(ctx context.Context, req Request) ([]byte, error) {
	return e.do(ctx, http.MethodPost, req)
}

// path builds /{service}/{version}[/{account}]{path}.
func (e *RestyExecutor) path(req Request) string {
	var sb strings.Builder
	sb.WriteString("/" + req.ServiceName + "/" + e.version)
	if req.AccountID != "" {
		sb.WriteString("/" + req.AccountID)
	}
	sb.WriteString(req.Path)
	return sb.String()
}

// isNilBody reports whether body is nil, including typed nils such as (*T)(nil) or json.RawMessage(nil).
func isNilBody(body any) bool {
	if body == nil {
		return true
	}
	v := reflect.ValueOf(body)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}

func (e *RestyExecutor) do(ctx context.Context, method string, req Request) ([]byte, error) {
	path := e.path(req)
	accept := req.AcceptHeader
	if accept == "" {
		accept = defaultAccept
	}

	cacheable := method == http.MethodGet && req.TTL > 0
	cacheKey := accept + " " + path + "?" + req.Params.Encode()
	if cacheable {
		if body, ok := e.cache.Get(cacheKey); ok {
			slog.Debug("Serving cached response", "method", method, "path", path, "ttl", req.TTL)
			return body, nil
		}
	}

	request := e.httpClient.R().
		SetContext(ctx).
		SetHeader("Accept", accept).
		SetHeader(requestIDHeader, uuid.New().String())
	if e.auth.Token != "" {
		request.SetHeader(authTokenHeader, e.auth.Token)
	}
	if method == http.MethodGet && req.TTL == 0 {
		request.SetHeader("Cache-Control", "no-cache")
	}
	if len(req.Params) > 0 {
		request.SetQueryParamsFromValues(req.Params)
	}
	if !isNilBody(req.Body) {
		request.SetHeader("Content-Type", "application/json").SetBody(req.Body)
	}
	request.SetHeaders(req.Headers)

	slog.Debug("Making HTTP request", "method", method, "path", path, "params", req.Params.Encode(), "accept", accept)

	resp, err := request.Execute(method, path)
	if err != nil {
		slog.Debug("HTTP request failed", "error", err, "path", path)
		return nil, err
	}

	slog.Debug("HTTP response received", "status_code", resp.StatusCode(), "path", path)

	if resp.IsError() {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode(),
			Status:     resp.Status(),
			Body:       resp.Body(),
		}
	}

	body := resp.Body()
	if cacheable {
		e.cache.Set(cacheKey, body, req.TTL)
	}

	slog.Debug("HTTP request completed successfully", "response_size", len(body), "path", path, "blob", req.ResponseType == ResponseBlob)
	return body, nil
}
