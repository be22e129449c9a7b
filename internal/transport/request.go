package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ResponseType selects how a response body is handed back to the caller.
type ResponseType int

const (
	// ResponseJSON is a JSON document the caller decodes.
	ResponseJSON ResponseType = iota
	// ResponseBlob is an opaque body returned untouched.
	ResponseBlob
)

// Request describes one account-scoped call to a service.
type Request struct {
	ServiceName  string
	AccountID    string
	Path         string
	// Body is JSON encoded. Nil bodies, typed nils included, are not sent.
	Body         any
	Params       url.Values
	Headers      map[string]string
	AcceptHeader string
	ResponseType ResponseType
	// TTL is how long a GET response may be served from cache. Zero means always revalidate.
	TTL time.Duration
}

// Executor performs account-scoped service requests and returns the raw response body.
type Executor interface {
	Get(ctx context.Context, req Request) ([]byte, error)
	Post(ctx context.Context, req Request) ([]byte, error)
}

// HTTPError is returned for responses with a status code of 400 or above.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}
