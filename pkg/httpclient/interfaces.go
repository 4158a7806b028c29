package httpclient

import (
	"context"
	"net/http"
)

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
	Cookies() []*http.Cookie
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
	// Post sends body as-is when it is a []byte and as JSON otherwise.
	Post(ctx context.Context, url string, headers map[string]string, body any) (Response, error)
}
