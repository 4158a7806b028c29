package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Options tunes the resty-backed transport.
type Options struct {
	// Timeout bounds every request; zero leaves requests unbounded.
	Timeout time.Duration
	// ProxyURL is handed to the transport unmodified when set.
	ProxyURL string
	// Logger receives resty's own warnings and debug output.
	Logger resty.Logger
}

// RestyClient adapts resty.Client to the httpclient.Client interface.
type RestyClient struct {
	client *resty.Client
}

// NewRestyClient creates a new RestyClient with the specified timeout.
func NewRestyClient(timeout time.Duration) *RestyClient {
	return &RestyClient{client: newRestyBaseClient(Options{Timeout: timeout})}
}

// NewRestyClientWithOptions creates a RestyClient with proxy and logger settings.
func NewRestyClientWithOptions(opts Options) (*RestyClient, error) {
	if p := strings.TrimSpace(opts.ProxyURL); p != "" && !strings.Contains(p, "://") {
		return nil, fmt.Errorf("proxy url %q has no scheme", p)
	}
	return &RestyClient{client: newRestyBaseClient(opts)}, nil
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return newRestyBaseClient(Options{Timeout: timeout})
}

// newRestyBaseClient creates a new resty.Client from opts.
func newRestyBaseClient(opts Options) *resty.Client {
	c := resty.New()
	// Cookies are carried explicitly in request headers; the default jar would
	// replay them a second time.
	c.SetCookieJar(nil)
	if opts.Timeout > 0 {
		c.SetTimeout(opts.Timeout)
	}
	if p := strings.TrimSpace(opts.ProxyURL); p != "" {
		c.SetProxy(p)
	}
	if opts.Logger != nil {
		c.SetLogger(opts.Logger)
	}
	return c
}

// Get performs an HTTP GET request with the specified context, URL, and headers.
func (r *RestyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	req := r.client.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	resp, err := req.Get(url)
	if err != nil {
		return nil, err
	}
	return &restyResponseAdapter{resp: resp}, nil
}

// Post performs an HTTP POST request with the specified context, URL, headers and body.
func (r *RestyClient) Post(ctx context.Context, url string, headers map[string]string, body any) (Response, error) {
	req := r.client.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	if body != nil {
		if _, raw := body.([]byte); !raw && req.Header.Get("Content-Type") == "" {
			req.SetHeader("Content-Type", "application/json")
		}
		req.SetBody(body)
	}
	resp, err := req.Post(url)
	if err != nil {
		return nil, err
	}
	return &restyResponseAdapter{resp: resp}, nil
}

// restyResponseAdapter adapts resty.Response to the httpclient.Response interface.
type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) Body() []byte            { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int         { return r.resp.StatusCode() }
func (r *restyResponseAdapter) Cookies() []*http.Cookie { return r.resp.Cookies() }
