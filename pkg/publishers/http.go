package publishers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Adda-Baaj/dcu-client/pkg/httpclient"
)

// httpAttrHeaderPrefix namespaces event attributes sent as request headers.
const httpAttrHeaderPrefix = "X-Dcu-"

// httpPublisher sends each event as a JSON request to a webhook.
type httpPublisher struct {
	sink
	method  string
	url     string
	headers map[string]string
	client  *resty.Client
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = httpDefaultTimeoutSeconds * time.Second
	}
	method := strings.ToUpper(cfg.HTTP.Method)
	if method == "" {
		method = httpDefaultMethod
	}

	return &httpPublisher{
		sink:    newSink(cfg, TypeHTTP, log),
		method:  method,
		url:     cfg.HTTP.URL,
		headers: cfg.HTTP.Headers,
		client:  httpclient.NewRestyHTTPClient(timeout),
	}, nil
}

func (h *httpPublisher) Close() error { return nil }

func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	payload, attrs, err := encodeEvent(evt)
	if err != nil {
		return err
	}

	req := h.client.R().SetContext(ctx)
	for k, v := range attrs {
		req.SetHeader(httpAttrHeaderPrefix+http.CanonicalHeaderKey(strings.ReplaceAll(k, "_", "-")), v)
	}
	if len(h.headers) > 0 {
		req.SetHeaders(h.headers)
	}
	req.SetHeader("Content-Type", "application/json").SetBody(payload)

	resp, err := req.Execute(h.method, h.url)
	if err != nil {
		h.failed(evt, err)
		return fmt.Errorf("http request: %w", err)
	}
	if resp.IsError() {
		err := fmt.Errorf("http response status %d: %s", resp.StatusCode(), bodySnippet(resp.Body()))
		h.failed(evt, err)
		return err
	}
	h.delivered(evt, resp.Status())
	return nil
}

func bodySnippet(body []byte) string {
	const maxLen = 512
	if len(body) > maxLen {
		body = body[:maxLen]
	}
	return strings.TrimSpace(string(body))
}
