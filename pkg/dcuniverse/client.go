// Package dcuniverse is a client for the DC Universe private web API: login,
// episode metadata, stream manifests and Widevine license exchange.
package dcuniverse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Adda-Baaj/dcu-client/pkg/httpclient"
)

const (
	// DefaultBaseURL is the API host every request goes to.
	DefaultBaseURL = "https://www.dcuniverse.com"
	// DefaultUserAgent is the browser identity attached to authenticated requests.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/75.0.3770.27 Safari/537.36"

	defaultTimeout = 30 * time.Second

	loginPath = "/api/users/login"
)

// Credentials identify the account and device used to log in.
type Credentials struct {
	Email     string `json:"email"`
	Password  string `json:"-"`
	DeviceKey string `json:"-"`
}

// Options customises a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL    string
	UserAgent  string
	HTTPClient httpclient.Client
	Logger     Logger
}

// Client talks to the DC Universe API on behalf of one account.
type Client struct {
	creds     Credentials
	baseURL   string
	userAgent string
	http      httpclient.Client
	log       Logger

	mu      sync.RWMutex
	session *Session
}

// NewClient stores the credentials and prepares the transport. It performs no
// network I/O; call Login before any authenticated operation.
func NewClient(creds Credentials, opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	client := opts.HTTPClient
	if client == nil {
		client = httpclient.NewRestyClient(defaultTimeout)
	}
	return &Client{
		creds:     creds,
		baseURL:   baseURL,
		userAgent: userAgent,
		http:      client,
		log:       ensureLogger(opts.Logger),
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Result struct {
		SessionID string `json:"session_id"`
		JWT       string `json:"jwt"`
	} `json:"result"`
}

// Login authenticates with the stored credentials and keeps the resulting
// Session on the client. A failed login leaves any previous session untouched.
func (c *Client) Login(ctx context.Context) (*Session, error) {
	headers := map[string]string{
		headerCookie:    "",
		headerDeviceKey: c.creds.DeviceKey,
	}
	body := loginRequest{Username: c.creds.Email, Password: c.creds.Password}

	resp, err := c.http.Post(ctx, c.baseURL+loginPath, headers, body)
	if err != nil {
		return nil, fmt.Errorf("login request: %w", err)
	}
	if resp.StatusCode() != http.StatusCreated {
		c.log.ErrorObj("error logging in", "login_error", map[string]any{
			"status": resp.StatusCode(),
		})
		return nil, newStatusError("login", resp.StatusCode(), resp.Body(), ErrLoginFailed)
	}

	var decoded loginResponse
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	bearer := decoded.Result.SessionID
	if bearer == "" {
		return nil, fmt.Errorf("%w: response has no session_id", ErrLoginFailed)
	}
	c.log.InfoObj("authorization token", "bearer", bearer)

	session := &Session{
		Bearer: bearer,
		JWT:    decoded.Result.JWT,
		headers: map[string]string{
			headerCookie:        formatCookies(resp.Cookies()),
			headerAuthorization: "Token " + bearer,
			headerDeviceKey:     c.creds.DeviceKey,
			headerUserAgent:     c.userAgent,
		},
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	return session, nil
}

// Session returns the current session, or nil before a successful Login.
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Authenticated reports whether Login has succeeded.
func (c *Client) Authenticated() bool { return c.Session() != nil }

func (c *Client) String() string {
	return fmt.Sprintf("dcuniverse.Client{email=%s}", c.creds.Email)
}

// authHeaders returns the session header set or ErrNotAuthenticated.
func (c *Client) authHeaders() (map[string]string, error) {
	s := c.Session()
	if s == nil {
		return nil, ErrNotAuthenticated
	}
	return s.Headers(), nil
}

func (c *Client) get(ctx context.Context, path string) (httpclient.Response, error) {
	headers, err := c.authHeaders()
	if err != nil {
		return nil, err
	}
	return c.http.Get(ctx, c.baseURL+path, headers)
}

func formatCookies(cookies []*http.Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, ck := range cookies {
		if ck == nil || ck.Name == "" {
			continue
		}
		parts = append(parts, ck.Name+"="+ck.Value)
	}
	return strings.Join(parts, "; ")
}
