package dcuniverse

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotAuthenticated is returned by authenticated calls made before a successful Login.
	ErrNotAuthenticated = errors.New("dcuniverse: client is not authenticated")
	// ErrLoginFailed marks a login attempt rejected by the remote API.
	ErrLoginFailed = errors.New("dcuniverse: login failed")
	// ErrNoRights marks a product the session is not allowed to stream.
	ErrNoRights = errors.New("dcuniverse: no rights to content")
	// ErrManifestMissing marks a manifest response without a stream url.
	ErrManifestMissing = errors.New("dcuniverse: manifest response has no stream_url")
	// ErrLicenseFailed marks a license exchange answered with a non-200 status.
	ErrLicenseFailed = errors.New("dcuniverse: license acquisition failed")
	// ErrUnexpectedStatus is the generic cause for other non-success responses.
	ErrUnexpectedStatus = errors.New("dcuniverse: unexpected response status")
)

// StatusError reports a remote response whose status code was not the expected one.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	if e.Body != "" {
		msg += " body: " + e.Body
	}
	return msg
}

func (e *StatusError) Unwrap() error { return e.Err }

func newStatusError(op string, status int, body []byte, cause error) *StatusError {
	if cause == nil {
		cause = ErrUnexpectedStatus
	}
	return &StatusError{
		Op:         op,
		StatusCode: status,
		Body:       responseSnippet(body),
		Err:        cause,
	}
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
