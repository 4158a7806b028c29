package dcuniverse

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
)

const licensePath = "/wvd/modlicense"

// AcquireLicense exchanges a base64 Widevine license request for a base64
// license. The response body is encoded and returned whatever the status; a
// non-200 status additionally yields a *StatusError, so callers must check err
// before trusting the payload.
func (c *Client) AcquireLicense(ctx context.Context, requestB64 string) (string, error) {
	headers, err := c.authHeaders()
	if err != nil {
		return "", err
	}
	challenge, err := base64.StdEncoding.DecodeString(requestB64)
	if err != nil {
		return "", fmt.Errorf("decode license request: %w", err)
	}

	resp, err := c.http.Post(ctx, c.baseURL+licensePath, headers, challenge)
	if err != nil {
		return "", fmt.Errorf("license request: %w", err)
	}

	license := base64.StdEncoding.EncodeToString(resp.Body())
	if resp.StatusCode() != http.StatusOK {
		c.log.ErrorObj("license acquisition failed", "license_error", map[string]any{
			"status": resp.StatusCode(),
			"body":   responseSnippet(resp.Body()),
		})
		return license, newStatusError("license", resp.StatusCode(), resp.Body(), ErrLicenseFailed)
	}
	c.log.InfoObj("license acquired", "license_bytes", len(resp.Body()))
	return license, nil
}
