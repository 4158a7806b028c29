package dcuniverse

import (
	"fmt"
	"maps"

	"github.com/golang-jwt/jwt/v5"
)

const (
	headerCookie        = "cookie"
	headerAuthorization = "authorization"
	headerDeviceKey     = "x-consumer-key"
	headerUserAgent     = "User-Agent"

	premiumClaim = "is_premium"
)

// Session is the authenticated state produced by Login. It is read-only once created.
type Session struct {
	// Bearer is the session id sent as "Token <bearer>".
	Bearer string
	// JWT is the web token returned alongside the session id.
	JWT     string
	headers map[string]string
}

// Headers returns a copy of the header set attached to authenticated requests.
func (s *Session) Headers() map[string]string {
	if s == nil {
		return nil
	}
	return maps.Clone(s.headers)
}

// UnverifiedPremium reads the is_premium claim from the session JWT without
// verifying its signature. The result is informational and must never be used
// for a trust decision.
func (s *Session) UnverifiedPremium() (bool, error) {
	if s == nil || s.JWT == "" {
		return false, ErrNotAuthenticated
	}
	return unverifiedBoolClaim(s.JWT, premiumClaim)
}

func unverifiedBoolClaim(token, name string) (bool, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false, fmt.Errorf("decode jwt: %w", err)
	}
	raw, ok := claims[name]
	if !ok {
		return false, fmt.Errorf("jwt claim %q missing", name)
	}
	val, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("jwt claim %q is %T, not bool", name, raw)
	}
	return val, nil
}
