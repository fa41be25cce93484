package credentials

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Credentials holds what the agent needs to report on behalf of the user.
type Credentials struct {
	SessionID   string `json:"session_id" yaml:"session_id"`
	BearerToken string `json:"bearer_token" yaml:"bearer_token"`
	BaseURL     string `json:"base_url" yaml:"base_url"`
}

// Complete reports whether both the session id and the bearer token are present.
func (c *Credentials) Complete() bool {
	return c != nil && c.SessionID != "" && c.BearerToken != ""
}

// ExpiresAt returns the exp claim of the bearer token when it is a JWT.
// The signature is not verified; the server remains the authority.
func (c *Credentials) ExpiresAt() (time.Time, bool) {
	if c == nil || c.BearerToken == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(c.BearerToken, claims); err != nil {
		return time.Time{}, false
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(int64(exp), 0), true
}

// Expired reports whether the bearer token carries an exp claim before now.
// Opaque tokens are never considered expired.
func (c *Credentials) Expired(now time.Time) bool {
	exp, ok := c.ExpiresAt()
	return ok && now.After(exp)
}

// ErrIncomplete marks credentials without a session id or bearer token.
var ErrIncomplete = errors.New("credentials are missing session id or bearer token")
