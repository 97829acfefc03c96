package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the JWT claims issued by the portal backend
type Claims struct {
	Scope string `json:"scope"` // space separated roles, e.g. "STUDENT ADMIN"
	jwt.RegisteredClaims
}

// Payload is the decoded, unverified content of an access token
type Payload struct {
	Issuer    string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Scope     []string
}

// HasExpiry reports whether the token carried an exp claim
func (p *Payload) HasExpiry() bool {
	return !p.ExpiresAt.IsZero()
}

// ExpiredAt reports whether the token is no longer usable at now.
// A token is usable only while now is strictly before its expiry.
func (p *Payload) ExpiredAt(now time.Time) bool {
	if !p.HasExpiry() {
		return true
	}
	return !now.Before(p.ExpiresAt)
}

// Pair represents an access and refresh token pair as returned by the refresh endpoint
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func splitScope(scope string) []string {
	fields := strings.Fields(scope)
	if len(fields) == 0 {
		return nil
	}
	return fields
}
