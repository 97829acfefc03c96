package token

import (
	"github.com/golang-jwt/jwt/v5"
)

// Decode reads the payload of a signed token without verifying its signature.
// Verification is the backend's job; this is only a convenience for reading
// claims the server already validated. Decode returns nil for empty or
// malformed input and never panics.
func Decode(raw string) *Payload {
	if raw == "" {
		return nil
	}

	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return nil
	}

	p := &Payload{
		Issuer:  claims.Issuer,
		Subject: claims.Subject,
		Scope:   splitScope(claims.Scope),
	}
	if claims.IssuedAt != nil {
		p.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p
}
