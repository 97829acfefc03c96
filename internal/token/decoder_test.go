package token

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, scope string, issuedAt, expiresAt time.Time) string {
	t.Helper()
	claims := Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "quan.com",
			Subject:   "student01",
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-signer-key-minimum-64-characters-long-for-hs512-signing!!"))
	if err != nil {
		t.Fatalf("SignedString() failed: %v", err)
	}
	return signed
}

func TestDecode(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	raw := signToken(t, "STUDENT ADMIN", now, now.Add(time.Hour))

	p := Decode(raw)
	if p == nil {
		t.Fatal("Decode() returned nil for a well formed token")
	}

	if p.Issuer != "quan.com" {
		t.Errorf("Issuer = %q, want %q", p.Issuer, "quan.com")
	}

	if p.Subject != "student01" {
		t.Errorf("Subject = %q, want %q", p.Subject, "student01")
	}

	if !p.IssuedAt.Equal(now) {
		t.Errorf("IssuedAt = %v, want %v", p.IssuedAt, now)
	}

	if !p.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v, want %v", p.ExpiresAt, now.Add(time.Hour))
	}

	if len(p.Scope) != 2 || p.Scope[0] != "STUDENT" || p.Scope[1] != "ADMIN" {
		t.Errorf("Scope = %v, want [STUDENT ADMIN]", p.Scope)
	}
}

func TestDecode_IgnoresSignature(t *testing.T) {
	now := time.Now()
	raw := signToken(t, "ADMIN", now, now.Add(time.Hour))

	// Tamper with the signature segment; the payload must still be readable
	tampered := raw[:len(raw)-4] + "AAAA"
	if Decode(tampered) == nil {
		t.Error("Decode() should not verify the signature")
	}
}

func TestDecode_Malformed(t *testing.T) {
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"scope":`))
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS512","typ":"JWT"}`))

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"invalid format", "not.a.jwt"},
		{"two segments", "abc.def"},
		{"random string", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature"},
		{"truncated payload", header + "." + payload + ".sig"},
		{"whitespace", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if p := Decode(tt.token); p != nil {
				t.Errorf("Decode(%q) = %+v, want nil", tt.token, p)
			}
		})
	}
}

func TestPayload_ExpiredAt(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		payload Payload
		want    bool
	}{
		{"expiry in the past", Payload{ExpiresAt: now.Add(-time.Second)}, true},
		{"expiry in the future", Payload{ExpiresAt: now.Add(time.Minute)}, false},
		{"expiry exactly now", Payload{ExpiresAt: now}, true},
		{"no expiry claim", Payload{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.payload.ExpiredAt(now); got != tt.want {
				t.Errorf("ExpiredAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecode_EmptyScope(t *testing.T) {
	now := time.Now()
	p := Decode(signToken(t, "", now, now.Add(time.Hour)))
	if p == nil {
		t.Fatal("Decode() returned nil")
	}
	if p.Scope != nil {
		t.Errorf("Scope = %v, want nil", p.Scope)
	}
}
