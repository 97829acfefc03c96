package auth

import (
	"strings"
	"testing"
)

func TestValidateLoginRequest(t *testing.T) {
	tests := []struct {
		name     string
		req      LoginRequest
		wantErr  bool
		contains string
	}{
		{"valid", LoginRequest{Username: "student01", Password: "123"}, false, ""},
		{"short admin password", LoginRequest{Username: "admin", Password: "admin"}, false, ""},
		{"missing username", LoginRequest{Password: "secret"}, true, "username: Username is required"},
		{"blank username", LoginRequest{Username: "   ", Password: "secret"}, true, "Username is required"},
		{"missing password", LoginRequest{Username: "student01"}, true, "password: Password is required"},
		{"both missing", LoginRequest{}, true, "; "},
		{"username too long", LoginRequest{Username: strings.Repeat("a", 101), Password: "x"}, true, "at most 100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLoginRequest(&tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateLoginRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("ValidateLoginRequest() error = %q, want it to contain %q", err.Error(), tt.contains)
			}
		})
	}
}

func TestSanitizeUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		want     string
	}{
		{"trim spaces", "  student01  ", "student01"},
		{"case kept", "Student01", "Student01"},
		{"already clean", "admin", "admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeUsername(tt.username); got != tt.want {
				t.Errorf("SanitizeUsername(%q) = %q, want %q", tt.username, got, tt.want)
			}
		})
	}
}
