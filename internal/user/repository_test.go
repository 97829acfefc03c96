package user

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/internhub/portal/internal/apiclient"
)

func newTestRepository(t *testing.T, h http.HandlerFunc) *Repository {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	transport, err := apiclient.NewTransport(srv.URL+"/project1", time.Second)
	if err != nil {
		t.Fatalf("NewTransport() failed: %v", err)
	}
	return NewRepository(transport)
}

func TestRepository_Me(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/project1/accounts/myInfo" {
			t.Errorf("path = %q, want /project1/accounts/myInfo", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer tok-1")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"accountID":"a1","username":"student01","fullname":"Nguyen Van A","roles":["STUDENT"]}`))
	})

	account, err := repo.Me(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("Me() failed: %v", err)
	}

	if account.Username != "student01" {
		t.Errorf("Username = %q, want %q", account.Username, "student01")
	}

	if !account.HasRole(RoleStudent) {
		t.Errorf("Roles = %v, want STUDENT", account.Roles)
	}
}

func TestRepository_MeFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(error) bool
	}{
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			check: apiclient.IsUnauthorized,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"roles":`))
			},
			check: func(err error) bool { return errors.Is(err, ErrMalformedAccount) },
		},
		{
			name: "empty record",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{}`))
			},
			check: func(err error) bool { return errors.Is(err, ErrMalformedAccount) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newTestRepository(t, tt.handler)
			_, err := repo.Me(context.Background(), "tok")
			if err == nil {
				t.Fatal("Me() should fail")
			}
			if !tt.check(err) {
				t.Errorf("Me() error = %v, unexpected kind", err)
			}
		})
	}
}
