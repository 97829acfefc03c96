package auth

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/internhub/portal/internal/apiclient"
	"github.com/internhub/portal/internal/middleware"
	"github.com/internhub/portal/internal/ratelimit"
	"github.com/internhub/portal/internal/session"
	"github.com/internhub/portal/internal/storage"
	"github.com/internhub/portal/internal/token"
	"github.com/internhub/portal/internal/user"
)

const cookieName = "portal_client"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code string `json:"code"`
	} `json:"error"`
	Redirect string `json:"redirect"`
}

type testEnv struct {
	router   *gin.Engine
	sessions *session.Provider
	clientID string
}

func newBackend(t *testing.T, roles ...user.Role) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/project1/auth/login":
			var req LoginRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if req.Password != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			claims := token.Claims{
				Scope:            "STUDENT",
				RegisteredClaims: jwt.RegisteredClaims{Subject: req.Username, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
			}
			raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("k"))
			assert.NoError(t, err)
			_ = json.NewEncoder(w).Encode(gin.H{"token": raw, "refreshToken": "refresh-secret-1", "authenticated": true, "roles": roles})
		case "/project1/accounts/myInfo":
			_ = json.NewEncoder(w).Encode(user.Account{AccountID: "1", Username: "student01", Roles: roles})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestEnv(t *testing.T, backendURL string, limiter RateLimiter) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	transport, err := apiclient.NewTransport(backendURL+"/project1", 2*time.Second)
	require.NoError(t, err)
	sessions := session.NewProvider(storage.NewMemoryStore(), session.NewAuthAPI(transport), user.NewRepository(transport))
	h := NewHandler(sessions, limiter, zap.NewNop())

	r := gin.New()
	r.Use(middleware.ClientSession(middleware.ClientCookie{Name: cookieName, TTL: time.Hour}))
	r.GET("/health", h.Health)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/logout", h.Logout)
	r.GET("/auth/me", h.Me)
	r.GET("/auth/events", h.Events)

	return &testEnv{router: r, sessions: sessions, clientID: uuid.NewString()}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: cookieName, Value: e.clientID})
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func TestLogin_PersistsSessionAndRedirectsHome(t *testing.T) {
	env := newTestEnv(t, newBackend(t, user.RoleStudent).URL, nil)

	w, body := env.do(t, http.MethodPost, "/auth/login", `{"username":" student01 ","password":"secret"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.True(t, body.Success)

	var res LoginResponse
	require.NoError(t, json.Unmarshal(body.Data, &res))
	require.True(t, res.Authenticated)
	require.Equal(t, "/", res.Redirect)
	require.NotNil(t, res.User)
	require.NotContains(t, w.Body.String(), "refresh-secret-1", "tokens stay in the gateway")

	svc := env.sessions.Session(env.clientID)
	tok, err := svc.Token(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, tok)
	require.False(t, svc.IsExpired(context.Background()))
}

func TestLogin_ManagersLandOnWelcomePage(t *testing.T) {
	env := newTestEnv(t, newBackend(t, user.RoleCompany).URL, nil)

	_, body := env.do(t, http.MethodPost, "/auth/login", `{"username":"hr01","password":"secret"}`)

	var res LoginResponse
	require.NoError(t, json.Unmarshal(body.Data, &res))
	require.Equal(t, "/manager/welcome", res.Redirect)
}

func TestLogin_ReturnsToRememberedPath(t *testing.T) {
	env := newTestEnv(t, newBackend(t, user.RoleStudent).URL, nil)
	require.NoError(t, env.sessions.Session(env.clientID).RememberPath(context.Background(), "/applyList"))

	_, body := env.do(t, http.MethodPost, "/auth/login", `{"username":"student01","password":"secret"}`)

	var res LoginResponse
	require.NoError(t, json.Unmarshal(body.Data, &res))
	require.Equal(t, "/applyList", res.Redirect)
}

func TestLogin_Failures(t *testing.T) {
	backend := newBackend(t, user.RoleStudent)

	t.Run("validation", func(t *testing.T) {
		env := newTestEnv(t, backend.URL, nil)
		w, body := env.do(t, http.MethodPost, "/auth/login", `{"username":"  ","password":""}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, "VALIDATION_FAILED", body.Error.Code)
	})

	t.Run("wrong password then lockout", func(t *testing.T) {
		env := newTestEnv(t, backend.URL, ratelimit.NewMemoryLimiter(time.Hour, 2))

		for i := 0; i < 2; i++ {
			w, body := env.do(t, http.MethodPost, "/auth/login", `{"username":"student01","password":"nope"}`)
			require.Equal(t, http.StatusUnauthorized, w.Code)
			require.Equal(t, "INVALID_CREDENTIALS", body.Error.Code)
		}

		w, body := env.do(t, http.MethodPost, "/auth/login", `{"username":"student01","password":"secret"}`)
		require.Equal(t, http.StatusTooManyRequests, w.Code)
		require.Equal(t, "RATE_LIMIT_EXCEEDED", body.Error.Code)
		require.NotEmpty(t, w.Header().Get("Retry-After"))
	})

	t.Run("backend down", func(t *testing.T) {
		down := httptest.NewServer(http.NotFoundHandler())
		down.Close()

		env := newTestEnv(t, down.URL, nil)
		w, body := env.do(t, http.MethodPost, "/auth/login", `{"username":"student01","password":"secret"}`)
		require.Equal(t, http.StatusBadGateway, w.Code)
		require.Equal(t, "BACKEND_UNREACHABLE", body.Error.Code)
	})
}

func TestLogoutThenMe(t *testing.T) {
	env := newTestEnv(t, newBackend(t, user.RoleStudent).URL, nil)

	w, _ := env.do(t, http.MethodPost, "/auth/login", `{"username":"student01","password":"secret"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodGet, "/auth/me", "")
	require.Equal(t, http.StatusOK, w.Code)

	for i := 0; i < 2; i++ {
		w, body := env.do(t, http.MethodPost, "/auth/logout", "")
		require.Equal(t, http.StatusOK, w.Code)
		require.True(t, body.Success)
	}

	w, body := env.do(t, http.MethodGet, "/auth/me", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "/login", body.Redirect)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, newBackend(t).URL, nil)

	w, _ := env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestEvents_StreamsSessionChanges(t *testing.T) {
	env := newTestEnv(t, newBackend(t, user.RoleStudent).URL, nil)
	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/auth/events", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: env.clientID})

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	notifier := env.sessions.Notifier()
	require.Eventually(t, func() bool { return notifier.Len() > 0 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, env.sessions.Session(env.clientID).Logout(context.Background()))

	reader := bufio.NewReader(resp.Body)
	var event, data []byte
	for event == nil || data == nil {
		line, err := reader.ReadBytes('\n')
		require.NoError(t, err)
		switch {
		case bytes.HasPrefix(line, []byte("event:")):
			event = bytes.TrimSpace(bytes.TrimPrefix(line, []byte("event:")))
		case bytes.HasPrefix(line, []byte("data:")):
			data = bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data:")))
		}
	}

	require.Equal(t, string(session.EventLoggedOut), string(event))

	var got session.Event
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, env.clientID, got.Client)
}
