package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/internhub/portal/internal/apiclient"
	"github.com/internhub/portal/internal/token"
	"github.com/internhub/portal/internal/tokenstore"
	"github.com/internhub/portal/internal/user"
)

// Service is one client's session. It is the only component that mutates
// the stored tokens; it never caches them between calls.
type Service struct {
	provider *Provider
	client   string
	tokens   *tokenstore.TokenStore
	logger   *zap.Logger
}

// Token returns the stored access token, or "" when there is none
func (s *Service) Token(ctx context.Context) (string, error) {
	return s.tokens.AccessToken(ctx)
}

// SetToken stores the access token
func (s *Service) SetToken(ctx context.Context, accessToken string) error {
	if err := s.tokens.SetAccessToken(ctx, accessToken); err != nil {
		return err
	}
	s.publish(EventTokenSet)
	return nil
}

// RemoveToken deletes the access token
func (s *Service) RemoveToken(ctx context.Context) error {
	if err := s.tokens.RemoveAccessToken(ctx); err != nil {
		return err
	}
	s.publish(EventTokenRemoved)
	return nil
}

// RefreshToken returns the stored refresh token, or "" when there is none
func (s *Service) RefreshToken(ctx context.Context) (string, error) {
	return s.tokens.RefreshToken(ctx)
}

// Claims decodes the stored access token. It returns nil when there is no
// usable token.
func (s *Service) Claims(ctx context.Context) *token.Payload {
	raw, err := s.tokens.AccessToken(ctx)
	if err != nil {
		s.logger.Warn("failed to read access token", zap.Error(err))
		return nil
	}
	return token.Decode(raw)
}

// IsExpired reports whether the session has no usable access token.
// Missing or undecodable tokens count as expired.
func (s *Service) IsExpired(ctx context.Context) bool {
	p := s.Claims(ctx)
	if p == nil {
		return true
	}
	return p.ExpiredAt(s.provider.now())
}

// CurrentUser fetches the account owning the access token. It returns nil
// without calling the backend when the session is expired, and nil when the
// fetch fails for any reason.
func (s *Service) CurrentUser(ctx context.Context) *user.Account {
	raw, err := s.tokens.AccessToken(ctx)
	if err != nil {
		s.logger.Warn("failed to read access token", zap.Error(err))
		return nil
	}
	if raw == "" {
		return nil
	}
	if p := token.Decode(raw); p == nil || p.ExpiredAt(s.provider.now()) {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.provider.timeout)
	defer cancel()

	account, err := s.provider.accounts.Me(ctx, raw)
	if err != nil {
		s.logger.Warn("failed to fetch current user", zap.Error(err))
		return nil
	}
	return account
}

// Login authenticates against the backend and persists the returned tokens
// before returning.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.provider.timeout)
	defer cancel()

	result, err := s.provider.auth.Login(ctx, username, password)
	if err != nil {
		if code := apiclient.StatusCode(err); code >= http.StatusBadRequest && code < http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return nil, err
	}
	if result.Token == "" {
		return nil, ErrInvalidCredentials
	}

	if err := s.tokens.SetAccessToken(ctx, result.Token); err != nil {
		return nil, fmt.Errorf("failed to persist access token: %w", err)
	}
	// a refresh token left over from a previous account must not survive
	if result.RefreshToken != "" {
		err = s.tokens.SetRefreshToken(ctx, result.RefreshToken)
	} else {
		err = s.tokens.RemoveRefreshToken(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to persist refresh token: %w", err)
	}

	s.logger.Info("logged in", zap.String("username", username))
	s.publish(EventTokenSet)
	return result, nil
}

// Logout removes both tokens. The backend is not contacted, so issued tokens
// stay valid until they expire.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.tokens.Clear(ctx); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}
	s.publish(EventLoggedOut)
	return nil
}

// Refresh trades refreshToken for a new token pair and stores it. On failure
// all tokens are removed and the returned error wraps ErrSessionTerminated.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	pair, err := s.provider.auth.Refresh(ctx, refreshToken)
	if err == nil && pair.AccessToken == "" {
		err = errors.New("refresh response carried no access token")
	}
	if err != nil {
		s.provider.observe(RefreshFailed)
		s.logger.Warn("token refresh failed", zap.Error(err))
		s.terminate(ctx)
		return "", fmt.Errorf("%w: %w", ErrSessionTerminated, err)
	}

	if err := s.tokens.SetAccessToken(ctx, pair.AccessToken); err != nil {
		return "", fmt.Errorf("failed to persist access token: %w", err)
	}
	if pair.RefreshToken != "" {
		err = s.tokens.SetRefreshToken(ctx, pair.RefreshToken)
	} else {
		err = s.tokens.RemoveRefreshToken(ctx)
	}
	if err != nil {
		return "", fmt.Errorf("failed to persist refresh token: %w", err)
	}

	s.provider.observe(RefreshSucceeded)
	s.publish(EventRefreshed)
	return pair.AccessToken, nil
}

// RefreshAfter obtains a new access token after staleToken was rejected.
// Concurrent callers of the same client share one in-flight refresh, and a
// caller arriving after another one already rotated the token gets the
// rotated token without a second refresh. The refresh is not cancelled
// when ctx is; it is bounded by the provider timeout instead.
func (s *Service) RefreshAfter(ctx context.Context, staleToken string) (string, error) {
	ch := s.provider.group.DoChan(s.client, func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.provider.timeout)
		defer cancel()
		return s.refreshAfter(rctx, staleToken)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *Service) refreshAfter(ctx context.Context, staleToken string) (string, error) {
	current, err := s.tokens.AccessToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read access token: %w", err)
	}
	if current != "" && current != staleToken {
		if p := token.Decode(current); p != nil && !p.ExpiredAt(s.provider.now()) {
			s.provider.observe(RefreshReused)
			return current, nil
		}
	}

	refreshToken, err := s.tokens.RefreshToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read refresh token: %w", err)
	}
	if refreshToken == "" {
		s.provider.observe(RefreshMissing)
		s.terminate(ctx)
		return "", fmt.Errorf("%w: no refresh token", ErrSessionTerminated)
	}

	return s.Refresh(ctx, refreshToken)
}

// RememberPath records where to return after the next login
func (s *Service) RememberPath(ctx context.Context, path string) error {
	return s.tokens.SetRedirectPath(ctx, path)
}

// TakeRememberedPath returns and forgets the recorded post-login path
func (s *Service) TakeRememberedPath(ctx context.Context) string {
	path, err := s.tokens.RedirectPath(ctx)
	if err != nil {
		s.logger.Warn("failed to read remembered path", zap.Error(err))
		return ""
	}
	if path == "" {
		return ""
	}
	if err := s.tokens.RemoveRedirectPath(ctx); err != nil {
		s.logger.Warn("failed to forget remembered path", zap.Error(err))
	}
	return path
}

// OnSessionChange subscribes fn to this client's session events
func (s *Service) OnSessionChange(fn Listener) func() {
	return s.provider.notifier.Subscribe(s.client, fn)
}

func (s *Service) terminate(ctx context.Context) {
	if err := s.tokens.Clear(ctx); err != nil {
		s.logger.Error("failed to clear tokens", zap.Error(err))
	}
	s.publish(EventSessionExpired)
}

func (s *Service) publish(kind EventKind) {
	s.provider.notifier.Publish(Event{
		Client: s.client,
		Kind:   kind,
		At:     s.provider.now(),
	})
}
