// Package auth implements the login, logout, and identity-refresh flows that
// bind browser sessions to upstream access tokens.
package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"planbridge/internal/platform/metrics"
	"planbridge/internal/session"
	"planbridge/internal/upstream"
	"planbridge/pkg/httperr"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Upstream,Sessions

// Upstream is the slice of the fetch client the auth flows need.
type Upstream interface {
	Call(ctx context.Context, token string, spec upstream.Spec) (json.RawMessage, error)
	PostForm(ctx context.Context, path string, form url.Values) (json.RawMessage, error)
}

// Sessions is the per-request session surface the auth flows need.
type Sessions interface {
	Require(r *http.Request) (*session.Record, error)
	AccessToken(r *http.Request) string
	Set(w http.ResponseWriter, r *http.Request, user session.UserIdentity, accessToken string) error
	Clear(w http.ResponseWriter, r *http.Request) error
}

const (
	loginPath    = "/auth/login"
	identityPath = "/auth/me"

	// invalidCredentialsMessage is deliberately generic: echoing upstream
	// detail would leak which of email/password was wrong.
	invalidCredentialsMessage = "Invalid email or password"
)

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Service orchestrates the session-bound auth flows.
type Service struct {
	up       Upstream
	sessions Sessions
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics enables login/session metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New builds the auth service.
func New(up Upstream, sessions Sessions, opts ...Option) *Service {
	s := &Service{up: up, sessions: sessions}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// tokenResponse is the upstream login reply.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login exchanges credentials for an access token, confirms the token's
// identity with a follow-up fetch, and only then sets the session. The
// session is never set with a token whose identity has not been confirmed.
func (s *Service) Login(w http.ResponseWriter, r *http.Request, creds Credentials) (*session.UserIdentity, error) {
	if creds.Email == "" || creds.Password == "" {
		return nil, httperr.BadRequest("email and password are required")
	}
	ctx := r.Context()
	s.countLoginAttempt()

	form := url.Values{
		"username": {creds.Email},
		"password": {creds.Password},
	}
	raw, err := s.up.PostForm(ctx, loginPath, form)
	if err != nil {
		s.countLoginFailure()
		status := httperr.Status(err)
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			return nil, httperr.New(http.StatusUnauthorized, invalidCredentialsMessage)
		}
		return nil, err
	}

	var token tokenResponse
	if err := json.Unmarshal(raw, &token); err != nil || token.AccessToken == "" {
		s.countLoginFailure()
		s.logger.ErrorContext(ctx, "login exchange returned no usable token", "error", err)
		return nil, httperr.New(http.StatusInternalServerError, "upstream returned no access token")
	}

	user, err := s.fetchIdentity(ctx, token.AccessToken)
	if err != nil {
		s.countLoginFailure()
		return nil, err
	}

	if err := s.sessions.Set(w, r, *user, token.AccessToken); err != nil {
		return nil, httperr.Wrap(err, http.StatusInternalServerError, "failed to persist session")
	}
	if s.metrics != nil {
		s.metrics.ActiveSessions.Inc()
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// RefreshIdentity re-fetches the canonical user record with the current
// token. A 401 here is definitive proof of an invalid token, so the session
// is cleared exactly once before the failure propagates. Other failures
// propagate without side effects.
func (s *Service) RefreshIdentity(w http.ResponseWriter, r *http.Request) (*session.UserIdentity, error) {
	ctx := r.Context()
	token := s.sessions.AccessToken(r)
	if token == "" {
		return nil, httperr.Unauthenticated("")
	}

	user, err := s.fetchIdentity(ctx, token)
	if err != nil {
		if httperr.IsUnauthenticated(err) {
			if clearErr := s.sessions.Clear(w, r); clearErr != nil {
				s.logger.WarnContext(ctx, "failed to clear invalid session", "error", clearErr)
			}
			if s.metrics != nil {
				s.metrics.SessionsCleared.Inc()
				s.metrics.ActiveSessions.Dec()
			}
		}
		return nil, err
	}

	if err := s.sessions.Set(w, r, *user, token); err != nil {
		return nil, httperr.Wrap(err, http.StatusInternalServerError, "failed to persist session")
	}
	return user, nil
}

// Logout destroys the session. Best effort: a stale or missing session is
// not an error worth failing the request over.
func (s *Service) Logout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Clear(w, r); err != nil {
		s.logger.WarnContext(r.Context(), "failed to clear session on logout", "error", err)
		return
	}
	if s.metrics != nil {
		s.metrics.ActiveSessions.Dec()
	}
}

func (s *Service) fetchIdentity(ctx context.Context, token string) (*session.UserIdentity, error) {
	raw, err := s.up.Call(ctx, token, upstream.Spec{Path: identityPath, Method: http.MethodGet})
	if err != nil {
		return nil, err
	}
	var user session.UserIdentity
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, httperr.Wrap(err, http.StatusInternalServerError, "failed to decode upstream identity")
	}
	return &user, nil
}

func (s *Service) countLoginAttempt() {
	if s.metrics != nil {
		s.metrics.LoginAttempts.Inc()
	}
}

func (s *Service) countLoginFailure() {
	if s.metrics != nil {
		s.metrics.LoginFailures.Inc()
	}
}
