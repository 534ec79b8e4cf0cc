package session

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"planbridge/pkg/httperr"
)

const (
	defaultCookieName = "planbridge_session"
	defaultTTL        = 24 * time.Hour
)

// Manager reads, replaces, and destroys the per-request session. All
// construction goes through Set; callers never mutate stored records
// field by field.
type Manager struct {
	store      Store
	codec      cookieCodec
	cookieName string
	ttl        time.Duration
	secure     bool
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithCookieName overrides the session cookie name.
func WithCookieName(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.cookieName = name
		}
	}
}

// WithTTL sets the session lifetime. Zero or negative keeps the default.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithSecureCookies marks the cookie Secure; enable everywhere except local dev.
func WithSecureCookies(secure bool) Option {
	return func(m *Manager) {
		m.secure = secure
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock injects the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager builds a Manager signing cookies with the given secret.
func NewManager(store Store, secret string, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		cookieName: defaultCookieName,
		ttl:        defaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.codec = cookieCodec{secret: []byte(secret), ttl: m.ttl, now: m.now}
	return m
}

// Require returns the current session when present and authenticated, and a
// 401 otherwise. Every route must gate on this before any upstream call.
func (m *Manager) Require(r *http.Request) (*Record, error) {
	rec := m.lookup(r)
	if !rec.Authenticated() {
		return nil, httperr.Unauthenticated("")
	}
	return rec, nil
}

// AccessToken returns the current session's token; empty means "not
// authenticated". It never fails.
func (m *Manager) AccessToken(r *http.Request) string {
	rec := m.lookup(r)
	if rec == nil {
		return ""
	}
	return rec.AccessToken
}

// Set idempotently replaces the session's user and token. An existing session
// keeps its ID; otherwise a fresh one is minted. LoggedInAt is stamped here.
func (m *Manager) Set(w http.ResponseWriter, r *http.Request, user UserIdentity, accessToken string) error {
	sid := m.sessionID(r)
	if sid == "" {
		sid = uuid.New().String()
	}
	rec := &Record{
		ID:          sid,
		User:        user,
		AccessToken: accessToken,
		LoggedInAt:  m.now(),
	}
	if err := m.store.Save(r.Context(), rec, m.ttl); err != nil {
		return err
	}
	value, err := m.codec.encode(sid)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(m.ttl / time.Second),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear destroys the session record and expires the cookie. Subsequent
// Require calls fail until a new login occurs.
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request) error {
	if sid := m.sessionID(r); sid != "" {
		if err := m.store.Delete(r.Context(), sid); err != nil {
			m.logger.WarnContext(r.Context(), "failed to delete session record", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// lookup resolves the cookie to a stored record, returning nil on any miss.
func (m *Manager) lookup(r *http.Request) *Record {
	sid := m.sessionID(r)
	if sid == "" {
		return nil
	}
	rec, err := m.store.Find(r.Context(), sid)
	if err != nil {
		return nil
	}
	return rec
}

func (m *Manager) sessionID(r *http.Request) string {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	sid, err := m.codec.decode(cookie.Value)
	if err != nil {
		m.logger.DebugContext(r.Context(), "rejected session cookie", "error", err)
		return ""
	}
	return sid
}
