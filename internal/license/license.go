// Package license loads the process-wide machine/license identifier used to
// tag outbound telemetry. The identifier is auxiliary: failure to load it
// never affects a session or request outcome.
package license

import (
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

const defaultMinInterval = time.Minute

// Cache lazily loads the identifier from a local file, retrying at most once
// per minimum interval so a missing file is not re-stat'd on every request.
type Cache struct {
	mu          sync.Mutex
	path        string
	minInterval time.Duration
	value       string
	lastAttempt time.Time

	logger   *slog.Logger
	now      func() time.Time
	readFile func(name string) ([]byte, error)
}

// Option configures a Cache.
type Option func(*Cache)

// WithMinInterval sets the minimum delay between load attempts.
func WithMinInterval(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.minInterval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithClock injects the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithReader injects the file reader for tests.
func WithReader(read func(name string) ([]byte, error)) Option {
	return func(c *Cache) {
		if read != nil {
			c.readFile = read
		}
	}
}

// New builds a Cache for the given file path. Nothing is read until the
// first Get or EnsureLoaded call.
func New(path string, opts ...Option) *Cache {
	c := &Cache{
		path:        path,
		minInterval: defaultMinInterval,
		now:         time.Now,
		readFile:    os.ReadFile,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Get returns the identifier, loading it lazily. Empty means "not available
// yet"; callers must treat that as a benign absence.
func (c *Cache) Get() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoadedLocked()
	return c.value
}

// EnsureLoaded attempts a load if one is due. Safe to call from anywhere;
// it never blocks on anything but the local file read.
func (c *Cache) EnsureLoaded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoadedLocked()
}

func (c *Cache) ensureLoadedLocked() {
	if c.value != "" || c.path == "" {
		return
	}
	now := c.now()
	if !c.lastAttempt.IsZero() && now.Sub(c.lastAttempt) < c.minInterval {
		return
	}
	c.lastAttempt = now

	raw, err := c.readFile(c.path)
	if err != nil {
		c.logger.Debug("machine identifier not available", "path", c.path, "error", err)
		return
	}
	c.value = strings.TrimSpace(string(raw))
}
