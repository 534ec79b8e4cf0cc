package sentinel

import "errors"

// Sentinel dependency errors. Stores and clients return these (optionally wrapped)
// so callers can translate them into outward-facing errors exactly once.
var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrExpired         = errors.New("expired")
	ErrUnavailable     = errors.New("unavailable")
)
