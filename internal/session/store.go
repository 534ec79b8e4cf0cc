package session

import (
	"context"
	"time"

	"planbridge/internal/sentinel"
)

// ErrNotFound is returned by Find when no record exists for the ID.
var ErrNotFound = sentinel.ErrNotFound

// Store persists session records behind an opaque session ID.
//
// Error Contract:
// - Find returns sentinel.ErrNotFound (wrapped) when the record does not exist.
// - Delete is idempotent; deleting a missing record is not an error.
// - Infrastructure failures are returned wrapped with context.
type Store interface {
	Save(ctx context.Context, rec *Record, ttl time.Duration) error
	Find(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string) error
}
