// Package session owns the server-side browser session: an opaque signed
// cookie referencing a stored record binding the client to a user identity
// and an upstream access token.
package session

import "time"

// Role values mirrored from the upstream user model.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// UserIdentity is the canonical user record as reported by the upstream
// service. The gateway never mutates it field by field; it is only replaced
// wholesale from upstream responses.
type UserIdentity struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// Record is the stored session. A Record with an empty AccessToken must never
// be used to authorize an upstream call; absence of token is equivalent to
// absence of session.
type Record struct {
	ID          string       `json:"id"`
	User        UserIdentity `json:"user"`
	AccessToken string       `json:"access_token"`
	LoggedInAt  time.Time    `json:"logged_in_at"`
}

// Authenticated reports whether the record can authorize an upstream call.
func (r *Record) Authenticated() bool {
	return r != nil && r.AccessToken != ""
}
