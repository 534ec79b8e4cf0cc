package middleware

import "net/http"

// DefaultMaxBodyBytes caps request bodies the gateway accepts. Proxied
// writes (cart updates, purchase orders) are small JSON documents.
const DefaultMaxBodyBytes = 1 << 20 // 1 MiB

// BodyLimit caps the size of request bodies with http.MaxBytesReader, which
// returns 413 on overflow and closes the connection.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
