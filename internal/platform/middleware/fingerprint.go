package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

// Fingerprint derives a stable client fingerprint from the User-Agent and
// source address and stores it in the request context for log tagging. The
// fingerprint carries no session semantics; it only helps correlate requests
// from the same device in logs.
func Fingerprint(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fp := computeFingerprint(r)
		ctx := context.WithValue(r.Context(), fingerprintKey, fp)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetFingerprint returns the fingerprint stored by Fingerprint, or "".
func GetFingerprint(ctx context.Context) string {
	fp, _ := ctx.Value(fingerprintKey).(string)
	return fp
}

func computeFingerprint(r *http.Request) string {
	ua := useragent.New(r.UserAgent())
	browser, version := ua.Browser()

	ip := clientIP(r)

	raw := fmt.Sprintf("%s|%s|%s|%s|%t|%s",
		browser, version, ua.OS(), ua.Platform(), ua.Mobile(), ip)

	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:16]
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
