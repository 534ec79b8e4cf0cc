package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// cookieCodec signs the opaque session ID into a compact JWT so the cookie
// value is tamper-evident. The cookie carries nothing but the ID; the session
// content lives server-side in the Store.
type cookieCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func (c cookieCodec) encode(sessionID string) (string, error) {
	now := c.now()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session cookie: %w", err)
	}
	return signed, nil
}

func (c cookieCodec) decode(value string) (string, error) {
	token, err := jwt.ParseWithClaims(value, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return c.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(c.now))
	if err != nil {
		return "", fmt.Errorf("parse session cookie: %w", err)
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("session cookie missing subject")
	}
	return claims.Subject, nil
}
