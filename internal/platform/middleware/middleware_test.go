package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type MiddlewareSuite struct {
	suite.Suite
	logger *slog.Logger
}

func (s *MiddlewareSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) TestRequestIDGenerated() {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	s.NotEmpty(seen)
	s.Equal(seen, rec.Header().Get("X-Request-ID"))
}

func (s *MiddlewareSuite) TestRequestIDPropagated() {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-id")
	h.ServeHTTP(httptest.NewRecorder(), req)

	s.Equal("upstream-id", seen)
}

func (s *MiddlewareSuite) TestRecoveryConvertsPanic() {
	h := Recovery(s.logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Contains(rec.Body.String(), "internal server error")
}

func (s *MiddlewareSuite) TestContentTypeJSONRejectsForm() {
	h := ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	s.Equal(http.StatusUnsupportedMediaType, rec.Code)
}

func (s *MiddlewareSuite) TestContentTypeJSONAllowsGet() {
	h := ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	s.Equal(http.StatusOK, rec.Code)
}

func (s *MiddlewareSuite) TestContentTypeJSONAllowsJSONWithCharset() {
	h := ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	s.Equal(http.StatusOK, rec.Code)
}

func (s *MiddlewareSuite) TestFingerprintStable() {
	var first, second string
	h := Fingerprint(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if first == "" {
			first = GetFingerprint(r.Context())
			return
		}
		second = GetFingerprint(r.Context())
	}))

	mk := func() *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 Chrome/120.0 Safari/537.36")
		req.RemoteAddr = "10.0.0.7:51234"
		return req
	}

	h.ServeHTTP(httptest.NewRecorder(), mk())
	h.ServeHTTP(httptest.NewRecorder(), mk())

	s.NotEmpty(first)
	s.Equal(first, second)
}

func (s *MiddlewareSuite) TestFingerprintVariesByClient() {
	var fps []string
	h := Fingerprint(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fps = append(fps, GetFingerprint(r.Context()))
	}))

	a := httptest.NewRequest(http.MethodGet, "/", nil)
	a.Header.Set("User-Agent", "curl/8.4.0")
	a.RemoteAddr = "10.0.0.7:51234"

	b := httptest.NewRequest(http.MethodGet, "/", nil)
	b.Header.Set("User-Agent", "curl/8.4.0")
	b.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	b.RemoteAddr = "10.0.0.7:51234"

	h.ServeHTTP(httptest.NewRecorder(), a)
	h.ServeHTTP(httptest.NewRecorder(), b)

	s.Len(fps, 2)
	s.NotEqual(fps[0], fps[1])
}
