package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/suite"

	"planbridge/pkg/httperr"
)

// spyDoer records every outbound request and replays canned responses.
type spyDoer struct {
	requests []*http.Request
	bodies   [][]byte
	respond  func(req *http.Request) (*http.Response, error)
}

func (d *spyDoer) Do(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
	}
	d.requests = append(d.requests, req)
	d.bodies = append(d.bodies, body)
	return d.respond(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

type ClientSuite struct {
	suite.Suite
	spy    *spyDoer
	client *Client
}

func (s *ClientSuite) SetupTest() {
	s.spy = &spyDoer{
		respond: func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{}`), nil
		},
	}
	client, err := New("https://api.example.com/api/v1",
		WithHTTPClient(s.spy),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.Require().NoError(err)
	s.client = client
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) TestEmptyTokenNeverHitsTransport() {
	_, err := s.client.Call(context.Background(), "", Spec{Path: "/products"})

	s.Require().Error(err)
	s.Equal(http.StatusUnauthorized, httperr.Status(err))
	s.Empty(s.spy.requests, "no network call may be issued without a token")
}

func (s *ClientSuite) TestSuccessBodyReturnedVerbatim() {
	const body = `{"items":[],"total":0,"page":1,"page_size":20,"total_pages":0}`
	s.spy.respond = func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, body), nil
	}

	raw, err := s.client.Call(context.Background(), "tok", Spec{Path: "/locations", Method: http.MethodGet})
	s.Require().NoError(err)
	s.JSONEq(body, string(raw))
}

func (s *ClientSuite) TestBearerTokenAttached() {
	_, err := s.client.Call(context.Background(), "tok-123", Spec{Path: "/products"})
	s.Require().NoError(err)

	s.Require().Len(s.spy.requests, 1)
	req := s.spy.requests[0]
	s.Equal("Bearer tok-123", req.Header.Get("Authorization"))
	s.Equal("https://api.example.com/api/v1/products", req.URL.String())
	s.Equal(http.MethodGet, req.Method)
}

func (s *ClientSuite) TestQueryPassthrough() {
	q := url.Values{"page": {"2"}, "page_size": {"50"}}
	_, err := s.client.Call(context.Background(), "tok", Spec{Path: "/products", Query: q})
	s.Require().NoError(err)

	s.Equal("page=2&page_size=50", s.spy.requests[0].URL.RawQuery)
}

func (s *ClientSuite) TestBodySerializedForNonGET() {
	spec := Spec{
		Path:   "/purchase-orders",
		Method: http.MethodPost,
		Body:   map[string]any{"supplier_id": "s-1", "quantity": 10},
	}
	_, err := s.client.Call(context.Background(), "tok", spec)
	s.Require().NoError(err)

	req := s.spy.requests[0]
	s.Equal("application/json", req.Header.Get("Content-Type"))
	s.JSONEq(`{"supplier_id":"s-1","quantity":10}`, string(s.spy.bodies[0]))
}

func (s *ClientSuite) TestBodyIgnoredForGET() {
	_, err := s.client.Call(context.Background(), "tok", Spec{Path: "/products", Body: map[string]any{"x": 1}})
	s.Require().NoError(err)
	s.Empty(s.spy.bodies[0])
	s.Empty(s.spy.requests[0].Header.Get("Content-Type"))
}

func (s *ClientSuite) TestNotFoundDetailNormalized() {
	s.spy.respond = func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{"detail":"Not found"}`), nil
	}

	_, err := s.client.Call(context.Background(), "tok", Spec{Path: "/locations"})
	s.Require().Error(err)

	var e *httperr.Error
	s.Require().ErrorAs(err, &e)
	s.Equal(http.StatusNotFound, e.StatusCode)
	s.Equal("Not found", e.StatusMessage)
}

func (s *ClientSuite) TestErrorWithoutDetailNeverEmpty() {
	s.spy.respond = func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusConflict, `{"detail":""}`), nil
	}

	_, err := s.client.Call(context.Background(), "tok", Spec{Path: "/cart"})
	var e *httperr.Error
	s.Require().ErrorAs(err, &e)
	s.Equal(http.StatusConflict, e.StatusCode)
	s.Equal("Conflict", e.StatusMessage)
}

func (s *ClientSuite) TestMessageShapeNormalized() {
	s.spy.respond = func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnprocessableEntity, `{"message":"quantity must be positive"}`), nil
	}

	_, err := s.client.Call(context.Background(), "tok", Spec{Path: "/cart", Method: http.MethodPost})
	var e *httperr.Error
	s.Require().ErrorAs(err, &e)
	s.Equal("quantity must be positive", e.StatusMessage)
}

func (s *ClientSuite) TestNonJSONErrorBodyKeptAsDetail() {
	s.spy.respond = func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadGateway, "upstream proxy exploded\n"), nil
	}

	_, err := s.client.Call(context.Background(), "tok", Spec{Path: "/dashboard"})
	var e *httperr.Error
	s.Require().ErrorAs(err, &e)
	s.Equal(http.StatusBadGateway, e.StatusCode)
	s.Equal("upstream proxy exploded", e.StatusMessage)
}

func (s *ClientSuite) TestUpstream401SurfacedWithoutSideEffects() {
	s.spy.respond = func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, `{"detail":"Token expired"}`), nil
	}

	_, err := s.client.Call(context.Background(), "tok", Spec{Path: "/products"})
	s.True(httperr.IsUnauthenticated(err))

	var e *httperr.Error
	s.Require().ErrorAs(err, &e)
	s.Equal("Token expired", e.StatusMessage)
}

func (s *ClientSuite) TestTransportFailure() {
	s.spy.respond = func(*http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	}

	_, err := s.client.Call(context.Background(), "tok", Spec{Path: "/products"})
	var e *httperr.Error
	s.Require().ErrorAs(err, &e)
	s.Equal(http.StatusInternalServerError, e.StatusCode)
	s.Equal("upstream unreachable", e.StatusMessage)
}

func (s *ClientSuite) TestCancellationPropagates() {
	s.spy.respond = func(req *http.Request) (*http.Response, error) {
		return nil, req.Context().Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.client.Call(ctx, "tok", Spec{Path: "/products"})
	s.Require().Error(err)
	s.ErrorIs(err, context.Canceled)
}

func (s *ClientSuite) TestEmptySuccessBody() {
	s.spy.respond = func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNoContent, ""), nil
	}

	raw, err := s.client.Call(context.Background(), "tok", Spec{Path: "/order-planning/cart", Method: http.MethodDelete})
	s.NoError(err)
	s.Nil(raw)
}

func (s *ClientSuite) TestMachineIDHeader() {
	client, err := New("https://api.example.com",
		WithHTTPClient(s.spy),
		WithMachineID(func() string { return "machine-7" }),
	)
	s.Require().NoError(err)

	_, err = client.Call(context.Background(), "tok", Spec{Path: "/products"})
	s.Require().NoError(err)
	s.Equal("machine-7", s.spy.requests[0].Header.Get("X-Machine-ID"))
}

func (s *ClientSuite) TestPostFormEncodesCredentials() {
	s.spy.respond = func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"access_token":"tok-1","token_type":"bearer"}`), nil
	}

	form := url.Values{"username": {"buyer@example.com"}, "password": {"secret"}}
	raw, err := s.client.PostForm(context.Background(), "/auth/login", form)
	s.Require().NoError(err)

	req := s.spy.requests[0]
	s.Equal("application/x-www-form-urlencoded", req.Header.Get("Content-Type"))
	s.Empty(req.Header.Get("Authorization"))
	s.Equal("password=secret&username=buyer%40example.com", string(s.spy.bodies[0]))

	var decoded map[string]string
	s.Require().NoError(json.Unmarshal(raw, &decoded))
	s.Equal("tok-1", decoded["access_token"])
}

func (s *ClientSuite) TestInvalidBaseURL() {
	_, err := New("not a url")
	s.Error(err)

	_, err = New("/relative/only")
	s.Error(err)
}
