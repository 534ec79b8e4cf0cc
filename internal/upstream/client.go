// Package upstream implements the authenticated fetch client: one upstream
// REST call per invocation, bearer token attached, outcome classified into
// the gateway's uniform error contract. The client holds no per-request
// state; retry policy, if any, belongs to callers (none is implemented).
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"planbridge/internal/platform/metrics"
	"planbridge/pkg/httperr"
)

// Doer abstracts the HTTP transport so tests can spy on outbound requests.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Spec describes one upstream call. It is constructed per call by a route
// handler and consumed exactly once.
type Spec struct {
	// Path is upstream-relative, e.g. "/products/42".
	Path   string
	Method string
	// Body is JSON-serialized for non-GET methods when present.
	Body  any
	Query url.Values
}

// Client performs authenticated calls against the upstream service.
type Client struct {
	base      *url.URL
	http      Doer
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    Tracer
	machineID func() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient injects the transport. Defaults to an http.Client with a
// 30 second timeout; timeouts are transport configuration, not client logic.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.http = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics enables per-call Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithTracer enables tracing around each call.
func WithTracer(t Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithMachineID supplies the process-wide machine identifier used to tag
// outbound calls. The value is telemetry only; an empty result omits the header.
func WithMachineID(get func() string) Option {
	return func(c *Client) {
		c.machineID = get
	}
}

// New builds a Client for the given upstream base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("upstream base URL %q missing scheme or host", baseURL)
	}
	c := &Client{
		base:   base,
		http:   &http.Client{Timeout: 30 * time.Second},
		tracer: NoopTracer{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// Call performs one upstream request on behalf of the given token and returns
// the raw JSON body on 2xx. An empty token fails with 401 before any network
// activity. A 401 from upstream is surfaced as Unauthenticated; the caller
// decides whether it invalidates the session (only the identity-refresh path
// does).
func (c *Client) Call(ctx context.Context, token string, spec Spec) (json.RawMessage, error) {
	if token == "" {
		return nil, httperr.Unauthenticated("")
	}

	method := spec.Method
	if method == "" {
		method = http.MethodGet
	}

	ctx, span := c.tracer.Start(ctx, spanCall,
		String("http.method", method),
		String("upstream.path", spec.Path),
	)

	var body io.Reader
	if spec.Body != nil && method != http.MethodGet {
		encoded, err := json.Marshal(spec.Body)
		if err != nil {
			span.End(err)
			return nil, httperr.Wrap(err, http.StatusInternalServerError, "failed to encode request body")
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(spec), body)
	if err != nil {
		span.End(err)
		return nil, httperr.Wrap(err, http.StatusInternalServerError, "failed to build upstream request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.machineID != nil {
		if id := c.machineID(); id != "" {
			req.Header.Set("X-Machine-ID", id)
		}
	}

	raw, err := c.do(req, spec.Path)
	span.End(err)
	return raw, err
}

// do sends the request and classifies the outcome. One suspend point, no retries.
func (c *Client) do(req *http.Request, path string) (json.RawMessage, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(path, "transport_error", start)
		c.logger.WarnContext(req.Context(), "upstream unreachable",
			"method", req.Method,
			"path", path,
			"error", err,
		)
		return nil, httperr.Wrap(err, http.StatusInternalServerError, "upstream unreachable")
	}
	defer resp.Body.Close() //nolint:errcheck // read-side close

	payload, readErr := io.ReadAll(resp.Body)

	c.observe(path, statusClass(resp.StatusCode), start)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if readErr != nil {
			return nil, httperr.Wrap(readErr, http.StatusInternalServerError, "failed to read upstream response")
		}
		if len(payload) == 0 {
			return nil, nil
		}
		return json.RawMessage(payload), nil
	}

	return nil, c.classify(req, resp.StatusCode, payload)
}

// classify maps a non-2xx upstream response to the uniform error contract.
func (c *Client) classify(req *http.Request, status int, payload []byte) error {
	var decoded any
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &decoded); err != nil {
			// Non-JSON upstream bodies are kept as plain text detail.
			decoded = strings.TrimSpace(string(payload))
		}
	}

	msg := httperr.FromPayload(decoded, http.StatusText(status))
	if s, ok := decoded.(string); ok && s != "" {
		msg = s
	}

	c.logger.WarnContext(req.Context(), "upstream request failed",
		"method", req.Method,
		"path", req.URL.Path,
		"status", status,
	)

	if status == http.StatusUnauthorized {
		e := httperr.Unauthenticated(msg)
		e.Data = decoded
		return e
	}
	return &httperr.Error{StatusCode: status, StatusMessage: msg, Data: decoded}
}

func (c *Client) resolve(spec Spec) string {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(spec.Path, "/")
	if len(spec.Query) > 0 {
		u.RawQuery = spec.Query.Encode()
	}
	return u.String()
}

func (c *Client) observe(path, status string, start time.Time) {
	if c.metrics == nil {
		return
	}
	endpoint := endpointLabel(path)
	c.metrics.UpstreamRequests.WithLabelValues(endpoint, status).Inc()
	c.metrics.UpstreamLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

// endpointLabel collapses dynamic path segments so metric cardinality stays
// bounded.
func endpointLabel(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	kept := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg == "" || looksLikeID(seg) {
			continue
		}
		kept = append(kept, seg)
	}
	return "/" + strings.Join(kept, "/")
}

func looksLikeID(seg string) bool {
	if _, err := strconv.Atoi(seg); err == nil {
		return true
	}
	if _, err := uuid.Parse(seg); err == nil {
		return true
	}
	return false
}
