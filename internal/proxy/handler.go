// Package proxy holds the thin pass-through route handlers. Every handler
// gates on a valid session, forwards the call through the authenticated fetch
// client, and returns the upstream body verbatim. No business logic lives
// here; it all belongs to the upstream service.
package proxy

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"planbridge/internal/session"
	jsonResponse "planbridge/internal/transport/http/json"
	"planbridge/internal/upstream"
	"planbridge/pkg/httperr"
)

// Sessions gates every proxy route on an authenticated session.
type Sessions interface {
	Require(r *http.Request) (*session.Record, error)
}

// Upstream is the fetch-client surface the proxy routes consume.
type Upstream interface {
	Call(ctx context.Context, token string, spec upstream.Spec) (json.RawMessage, error)
}

// Handler wires the domain proxy routes.
type Handler struct {
	up       Upstream
	sessions Sessions
	logger   *slog.Logger
}

// NewHandler builds the proxy handler.
func NewHandler(up Upstream, sessions Sessions, logger *slog.Logger) *Handler {
	return &Handler{up: up, sessions: sessions, logger: logger}
}

// Register mounts all domain routes. Paths mirror the upstream surface.
func (h *Handler) Register(r chi.Router) {
	r.Get("/products", h.list("/products"))
	r.Get("/products/{id}", h.byID("/products", "id"))
	r.Get("/suppliers", h.list("/suppliers"))
	r.Get("/suppliers/{id}", h.byID("/suppliers", "id"))
	r.Get("/locations", h.list("/locations"))
	r.Get("/purchase-orders", h.list("/purchase-orders"))
	r.Post("/purchase-orders", h.create("/purchase-orders"))
	r.Get("/purchase-orders/{id}", h.byID("/purchase-orders", "id"))

	r.Route("/order-planning/cart", func(r chi.Router) {
		r.Get("/", h.list("/order-planning/cart"))
		r.Post("/", h.create("/order-planning/cart"))
		r.Delete("/", h.remove("/order-planning/cart"))
		r.Post("/checkout", h.create("/order-planning/cart/checkout"))
	})

	r.Get("/forecast/{productId}", h.byID("/forecast", "productId"))
	r.Get("/dashboard", h.list("/dashboard"))
	r.Get("/recommendations", h.list("/recommendations"))
	r.Get("/overview", h.handleOverview)
}

// forward performs the session gate and one upstream call, then writes the
// outcome. Every route funnels through here so the error contract stays
// uniform.
func (h *Handler) forward(w http.ResponseWriter, r *http.Request, spec upstream.Spec) {
	sess, err := h.sessions.Require(r)
	if err != nil {
		jsonResponse.WriteError(w, err)
		return
	}

	raw, err := h.up.Call(r.Context(), sess.AccessToken, spec)
	if err != nil {
		// A 401 from an arbitrary domain route is surfaced but does not
		// destroy the session; only the identity-refresh path clears it.
		jsonResponse.WriteError(w, err)
		return
	}
	jsonResponse.WriteRaw(w, http.StatusOK, raw)
}

// list forwards a GET with the caller's query string.
func (h *Handler) list(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.forward(w, r, upstream.Spec{
			Path:   path,
			Method: http.MethodGet,
			Query:  r.URL.Query(),
		})
	}
}

// byID forwards a GET for a single resource, requiring the path parameter.
func (h *Handler) byID(base, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, param)
		if id == "" {
			jsonResponse.WriteError(w, httperr.BadRequest("missing required parameter: "+param))
			return
		}
		h.forward(w, r, upstream.Spec{
			Path:   base + "/" + id,
			Method: http.MethodGet,
			Query:  r.URL.Query(),
		})
	}
}

// create forwards a POST, requiring a non-empty JSON body.
func (h *Handler) create(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil || len(body) == 0 {
			jsonResponse.WriteError(w, httperr.BadRequest("missing request body"))
			return
		}
		if !json.Valid(body) {
			jsonResponse.WriteError(w, httperr.BadRequest("invalid request body"))
			return
		}
		h.forward(w, r, upstream.Spec{
			Path:   path,
			Method: http.MethodPost,
			Body:   json.RawMessage(body),
		})
	}
}

// remove forwards a DELETE with the caller's query string.
func (h *Handler) remove(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.forward(w, r, upstream.Spec{
			Path:   path,
			Method: http.MethodDelete,
			Query:  r.URL.Query(),
		})
	}
}

// handleOverview is the one aggregate route: it fans out to the dashboard and
// recommendations endpoints concurrently and merges the bodies. First error
// wins and cancels the sibling call.
func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Require(r)
	if err != nil {
		jsonResponse.WriteError(w, err)
		return
	}

	g, ctx := errgroup.WithContext(r.Context())
	var dashboard, recommendations json.RawMessage
	g.Go(func() error {
		var err error
		dashboard, err = h.up.Call(ctx, sess.AccessToken, upstream.Spec{Path: "/dashboard", Method: http.MethodGet})
		return err
	})
	g.Go(func() error {
		var err error
		recommendations, err = h.up.Call(ctx, sess.AccessToken, upstream.Spec{Path: "/recommendations", Method: http.MethodGet})
		return err
	})
	if err := g.Wait(); err != nil {
		jsonResponse.WriteError(w, err)
		return
	}

	jsonResponse.WriteJSON(w, http.StatusOK, map[string]json.RawMessage{
		"dashboard":       dashboard,
		"recommendations": recommendations,
	})
}
