package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"planbridge/internal/session"
	jsonResponse "planbridge/internal/transport/http/json"
	"planbridge/pkg/httperr"
)

// Flows is the service surface the HTTP handler consumes.
type Flows interface {
	Login(w http.ResponseWriter, r *http.Request, creds Credentials) (*session.UserIdentity, error)
	RefreshIdentity(w http.ResponseWriter, r *http.Request) (*session.UserIdentity, error)
	Logout(w http.ResponseWriter, r *http.Request)
}

// Handler exposes the auth endpoints.
type Handler struct {
	flows  Flows
	logger *slog.Logger
}

// NewHandler builds the auth HTTP handler.
func NewHandler(flows Flows, logger *slog.Logger) *Handler {
	return &Handler{flows: flows, logger: logger}
}

// Register mounts the auth routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
}

type loginResponse struct {
	Success bool                  `json:"success"`
	User    *session.UserIdentity `json:"user,omitempty"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		jsonResponse.WriteError(w, httperr.BadRequest("invalid request body"))
		return
	}

	user, err := h.flows.Login(w, r, creds)
	if err != nil {
		jsonResponse.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, loginResponse{Success: true, User: user})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.flows.Logout(w, r)
	jsonResponse.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.flows.RefreshIdentity(w, r)
	if err != nil {
		jsonResponse.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, user)
}
