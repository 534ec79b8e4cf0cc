package json

import (
	"encoding/json"
	"net/http"

	"planbridge/pkg/httperr"
)

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		// best-effort fallback; don't override status for the caller
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// WriteRaw forwards an already-encoded upstream body verbatim. A nil body
// (e.g. an upstream 204) becomes an empty JSON object so browsers always get
// a parseable response.
func WriteRaw(w http.ResponseWriter, status int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if len(body) == 0 {
		body = json.RawMessage(`{}`)
	}
	_, _ = w.Write(body)
}

// errorEnvelope is the outward error shape every route produces.
type errorEnvelope struct {
	StatusCode    int    `json:"statusCode"`
	StatusMessage string `json:"statusMessage"`
	Data          any    `json:"data,omitempty"`
}

// WriteError normalizes any failure into the uniform error envelope.
// Handlers never swallow errors silently; every failure passes through here.
func WriteError(w http.ResponseWriter, err error) {
	e := httperr.Normalize(err, "internal server error")
	WriteJSON(w, e.StatusCode, errorEnvelope{
		StatusCode:    e.StatusCode,
		StatusMessage: e.StatusMessage,
		Data:          e.Data,
	})
}
