package api

import (
	"net/http"

	"github.com/ayusman/yantram/internal/app"
)

// StateSource reports the latest frame state.
type StateSource interface {
	State() app.Update
	Status() app.Status
}

// StateHandler handles GET /api/state.
type StateHandler struct {
	source StateSource
}

// NewStateHandler creates a StateHandler.
func NewStateHandler(source StateSource) *StateHandler {
	return &StateHandler{source: source}
}

type stateResponse struct {
	Camera app.Status `json:"camera"`
	app.Update
}

// ServeHTTP implements http.Handler.
func (h *StateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{
		Camera: h.source.Status(),
		Update: h.source.State(),
	})
}
