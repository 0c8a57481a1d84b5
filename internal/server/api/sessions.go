package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/yantram/internal/store"
)

// SessionsHandler handles /api/sessions and /api/sessions/{id}.
type SessionsHandler struct {
	store *store.Store
}

// NewSessionsHandler creates a SessionsHandler.
func NewSessionsHandler(s *store.Store) *SessionsHandler {
	return &SessionsHandler{store: s}
}

type listSessionsResponse struct {
	Sessions []*store.Session `json:"sessions"`
}

type sessionResponse struct {
	*store.Session
	PowerEvents []*store.PowerEvent `json:"power_events"`
}

// ServeHTTP implements http.Handler.
func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	id = strings.TrimPrefix(id, "/")

	if id == "" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h.list(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, id)
	case http.MethodDelete:
		h.delete(w, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// list handles GET /api/sessions?limit=N.
func (h *SessionsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	sessions, err := h.store.Sessions().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*store.Session{}
	}
	writeJSON(w, http.StatusOK, listSessionsResponse{Sessions: sessions})
}

func (h *SessionsHandler) get(w http.ResponseWriter, id string) {
	sess, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	events, err := h.store.PowerEvents().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get power events")
		return
	}
	if events == nil {
		events = []*store.PowerEvent{}
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess, PowerEvents: events})
}

func (h *SessionsHandler) delete(w http.ResponseWriter, id string) {
	if err := h.store.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
