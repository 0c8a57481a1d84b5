package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ayusman/yantram/internal/app"
	"github.com/ayusman/yantram/internal/capture"
)

// CameraController is the camera toggle the handler drives.
type CameraController interface {
	Start(ctx context.Context) error
	Stop()
	Toggle(ctx context.Context) error
	Status() app.Status
}

// CameraHandler handles /api/camera.
type CameraHandler struct {
	ctrl CameraController
}

// NewCameraHandler creates a CameraHandler.
func NewCameraHandler(ctrl CameraController) *CameraHandler {
	return &CameraHandler{ctrl: ctrl}
}

type cameraRequest struct {
	Active *bool `json:"active"`
}

// ServeHTTP implements http.Handler.
func (h *CameraHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.ctrl.Status())
	case http.MethodPost:
		h.set(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// set handles POST /api/camera. A body of {"active": bool} selects the
// state; an empty body toggles it.
func (h *CameraHandler) set(w http.ResponseWriter, r *http.Request) {
	var req cameraRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var err error
	switch {
	case req.Active == nil:
		err = h.ctrl.Toggle(r.Context())
	case *req.Active:
		if !h.ctrl.Status().Active {
			err = h.ctrl.Start(r.Context())
		}
	default:
		h.ctrl.Stop()
	}

	if err != nil {
		status, kind := startErrorStatus(err)
		writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.Status())
}

// startErrorStatus maps a camera-enable failure to an HTTP status.
func startErrorStatus(err error) (int, string) {
	if errors.Is(err, app.ErrDetectorInit) {
		return http.StatusServiceUnavailable, "detector"
	}

	var cerr *capture.Error
	if !errors.As(err, &cerr) {
		return http.StatusInternalServerError, ""
	}
	switch cerr.Kind {
	case capture.PermissionDenied:
		return http.StatusForbidden, cerr.Kind.String()
	case capture.NotFound:
		return http.StatusNotFound, cerr.Kind.String()
	case capture.InUse:
		return http.StatusConflict, cerr.Kind.String()
	case capture.Overconstrained:
		return http.StatusUnprocessableEntity, cerr.Kind.String()
	default:
		return http.StatusInternalServerError, cerr.Kind.String()
	}
}
