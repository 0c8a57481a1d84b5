package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/yantram/internal/theme"
)

// ThemeHandler handles /api/theme.
type ThemeHandler struct {
	themes *theme.Store
}

// NewThemeHandler creates a ThemeHandler.
func NewThemeHandler(themes *theme.Store) *ThemeHandler {
	return &ThemeHandler{themes: themes}
}

type paletteResponse struct {
	Line  string `json:"line"`
	Point string `json:"point"`
	Joint string `json:"joint"`
}

type themeResponse struct {
	Theme   theme.Theme     `json:"theme"`
	Palette paletteResponse `json:"palette"`
	Themes  []theme.Theme   `json:"themes"`
}

type setThemeRequest struct {
	Theme string `json:"theme"`
}

// ServeHTTP implements http.Handler.
func (h *ThemeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.current())
	case http.MethodPut:
		var req setThemeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		t, err := theme.Parse(req.Theme)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := h.themes.Set(t); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, h.current())
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *ThemeHandler) current() themeResponse {
	t, pal := h.themes.Snapshot()
	return themeResponse{
		Theme: t,
		Palette: paletteResponse{
			Line:  theme.Hex(pal.Line),
			Point: theme.Hex(pal.Point),
			Joint: theme.Hex(pal.Joint),
		},
		Themes: theme.All(),
	}
}
