package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/ayusman/yantram/internal/theme"
)

func TestThemeHandler_Get(t *testing.T) {
	h := NewThemeHandler(theme.NewStore(theme.Purple))
	rec := doRequest(h, http.MethodGet, "/api/theme", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp themeResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Theme != theme.Purple || resp.Palette.Line != "#8b5cf6" {
		t.Errorf("response = %+v", resp)
	}
	if len(resp.Themes) != 6 {
		t.Errorf("themes = %v", resp.Themes)
	}
}

func TestThemeHandler_Put(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantTheme  theme.Theme
	}{
		{"valid", `{"theme":"cyberpunk"}`, http.StatusOK, theme.Cyberpunk},
		{"case insensitive", `{"theme":" Neon "}`, http.StatusOK, theme.Neon},
		{"unknown", `{"theme":"sepia"}`, http.StatusBadRequest, theme.Blue},
		{"malformed", `{"theme":`, http.StatusBadRequest, theme.Blue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			themes := theme.NewStore(theme.Blue)
			var notified []theme.Theme
			themes.Subscribe(func(t theme.Theme) { notified = append(notified, t) })

			rec := doRequest(NewThemeHandler(themes), http.MethodPut, "/api/theme", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if got := themes.Get(); got != tt.wantTheme {
				t.Errorf("theme = %s, want %s", got, tt.wantTheme)
			}
			if tt.wantStatus == http.StatusOK && len(notified) != 1 {
				t.Errorf("listeners notified %d times", len(notified))
			}
		})
	}
}

func TestThemeHandler_MethodNotAllowed(t *testing.T) {
	rec := doRequest(NewThemeHandler(theme.NewStore(theme.Blue)), http.MethodDelete, "/api/theme", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rec.Code)
	}
}
