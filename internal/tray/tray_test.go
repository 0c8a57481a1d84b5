package tray

import (
	"context"
	"errors"
	"testing"

	"github.com/ayusman/yantram/internal/app"
	"github.com/ayusman/yantram/internal/bulb"
	"github.com/ayusman/yantram/internal/capture"
	"github.com/ayusman/yantram/internal/gesture"
	"github.com/ayusman/yantram/internal/theme"
)

type stubController struct {
	status app.Status
}

func (s *stubController) Toggle(context.Context) error    { return nil }
func (s *stubController) Status() app.Status             { return s.status }
func (s *stubController) State() app.Update              { return app.Update{} }
func (s *stubController) Subscribe(app.Listener) func() { return func() {} }

func TestToggleTitle(t *testing.T) {
	tests := []struct {
		status app.Status
		want   string
	}{
		{app.Status{}, "○ Camera Off"},
		{app.Status{Active: true}, "● Camera On"},
		{app.Status{Loading: true}, "◌ Starting Camera..."},
		{app.Status{Active: true, Loading: true}, "◌ Starting Camera..."},
	}
	for _, tt := range tests {
		if got := ToggleTitle(tt.status); got != tt.want {
			t.Errorf("ToggleTitle(%+v) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestBulbTitle(t *testing.T) {
	tests := map[bulb.Power]string{
		bulb.PowerOff:  "Bulb: 0%",
		bulb.PowerHalf: "Bulb: 50%",
		bulb.PowerFull: "Bulb: 100%",
	}
	for p, want := range tests {
		if got := BulbTitle(p); got != want {
			t.Errorf("BulbTitle(%s) = %q, want %q", p, got, want)
		}
	}
}

func TestThemeTitle(t *testing.T) {
	if got := ThemeTitle(theme.Cyberpunk); got != "Cyberpunk" {
		t.Errorf("ThemeTitle(cyberpunk) = %q", got)
	}
	if got := ThemeTitle(""); got != "" {
		t.Errorf("ThemeTitle(\"\") = %q", got)
	}
}

func TestErrorTitle(t *testing.T) {
	denied := &capture.Error{Kind: capture.PermissionDenied}
	if got := ErrorTitle(denied); got != gesture.StatusText(gesture.StateError) {
		t.Errorf("ErrorTitle(permission) = %q", got)
	}
	if got := ErrorTitle(errors.New("busy")); got != "Camera error: busy" {
		t.Errorf("ErrorTitle(other) = %q", got)
	}
}

func TestNew(t *testing.T) {
	tr := New(&stubController{}, theme.NewStore(theme.Green))
	if tr == nil {
		t.Fatal("New() returned nil")
	}

	// Updates before the menu exists are ignored.
	tr.handleUpdate(app.Update{Power: bulb.PowerFull, Status: "x"})
	tr.handleTheme(theme.Neon)

	called := false
	tr.OnSettings(func() { called = true })
	tr.handleSettings()
	if !called {
		t.Error("settings callback not called")
	}
}
