// Package tray provides the system tray interface: the camera toggle, the
// live status line, and the theme selector.
package tray

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/yantram/internal/app"
	"github.com/ayusman/yantram/internal/bulb"
	"github.com/ayusman/yantram/internal/capture"
	"github.com/ayusman/yantram/internal/gesture"
	"github.com/ayusman/yantram/internal/theme"
)

// Controller is the camera session the tray drives.
type Controller interface {
	Toggle(ctx context.Context) error
	Status() app.Status
	State() app.Update
	Subscribe(l app.Listener) func()
}

// Tray represents the system tray application.
type Tray struct {
	ctrl       Controller
	themes     *theme.Store
	onSettings func()
	onQuit     func()
	mu         sync.RWMutex

	// last titles shown, so per-frame updates only touch the menu on change
	lastToggle string
	lastStatus string
	lastBulb   string

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuStatus *systray.MenuItem
	menuBulb   *systray.MenuItem
	menuThemes map[theme.Theme]*systray.MenuItem

	unsubscribe []func()
}

// New creates a tray bound to a controller and theme store.
func New(ctrl Controller, themes *theme.Store) *Tray {
	return &Tray{
		ctrl:       ctrl,
		themes:     themes,
		menuThemes: make(map[theme.Theme]*systray.MenuItem),
	}
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Yantram")
	systray.SetTooltip("Yantram hand-controlled bulb")

	status := t.ctrl.Status()
	update := t.ctrl.State()

	t.mu.Lock()
	t.lastToggle = ToggleTitle(status)
	t.lastStatus = update.Status
	t.lastBulb = BulbTitle(update.Power)
	t.menuToggle = systray.AddMenuItem(t.lastToggle, "Turn the camera on or off")
	systray.AddSeparator()

	t.menuStatus = systray.AddMenuItem(t.lastStatus, "Hand state")
	t.menuStatus.Disable()
	t.menuBulb = systray.AddMenuItem(t.lastBulb, "Bulb power")
	t.menuBulb.Disable()
	systray.AddSeparator()

	menuTheme := systray.AddMenuItem("Theme", "Overlay color theme")
	current := t.themes.Get()
	for _, th := range theme.All() {
		item := menuTheme.AddSubMenuItemCheckbox(ThemeTitle(th), "Use the "+string(th)+" theme", th == current)
		t.menuThemes[th] = item
		go t.watchTheme(th, item)
	}
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Yantram")
	t.mu.Unlock()

	t.unsubscribe = append(t.unsubscribe,
		t.ctrl.Subscribe(t.handleUpdate),
		t.themes.Subscribe(t.handleTheme),
	)

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {
	for _, fn := range t.unsubscribe {
		fn()
	}
}

func (t *Tray) watchTheme(th theme.Theme, item *systray.MenuItem) {
	for range item.ClickedCh {
		if err := t.themes.Set(th); err != nil {
			slog.Warn("failed to set theme", "theme", th, "error", err)
		}
	}
}

// handleToggle flips the camera. Start can take seconds, so it runs off
// the menu goroutine.
func (t *Tray) handleToggle() {
	if t.ctrl.Status().Loading {
		return
	}
	go func() {
		if err := t.ctrl.Toggle(context.Background()); err != nil {
			slog.Warn("camera toggle failed", "error", err)
			t.setStatus(ErrorTitle(err))
		}
		t.setToggle(ToggleTitle(t.ctrl.Status()))
	}()
}

// handleUpdate runs on the frame loop; it only touches menu items whose
// text changed.
func (t *Tray) handleUpdate(u app.Update) {
	t.setToggle(ToggleTitle(t.ctrl.Status()))
	t.setStatus(u.Status)

	bulbTitle := BulbTitle(u.Power)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.menuBulb != nil && bulbTitle != t.lastBulb {
		t.lastBulb = bulbTitle
		t.menuBulb.SetTitle(bulbTitle)
	}
}

func (t *Tray) handleTheme(current theme.Theme) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for th, item := range t.menuThemes {
		if th == current {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
}

func (t *Tray) setToggle(title string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.menuToggle != nil && title != t.lastToggle {
		t.lastToggle = title
		t.menuToggle.SetTitle(title)
	}
}

func (t *Tray) setStatus(title string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.menuStatus != nil && title != t.lastStatus {
		t.lastStatus = title
		t.menuStatus.SetTitle(title)
	}
}

// handleSettings handles the settings menu item click.
func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// ToggleTitle is the camera menu item text for a status.
func ToggleTitle(s app.Status) string {
	switch {
	case s.Loading:
		return "◌ Starting Camera..."
	case s.Active:
		return "● Camera On"
	default:
		return "○ Camera Off"
	}
}

// BulbTitle is the bulb menu item text for a power level.
func BulbTitle(p bulb.Power) string {
	return fmt.Sprintf("Bulb: %d%%", p.Percent())
}

// ThemeTitle is the menu text for a theme.
func ThemeTitle(t theme.Theme) string {
	s := string(t)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ErrorTitle is the status text shown after a failed toggle.
func ErrorTitle(err error) string {
	if errors.Is(err, capture.ErrPermissionDenied) {
		return gesture.StatusText(gesture.StateError)
	}
	return "Camera error: " + err.Error()
}
