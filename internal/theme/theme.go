// Package theme holds the overlay color themes and the single store through
// which the active theme is read and changed.
package theme

import (
	"errors"
	"fmt"
	"image/color"
	"strings"
	"sync"
	"sync/atomic"
)

// Theme names a color palette.
type Theme string

const (
	Blue      Theme = "blue"
	Dark      Theme = "dark"
	Purple    Theme = "purple"
	Green     Theme = "green"
	Cyberpunk Theme = "cyberpunk"
	Neon      Theme = "neon"
)

// Default is the theme used when none is configured.
const Default = Blue

// ErrUnknownTheme is returned for names outside the six known themes.
var ErrUnknownTheme = errors.New("unknown theme")

// Palette is the color triple applied to one rendered frame.
type Palette struct {
	Line  color.RGBA
	Point color.RGBA
	Joint color.RGBA
}

var palettes = map[Theme]Palette{
	Blue:      {Line: hex(0x3b82f6), Point: hex(0x60a5fa), Joint: hex(0xdbeafe)},
	Dark:      {Line: hex(0x94a3b8), Point: hex(0xe2e8f0), Joint: hex(0x64748b)},
	Purple:    {Line: hex(0x8b5cf6), Point: hex(0xc4b5fd), Joint: hex(0xede9fe)},
	Green:     {Line: hex(0x22c55e), Point: hex(0x4ade80), Joint: hex(0x60a5fa)},
	Cyberpunk: {Line: hex(0xff00ff), Point: hex(0x00ffff), Joint: hex(0xfcee0a)},
	Neon:      {Line: hex(0x39ff14), Point: hex(0xff073a), Joint: hex(0xffffff)},
}

// All returns the themes in display order.
func All() []Theme {
	return []Theme{Blue, Dark, Purple, Green, Cyberpunk, Neon}
}

// Parse validates a theme name. Matching is case-insensitive.
func Parse(name string) (Theme, error) {
	t := Theme(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := palettes[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTheme, name)
	}
	return t, nil
}

// Palette returns the colors for t, or the default palette for an unknown theme.
func (t Theme) Palette() Palette {
	if p, ok := palettes[t]; ok {
		return p
	}
	return palettes[Default]
}

// Hex formats c as #rrggbb.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func hex(v uint32) color.RGBA {
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

// snapshot pairs a theme with its palette so readers never see a mix of two.
type snapshot struct {
	theme   Theme
	palette Palette
}

// Listener is called after the theme changes.
type Listener func(Theme)

// Store owns the active theme. Reads are lock-free; every reader gets a
// complete palette.
type Store struct {
	current atomic.Pointer[snapshot]

	// setMu orders swaps with their notifications so listeners observe
	// changes in the order they were applied.
	setMu sync.Mutex

	mu        sync.Mutex
	listeners map[int]Listener
	nextID    int
}

// NewStore creates a store holding t, or Default when t is unknown.
func NewStore(t Theme) *Store {
	if _, ok := palettes[t]; !ok {
		t = Default
	}
	s := &Store{listeners: make(map[int]Listener)}
	s.current.Store(&snapshot{theme: t, palette: t.Palette()})
	return s
}

// Get returns the active theme.
func (s *Store) Get() Theme {
	return s.current.Load().theme
}

// Palette returns the active palette.
func (s *Store) Palette() Palette {
	return s.current.Load().palette
}

// Snapshot returns the active theme and its palette together.
func (s *Store) Snapshot() (Theme, Palette) {
	snap := s.current.Load()
	return snap.theme, snap.palette
}

// Set changes the active theme and notifies listeners if it changed.
// Listeners run on the caller's goroutine and must not call Set.
func (s *Store) Set(t Theme) error {
	if _, ok := palettes[t]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTheme, t)
	}

	s.setMu.Lock()
	defer s.setMu.Unlock()

	prev := s.current.Swap(&snapshot{theme: t, palette: t.Palette()})
	if prev.theme == t {
		return nil
	}

	s.mu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(t)
	}
	return nil
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}
