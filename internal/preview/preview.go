// Package preview shows the composited camera feed and a simulated bulb in
// a desktop window.
package preview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"log/slog"
	"math"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/ayusman/yantram/internal/app"
	"github.com/ayusman/yantram/internal/bulb"
	"github.com/ayusman/yantram/internal/theme"
)

// Controller is the camera session shown in the window.
type Controller interface {
	Toggle(ctx context.Context) error
	Status() app.Status
	State() app.Update
}

// Frames supplies the newest composited frame as JPEG.
type Frames interface {
	Latest() (jpeg []byte, seq uint64, ok bool)
}

const (
	panelWidth = 220
	bulbRadius = 48
)

var (
	background = color.RGBA{0x0f, 0x17, 0x2a, 0xff}
	bulbOff    = color.RGBA{0x33, 0x41, 0x55, 0xff}
	bulbLit    = color.RGBA{0xfd, 0xe0, 0x47, 0xff}
)

// Window implements ebiten.Game.
type Window struct {
	ctrl   Controller
	frames Frames
	themes *theme.Store
	ctx    context.Context

	frameImage *ebiten.Image
	framePix   *image.RGBA
	frameSeq   uint64

	mu      sync.Mutex
	lastErr string
}

// New creates a preview window.
func New(ctrl Controller, frames Frames, themes *theme.Store) *Window {
	return &Window{ctrl: ctrl, frames: frames, themes: themes, ctx: context.Background()}
}

// Run opens the window and blocks until it is closed or ctx is done. Must
// be called from the main goroutine.
func (w *Window) Run(ctx context.Context) error {
	w.ctx = ctx
	ebiten.SetWindowSize(640+panelWidth, 480)
	ebiten.SetWindowTitle("Yantram Preview")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(w)
}

// Update handles input.
func (w *Window) Update() error {
	if w.ctx.Err() != nil {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyQ) {
		return ebiten.Termination
	}

	if inpututil.IsKeyJustPressed(ebiten.KeySpace) && !w.ctrl.Status().Loading {
		go w.toggle()
	}

	for _, k := range inpututil.AppendJustPressedKeys(nil) {
		if t, ok := ThemeForKey(k); ok {
			if err := w.themes.Set(t); err != nil {
				slog.Warn("failed to set theme", "theme", t, "error", err)
			}
		}
	}
	return nil
}

func (w *Window) toggle() {
	err := w.ctrl.Toggle(w.ctx)
	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		slog.Warn("camera toggle failed", "error", err)
		w.lastErr = err.Error()
		return
	}
	w.lastErr = ""
}

// Draw renders the frame, the bulb and the status panel.
func (w *Window) Draw(screen *ebiten.Image) {
	screen.Fill(background)

	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	viewW := sw - panelWidth
	if viewW < 1 {
		viewW = 1
	}

	w.refreshFrame()
	if w.frameImage != nil && w.ctrl.Status().Active {
		fw, fh := float64(w.frameImage.Bounds().Dx()), float64(w.frameImage.Bounds().Dy())
		scale, offsetX, offsetY := aspectFitTransform(float64(viewW), float64(sh), fw, fh)

		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(scale, scale)
		op.GeoM.Translate(offsetX, offsetY)
		screen.DrawImage(w.frameImage, op)
	}

	u := w.ctrl.State()
	cx := float32(viewW + panelWidth/2)
	cy := float32(40 + bulbRadius)
	if u.Level > 0 {
		vector.DrawFilledCircle(screen, cx, cy, bulbRadius*1.6, GlowColor(u.Power), true)
	}
	vector.DrawFilledCircle(screen, cx, cy, bulbRadius, BulbColor(u.Power), true)

	w.mu.Lock()
	lastErr := w.lastErr
	w.mu.Unlock()

	y := int(cy) + bulbRadius + 24
	for _, line := range StatusLines(w.ctrl.Status(), u, lastErr) {
		ebitenutil.DebugPrintAt(screen, line, viewW+12, y)
		y += 16
	}
}

// Layout uses the window size as the screen size.
func (w *Window) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

// refreshFrame decodes the newest frame if it changed since the last draw.
func (w *Window) refreshFrame() {
	data, seq, ok := w.frames.Latest()
	if !ok || seq == w.frameSeq {
		return
	}
	w.frameSeq = seq

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		slog.Debug("failed to decode preview frame", "error", err)
		return
	}

	b := img.Bounds()
	if w.frameImage == nil || w.frameImage.Bounds().Dx() != b.Dx() || w.frameImage.Bounds().Dy() != b.Dy() {
		w.frameImage = ebiten.NewImage(b.Dx(), b.Dy())
	}
	w.framePix = toRGBA(w.framePix, img)
	w.frameImage.WritePixels(w.framePix.Pix)
}

// toRGBA copies img into dst, reallocating dst only when the size changes.
func toRGBA(dst *image.RGBA, img image.Image) *image.RGBA {
	b := img.Bounds()
	if dst == nil || dst.Rect.Dx() != b.Dx() || dst.Rect.Dy() != b.Dy() {
		dst = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	}
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return dst
}

var themeKeys = []ebiten.Key{ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4, ebiten.Key5, ebiten.Key6, ebiten.Key7, ebiten.Key8, ebiten.Key9}

// ThemeForKey maps the number keys to the themes in display order.
func ThemeForKey(k ebiten.Key) (theme.Theme, bool) {
	all := theme.All()
	for i, key := range themeKeys {
		if key == k && i < len(all) {
			return all[i], true
		}
	}
	return "", false
}

// BulbColor is the bulb body color at a power level.
func BulbColor(p bulb.Power) color.RGBA {
	f := float64(p.Percent()) / 100
	return color.RGBA{
		R: lerp(bulbOff.R, bulbLit.R, f),
		G: lerp(bulbOff.G, bulbLit.G, f),
		B: lerp(bulbOff.B, bulbLit.B, f),
		A: 0xff,
	}
}

// GlowColor is the translucent halo around a lit bulb, premultiplied.
func GlowColor(p bulb.Power) color.RGBA {
	a := float64(p.Percent()) / 100 * 0.35
	return color.RGBA{
		R: uint8(float64(bulbLit.R) * a),
		G: uint8(float64(bulbLit.G) * a),
		B: uint8(float64(bulbLit.B) * a),
		A: uint8(255 * a),
	}
}

// StatusLines is the text shown under the bulb.
func StatusLines(s app.Status, u app.Update, lastErr string) []string {
	camera := "off"
	switch {
	case s.Loading:
		camera = "starting..."
	case s.Active:
		camera = "on"
	}

	lines := []string{
		"Camera: " + camera,
		fmt.Sprintf("Bulb: %d%%", u.Power.Percent()),
		fmt.Sprintf("Fingers: %d", u.Fingers),
		"Theme: " + string(u.Theme),
		"",
	}
	lines = append(lines, wrap(u.Status, 30)...)
	if lastErr != "" {
		lines = append(lines, "")
		lines = append(lines, wrap("Error: "+lastErr, 30)...)
	}
	lines = append(lines, "", "[space] camera  [1-6] theme", "[q] quit")
	return lines
}

// wrap splits s into lines of at most width bytes at spaces.
func wrap(s string, width int) []string {
	var lines []string
	for len(s) > width {
		cut := width
		for i := width; i > 0; i-- {
			if s[i] == ' ' {
				cut = i
				break
			}
		}
		lines = append(lines, s[:cut])
		s = s[cut:]
		for len(s) > 0 && s[0] == ' ' {
			s = s[1:]
		}
	}
	if s != "" {
		lines = append(lines, s)
	}
	return lines
}

func lerp(a, b uint8, f float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*f))
}

// aspectFitTransform returns scale and offsets to fit frame into view with letterboxing.
func aspectFitTransform(viewW, viewH, frameW, frameH float64) (scale, offsetX, offsetY float64) {
	scale = math.Min(viewW/frameW, viewH/frameH)
	offsetX = (viewW - frameW*scale) / 2
	offsetY = (viewH - frameH*scale) / 2
	return
}
