package app

import (
	"context"
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/yantram/internal/bulb"
	"github.com/ayusman/yantram/internal/capture"
	"github.com/ayusman/yantram/internal/detector"
	"github.com/ayusman/yantram/internal/gesture"
	"github.com/ayusman/yantram/internal/overlay"
	"github.com/ayusman/yantram/internal/theme"
)

// Update is the result of one processed frame, as published to listeners.
type Update struct {
	SessionID string `json:"session_id,omitempty"`
	Seq       uint64 `json:"seq"`
	gesture.Reading
	Power     bulb.Power              `json:"power"`
	Level     int                     `json:"level"`
	Changed   bool                    `json:"changed"`
	Theme     theme.Theme             `json:"theme"`
	Status    string                  `json:"status"`
	Hand      *detector.HandLandmarks `json:"hand,omitempty"`
	Timestamp time.Time               `json:"ts"`
}

// idleUpdate is the state reported when no session is producing frames.
func idleUpdate(t theme.Theme, ts time.Time) Update {
	return Update{
		Reading:   gesture.Reading{State: gesture.StateDetecting},
		Power:     bulb.PowerOff,
		Theme:     t,
		Status:    gesture.StatusText(gesture.StateDetecting),
		Timestamp: ts,
	}
}

// PipelineConfig holds the per-frame collaborators.
type PipelineConfig struct {
	Thresholds gesture.Thresholds
	// Renderer draws the overlay. Nil skips rendering and compositing.
	Renderer *overlay.Renderer
	Themes   *theme.Store
	Bulb     *bulb.Bulb
	// Sink receives the composited frame. Optional.
	Sink capture.Sink
}

// Pipeline turns a frame and its detector observation into a classified,
// rendered update. It is not safe for concurrent use; each frame loop owns
// one.
type Pipeline struct {
	cfg     PipelineConfig
	surface gocv.Mat
	seq     uint64
}

// NewPipeline creates a pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Themes == nil {
		cfg.Themes = theme.NewStore(theme.Default)
	}
	if cfg.Bulb == nil {
		cfg.Bulb = bulb.New()
	}
	return &Pipeline{cfg: cfg, surface: gocv.NewMat()}
}

// Process classifies hand, drives the bulb, and renders the overlay onto
// frame before handing it to the sink. hand may be nil.
func (p *Pipeline) Process(ctx context.Context, frame *gocv.Mat, hand *detector.HandLandmarks) (Update, error) {
	reading := p.cfg.Thresholds.ClassifyHand(hand)
	t, pal := p.cfg.Themes.Snapshot()

	var renderErr error
	if p.cfg.Renderer != nil && frame != nil && !frame.Empty() {
		renderErr = p.render(frame, hand, reading.Extended, pal)
	}

	state, changed := p.cfg.Bulb.Apply(ctx, reading)

	p.seq++
	u := Update{
		Seq:       p.seq,
		Reading:   reading,
		Power:     state.Power,
		Level:     state.Level,
		Changed:   changed,
		Theme:     t,
		Status:    gesture.StatusText(reading.State),
		Hand:      hand,
		Timestamp: state.Timestamp,
	}
	return u, renderErr
}

func (p *Pipeline) render(frame *gocv.Mat, hand *detector.HandLandmarks, ext gesture.Extension, pal theme.Palette) error {
	if p.surface.Rows() != frame.Rows() || p.surface.Cols() != frame.Cols() {
		p.surface.Close()
		p.surface = gocv.NewMatWithSize(frame.Rows(), frame.Cols(), gocv.MatTypeCV8UC3)
	}

	if err := p.cfg.Renderer.Render(&p.surface, hand, ext, pal); err != nil {
		return fmt.Errorf("render overlay: %w", err)
	}
	if hand != nil {
		if err := overlay.Composite(frame, p.surface); err != nil {
			return fmt.Errorf("composite overlay: %w", err)
		}
	}
	if p.cfg.Sink != nil {
		if err := p.cfg.Sink.Write(frame); err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
	}
	return nil
}

// Seq returns the number of frames processed.
func (p *Pipeline) Seq() uint64 {
	return p.seq
}

// Close releases the overlay surface.
func (p *Pipeline) Close() error {
	return p.surface.Close()
}
