// Package app runs the capture session: it owns the camera, pumps frames
// through the detector, and publishes classified updates.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/yantram/internal/bulb"
	"github.com/ayusman/yantram/internal/capture"
	"github.com/ayusman/yantram/internal/detector"
	"github.com/ayusman/yantram/internal/gesture"
	"github.com/ayusman/yantram/internal/overlay"
	"github.com/ayusman/yantram/internal/store"
	"github.com/ayusman/yantram/internal/theme"
)

// ErrDetectorInit is returned by Start when the landmark detector cannot be
// created or configured. Start may be retried.
var ErrDetectorInit = errors.New("detector initialization failed")

// Session end reasons recorded in the store.
const (
	EndStopped    = "stopped"
	EndRestarted  = "restarted"
	EndCameraLost = "camera_lost"
	EndShutdown   = "shutdown"
)

// Config holds the controller's collaborators.
type Config struct {
	Constraints capture.Constraints
	// Opener builds cameras; defaults to capture.OpenDevice.
	Opener        capture.Opener
	WarmupTimeout time.Duration

	// NewDetector creates the landmark source on first Start.
	NewDetector     func() (detector.Source, error)
	DetectorOptions detector.Options

	Thresholds gesture.Thresholds
	Renderer   *overlay.Renderer
	Themes     *theme.Store
	Bulb       *bulb.Bulb
	Sink       capture.Sink
	// Store records sessions and power events. Optional.
	Store *store.Store

	// Refresh paces the frame loop; defaults to a 60 Hz ticker.
	Refresh func() Refresher
}

// Status is the camera toggle as shown to the user.
type Status struct {
	Active  bool `json:"active"`
	Loading bool `json:"loading"`
}

// Listener receives every published update.
type Listener func(Update)

// Controller owns at most one capture session at a time.
type Controller struct {
	cfg Config

	// lifecycle serializes Start, Stop and Close.
	lifecycle sync.Mutex
	det       detector.Source
	session   *session
	closed    bool
	active    atomic.Bool
	loading   atomic.Bool

	mu        sync.RWMutex
	last      Update
	listeners map[int]Listener
	nextID    int
}

// session is one camera stream and its frame loop.
type session struct {
	id     string
	device int
	cam    capture.Camera
	active atomic.Bool
	cancel context.CancelFunc
	done   chan struct{}

	frames         atomic.Int64
	detectorErrors atomic.Int64
}

// New creates a controller. Nothing is opened until Start.
func New(cfg Config) *Controller {
	if cfg.Opener == nil {
		cfg.Opener = capture.OpenDevice
	}
	if cfg.WarmupTimeout <= 0 {
		cfg.WarmupTimeout = capture.DefaultWarmupTimeout
	}
	if cfg.DetectorOptions.MaxHands == 0 {
		cfg.DetectorOptions = detector.DefaultOptions()
	}
	if cfg.Thresholds == (gesture.Thresholds{}) {
		cfg.Thresholds = gesture.DefaultThresholds()
	}
	if cfg.Themes == nil {
		cfg.Themes = theme.NewStore(theme.Default)
	}
	if cfg.Bulb == nil {
		cfg.Bulb = bulb.New()
	}
	if cfg.Refresh == nil {
		cfg.Refresh = func() Refresher { return NewTickerRefresher(DefaultRefreshInterval) }
	}

	c := &Controller{
		cfg:       cfg,
		listeners: make(map[int]Listener),
	}
	c.last = idleUpdate(cfg.Themes.Get(), time.Now())
	return c
}

// Start enables the camera and begins the frame loop. Any running session
// is stopped first. On failure no loop runs and the state stays at
// Detecting/Off; camera failures are *capture.Error values.
func (c *Controller) Start(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.closed {
		return errors.New("controller is closed")
	}

	c.stopLocked(EndRestarted)

	c.setLoading(true)
	defer c.setLoading(false)

	det, err := c.detectorLocked()
	if err != nil {
		return err
	}

	cam, err := capture.Acquire(c.cfg.Constraints, c.cfg.Opener)
	if err != nil {
		slog.Warn("camera unavailable", "kind", capture.KindOf(err).String(), "error", err)
		c.resetState()
		return err
	}

	width, height, err := capture.WaitReady(ctx, cam, c.cfg.WarmupTimeout)
	if err != nil {
		if cerr := cam.Close(); cerr != nil {
			slog.Warn("failed to close camera", "error", cerr)
		}
		c.resetState()
		return fmt.Errorf("camera warm-up: %w", err)
	}

	if c.cfg.Sink != nil {
		c.cfg.Sink.Bind(width, height)
	}

	s := &session{
		id:     uuid.NewString(),
		device: deviceOf(cam, c.cfg.Constraints),
		cam:    cam,
		done:   make(chan struct{}),
	}
	s.active.Store(true)

	if c.cfg.Store != nil {
		if err := c.cfg.Store.Sessions().Create(&store.Session{
			ID:     s.id,
			Device: s.device,
			Width:  width,
			Height: height,
		}); err != nil {
			slog.Warn("failed to record session", "session_id", s.id, "error", err)
		}
	}

	// The loop outlives the request that started it.
	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	c.session = s
	c.active.Store(true)

	pipe := NewPipeline(PipelineConfig{
		Thresholds: c.cfg.Thresholds,
		Renderer:   c.cfg.Renderer,
		Themes:     c.cfg.Themes,
		Bulb:       c.cfg.Bulb,
		Sink:       c.cfg.Sink,
	})
	go c.run(loopCtx, s, det, pipe)

	slog.Info("capture session started", "session_id", s.id, "device", s.device, "width", width, "height", height)
	return nil
}

// Stop ends the active session, if any. It is idempotent.
func (c *Controller) Stop() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	c.stopLocked(EndStopped)
}

// Toggle starts the camera when it is off and stops it when it is on.
func (c *Controller) Toggle(ctx context.Context) error {
	if c.Status().Active {
		c.Stop()
		return nil
	}
	return c.Start(ctx)
}

// Close stops the session and disposes of the detector.
func (c *Controller) Close() error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.stopLocked(EndShutdown)
	c.closed = true
	if c.det == nil {
		return nil
	}
	err := c.det.Close()
	c.det = nil
	return err
}

// Status reports whether a session is running or starting.
func (c *Controller) Status() Status {
	return Status{Active: c.active.Load(), Loading: c.loading.Load()}
}

// State returns the latest published update.
func (c *Controller) State() Update {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Subscribe registers l for every update and returns a function that
// removes it. Listeners run on the frame loop and must not block.
func (c *Controller) Subscribe(l Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// detectorLocked creates and configures the detector on first use.
func (c *Controller) detectorLocked() (detector.Source, error) {
	if c.det != nil {
		return c.det, nil
	}
	if c.cfg.NewDetector == nil {
		return nil, fmt.Errorf("%w: no detector configured", ErrDetectorInit)
	}

	det, err := c.cfg.NewDetector()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDetectorInit, err)
	}
	if err := det.Configure(c.cfg.DetectorOptions); err != nil {
		det.Close()
		return nil, fmt.Errorf("%w: %v", ErrDetectorInit, err)
	}
	c.det = det
	return det, nil
}

// stopLocked tears down the current session. The caller holds lifecycle.
func (c *Controller) stopLocked(reason string) {
	s := c.session
	if s == nil {
		return
	}
	c.session = nil
	c.active.Store(false)

	s.active.Store(false)
	s.cancel()
	<-s.done

	if err := s.cam.Close(); err != nil {
		slog.Warn("failed to close camera", "session_id", s.id, "error", err)
	}
	if c.cfg.Sink != nil {
		c.cfg.Sink.Detach()
	}
	c.resetState()

	frames, detErrs := s.frames.Load(), s.detectorErrors.Load()
	if c.cfg.Store != nil {
		if err := c.cfg.Store.Sessions().Finish(s.id, time.Now(), frames, detErrs, reason); err != nil {
			slog.Warn("failed to finish session", "session_id", s.id, "error", err)
		}
	}
	slog.Info("capture session stopped", "session_id", s.id, "reason", reason, "frames", frames, "detector_errors", detErrs)
}

// endSession is called from a loop that can no longer continue.
func (c *Controller) endSession(s *session, reason string) {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if c.session == s {
		c.stopLocked(reason)
	}
}

// resetState turns the bulb off and publishes the idle state.
func (c *Controller) resetState() {
	c.cfg.Bulb.Reset(context.Background())
	c.publish(nil, idleUpdate(c.cfg.Themes.Get(), time.Now()))
}

func (c *Controller) setLoading(v bool) {
	c.loading.Store(v)
	c.mu.RLock()
	u := c.last
	c.mu.RUnlock()
	c.notify(u)
}

// publish stores u as the latest state and notifies listeners. A nil
// session publishes the idle state.
func (c *Controller) publish(s *session, u Update) {
	if s != nil {
		u.SessionID = s.id
		if u.Changed && c.cfg.Store != nil {
			if err := c.cfg.Store.PowerEvents().Record(&store.PowerEvent{
				SessionID: s.id,
				Power:     string(u.Power),
				HandState: string(u.State),
				Fingers:   u.Fingers,
				CreatedAt: u.Timestamp,
			}); err != nil {
				slog.Warn("failed to record power event", "session_id", s.id, "error", err)
			}
		}
	}

	c.mu.Lock()
	c.last = u
	c.mu.Unlock()
	c.notify(u)
}

func (c *Controller) notify(u Update) {
	c.mu.RLock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.RUnlock()

	for _, l := range listeners {
		l(u)
	}
}

// deviceOf reports the device index a camera was opened on, when known.
func deviceOf(cam capture.Camera, c capture.Constraints) int {
	if d, ok := cam.(interface{ Device() int }); ok {
		return d.Device()
	}
	return c.Device
}
