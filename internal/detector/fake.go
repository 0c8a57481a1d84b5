package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// FakeSource is a deterministic Source for tests.
// It returns a fixed hand or error and can hold results in flight until
// Release is called.
type FakeSource struct {
	mu           sync.Mutex
	hand         *HandLandmarks
	err          error
	configureErr error
	opts         Options
	configured   int
	hold         bool
	pending      []chan Result
	submitted    int
	closed       bool
}

// NewFakeSource creates a new FakeSource that observes no hand.
func NewFakeSource() *FakeSource {
	return &FakeSource{}
}

// SetHand sets the hand that will be returned for every frame. Nil means no hand.
func (f *FakeSource) SetHand(h *HandLandmarks) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hand = h
}

// SetError sets the error that will be returned for every frame.
func (f *FakeSource) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// SetConfigureError makes Configure fail.
func (f *FakeSource) SetConfigureError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configureErr = err
}

// Hold keeps subsequent results in flight until Release is called.
func (f *FakeSource) Hold() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hold = true
}

// Release resolves every held result and stops holding.
func (f *FakeSource) Release() {
	f.mu.Lock()
	pending := f.pending
	f.pending = nil
	f.hold = false
	r := f.result()
	f.mu.Unlock()

	for _, ch := range pending {
		ch <- r
	}
}

// Configure records the options.
func (f *FakeSource) Configure(opts Options) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.configureErr != nil {
		return f.configureErr
	}
	f.opts = opts
	f.configured++
	return nil
}

// Submit returns the configured result, or a held channel.
func (f *FakeSource) Submit(frame *gocv.Mat) <-chan Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted++

	ch := make(chan Result, 1)
	if f.hold {
		f.pending = append(f.pending, ch)
		return ch
	}
	ch <- f.result()
	return ch
}

// Close marks the source closed.
func (f *FakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Submitted returns the number of frames submitted so far.
func (f *FakeSource) Submitted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitted
}

// Pending returns the number of held results.
func (f *FakeSource) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// Options returns the last configured options and how many times Configure succeeded.
func (f *FakeSource) Options() (Options, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opts, f.configured
}

// Closed reports whether Close was called.
func (f *FakeSource) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// result must be called with f.mu held.
func (f *FakeSource) result() Result {
	if f.err != nil {
		return Result{Err: f.err}
	}
	if f.hand == nil {
		return Result{}
	}
	h := *f.hand
	return Result{Hand: &h}
}

// ThumbsUpLandmarks returns a preset hand with only the thumb extended.
func ThumbsUpLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Landmark{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended upward (Y decreases going up)
	landmarks.Points[ThumbCMC] = Landmark{X: 0.55, Y: 0.75, Z: 0.0}
	landmarks.Points[ThumbMCP] = Landmark{X: 0.58, Y: 0.65, Z: 0.0}
	landmarks.Points[ThumbIP] = Landmark{X: 0.58, Y: 0.50, Z: 0.0}
	landmarks.Points[ThumbTip] = Landmark{X: 0.58, Y: 0.35, Z: 0.0}

	landmarks.Points[IndexMCP] = Landmark{X: 0.55, Y: 0.70, Z: -0.02}
	landmarks.Points[IndexPIP] = Landmark{X: 0.55, Y: 0.68, Z: -0.05}
	landmarks.Points[IndexDIP] = Landmark{X: 0.52, Y: 0.70, Z: -0.04}
	landmarks.Points[IndexTip] = Landmark{X: 0.50, Y: 0.72, Z: -0.02}

	landmarks.Points[MiddleMCP] = Landmark{X: 0.50, Y: 0.68, Z: -0.02}
	landmarks.Points[MiddlePIP] = Landmark{X: 0.50, Y: 0.66, Z: -0.05}
	landmarks.Points[MiddleDIP] = Landmark{X: 0.47, Y: 0.68, Z: -0.04}
	landmarks.Points[MiddleTip] = Landmark{X: 0.45, Y: 0.70, Z: -0.02}

	landmarks.Points[RingMCP] = Landmark{X: 0.45, Y: 0.70, Z: -0.02}
	landmarks.Points[RingPIP] = Landmark{X: 0.45, Y: 0.68, Z: -0.05}
	landmarks.Points[RingDIP] = Landmark{X: 0.42, Y: 0.70, Z: -0.04}
	landmarks.Points[RingTip] = Landmark{X: 0.40, Y: 0.72, Z: -0.02}

	landmarks.Points[PinkyMCP] = Landmark{X: 0.40, Y: 0.72, Z: -0.02}
	landmarks.Points[PinkyPIP] = Landmark{X: 0.40, Y: 0.70, Z: -0.05}
	landmarks.Points[PinkyDIP] = Landmark{X: 0.37, Y: 0.72, Z: -0.04}
	landmarks.Points[PinkyTip] = Landmark{X: 0.35, Y: 0.74, Z: -0.02}

	return landmarks
}

// OpenPalmLandmarks returns a preset hand with all five fingers extended.
func OpenPalmLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Landmark{X: 0.5, Y: 0.8, Z: 0.0}

	landmarks.Points[ThumbCMC] = Landmark{X: 0.55, Y: 0.75, Z: 0.02}
	landmarks.Points[ThumbMCP] = Landmark{X: 0.62, Y: 0.70, Z: 0.03}
	landmarks.Points[ThumbIP] = Landmark{X: 0.68, Y: 0.65, Z: 0.03}
	landmarks.Points[ThumbTip] = Landmark{X: 0.73, Y: 0.60, Z: 0.03}

	landmarks.Points[IndexMCP] = Landmark{X: 0.55, Y: 0.68, Z: 0.0}
	landmarks.Points[IndexPIP] = Landmark{X: 0.57, Y: 0.55, Z: 0.0}
	landmarks.Points[IndexDIP] = Landmark{X: 0.58, Y: 0.45, Z: 0.0}
	landmarks.Points[IndexTip] = Landmark{X: 0.58, Y: 0.35, Z: 0.0}

	landmarks.Points[MiddleMCP] = Landmark{X: 0.50, Y: 0.66, Z: 0.0}
	landmarks.Points[MiddlePIP] = Landmark{X: 0.50, Y: 0.52, Z: 0.0}
	landmarks.Points[MiddleDIP] = Landmark{X: 0.50, Y: 0.40, Z: 0.0}
	landmarks.Points[MiddleTip] = Landmark{X: 0.50, Y: 0.28, Z: 0.0}

	landmarks.Points[RingMCP] = Landmark{X: 0.45, Y: 0.68, Z: 0.0}
	landmarks.Points[RingPIP] = Landmark{X: 0.43, Y: 0.55, Z: 0.0}
	landmarks.Points[RingDIP] = Landmark{X: 0.42, Y: 0.45, Z: 0.0}
	landmarks.Points[RingTip] = Landmark{X: 0.42, Y: 0.35, Z: 0.0}

	landmarks.Points[PinkyMCP] = Landmark{X: 0.40, Y: 0.70, Z: 0.0}
	landmarks.Points[PinkyPIP] = Landmark{X: 0.37, Y: 0.60, Z: 0.0}
	landmarks.Points[PinkyDIP] = Landmark{X: 0.35, Y: 0.50, Z: 0.0}
	landmarks.Points[PinkyTip] = Landmark{X: 0.34, Y: 0.42, Z: 0.0}

	return landmarks
}

// FistLandmarks returns a preset closed hand: thumb tucked near the wrist,
// every fingertip below its PIP joint.
func FistLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.93,
	}

	landmarks.Points[Wrist] = Landmark{X: 0.50, Y: 0.85}

	landmarks.Points[ThumbCMC] = Landmark{X: 0.56, Y: 0.80}
	landmarks.Points[ThumbMCP] = Landmark{X: 0.60, Y: 0.74}
	landmarks.Points[ThumbIP] = Landmark{X: 0.58, Y: 0.70}
	landmarks.Points[ThumbTip] = Landmark{X: 0.54, Y: 0.74}

	landmarks.Points[IndexMCP] = Landmark{X: 0.58, Y: 0.62}
	landmarks.Points[IndexPIP] = Landmark{X: 0.58, Y: 0.55}
	landmarks.Points[IndexDIP] = Landmark{X: 0.58, Y: 0.60}
	landmarks.Points[IndexTip] = Landmark{X: 0.58, Y: 0.66}

	landmarks.Points[MiddleMCP] = Landmark{X: 0.51, Y: 0.60}
	landmarks.Points[MiddlePIP] = Landmark{X: 0.51, Y: 0.53}
	landmarks.Points[MiddleDIP] = Landmark{X: 0.51, Y: 0.58}
	landmarks.Points[MiddleTip] = Landmark{X: 0.51, Y: 0.64}

	landmarks.Points[RingMCP] = Landmark{X: 0.44, Y: 0.62}
	landmarks.Points[RingPIP] = Landmark{X: 0.44, Y: 0.55}
	landmarks.Points[RingDIP] = Landmark{X: 0.44, Y: 0.60}
	landmarks.Points[RingTip] = Landmark{X: 0.44, Y: 0.66}

	landmarks.Points[PinkyMCP] = Landmark{X: 0.38, Y: 0.66}
	landmarks.Points[PinkyPIP] = Landmark{X: 0.38, Y: 0.60}
	landmarks.Points[PinkyDIP] = Landmark{X: 0.38, Y: 0.64}
	landmarks.Points[PinkyTip] = Landmark{X: 0.38, Y: 0.69}

	return landmarks
}

// PeaceLandmarks returns a preset hand with index and middle extended.
func PeaceLandmarks() HandLandmarks {
	landmarks := FistLandmarks()

	landmarks.Points[IndexPIP] = Landmark{X: 0.58, Y: 0.50}
	landmarks.Points[IndexDIP] = Landmark{X: 0.59, Y: 0.42}
	landmarks.Points[IndexTip] = Landmark{X: 0.60, Y: 0.34}

	landmarks.Points[MiddlePIP] = Landmark{X: 0.51, Y: 0.48}
	landmarks.Points[MiddleDIP] = Landmark{X: 0.50, Y: 0.40}
	landmarks.Points[MiddleTip] = Landmark{X: 0.49, Y: 0.31}

	return landmarks
}
