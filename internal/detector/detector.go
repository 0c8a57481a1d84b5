package detector

import "gocv.io/x/gocv"

// Source is a capability that turns video frames into hand observations.
type Source interface {
	// Configure applies detection options. It may be called before the
	// first Submit or between frames.
	Configure(opts Options) error

	// Submit hands a frame to the detector. The returned channel resolves
	// exactly once and is buffered, so an abandoned result never blocks the
	// detector. Implementations must not retain frame after Submit returns.
	Submit(frame *gocv.Mat) <-chan Result

	// Close releases any resources held by the detector.
	Close() error
}

// Result is the single outcome of a submitted frame.
// Hand is nil when no hand was observed.
type Result struct {
	Hand *HandLandmarks
	Err  error
}

// Options holds configuration options for hand detection.
type Options struct {
	// MaxHands is the maximum number of hands to detect.
	MaxHands int `yaml:"max_hands" msgpack:"max_hands"`
	// ModelComplexity selects the landmark model (0 lite, 1 full).
	ModelComplexity int `yaml:"model_complexity" msgpack:"model_complexity"`
	// MinDetectionConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinDetectionConfidence float64 `yaml:"min_detection_confidence" msgpack:"min_detection_confidence"`
	// MinTrackingConfidence is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConfidence float64 `yaml:"min_tracking_confidence" msgpack:"min_tracking_confidence"`
}

// DefaultOptions returns the options used by the single-hand pipeline.
func DefaultOptions() Options {
	return Options{
		MaxHands:               1,
		ModelComplexity:        1,
		MinDetectionConfidence: 0.5,
		MinTrackingConfidence:  0.5,
	}
}

// resolved returns a channel already holding r.
func resolved(r Result) <-chan Result {
	ch := make(chan Result, 1)
	ch <- r
	return ch
}
