// Package detector provides the hand landmark source abstraction and its implementations.
package detector

import "errors"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// ErrIncompleteHand is returned when a landmark set does not contain exactly 21 points.
var ErrIncompleteHand = errors.New("hand must have exactly 21 landmarks")

// Landmark is a normalized keypoint. X and Y are in [0,1] image coordinates
// (Y grows downward); Z is relative depth.
type Landmark struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
}

// HandLandmarks is a complete observation of one hand.
// A nil *HandLandmarks means no hand was observed in the frame.
type HandLandmarks struct {
	Points     [NumLandmarks]Landmark `json:"points"`
	Handedness string                 `json:"handedness"` // "Left" or "Right"
	Score      float64                `json:"score"`
}

// FromPoints builds a HandLandmarks from a slice that must hold exactly
// NumLandmarks points.
func FromPoints(points []Landmark) (*HandLandmarks, error) {
	if len(points) != NumLandmarks {
		return nil, ErrIncompleteHand
	}
	h := &HandLandmarks{}
	copy(h.Points[:], points)
	return h, nil
}
