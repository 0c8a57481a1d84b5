// Package gesture classifies hand landmarks into a discrete openness state.
//
// Classification is stateless: every frame is judged on its own landmarks,
// so the state drops to Detecting the moment a hand leaves the frame.
package gesture

import (
	"math"

	"github.com/ayusman/yantram/internal/detector"
)

// HandState is the discrete openness of the observed hand.
type HandState string

const (
	// StateDetecting means no hand is in the current frame.
	StateDetecting HandState = "detecting"
	// StateOpen means four or five fingers are extended.
	StateOpen HandState = "open"
	// StateHalfOpen means two or three fingers are extended.
	StateHalfOpen HandState = "half-open"
	// StateClosed means fewer than two fingers are extended.
	StateClosed HandState = "closed"
	// StateError means the camera could not be used.
	StateError HandState = "error"
)

// Finger identifies one of the five fingers.
type Finger int

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
	NumFingers = 5
)

var fingerNames = [NumFingers]string{"thumb", "index", "middle", "ring", "pinky"}

func (f Finger) String() string {
	if f < 0 || f >= NumFingers {
		return "unknown"
	}
	return fingerNames[f]
}

// tipAndPIP maps each non-thumb finger to its tip and PIP landmark indices.
var tipAndPIP = [NumFingers][2]int{
	Index:  {detector.IndexTip, detector.IndexPIP},
	Middle: {detector.MiddleTip, detector.MiddlePIP},
	Ring:   {detector.RingTip, detector.RingPIP},
	Pinky:  {detector.PinkyTip, detector.PinkyPIP},
}

// Thresholds holds the geometric limits used to judge extension. Both
// comparisons are strict and use no tolerance, so a point exactly on a limit
// counts as not extended.
type Thresholds struct {
	// ThumbWrist is the planar wrist-to-thumb-tip distance above which the
	// thumb counts as extended.
	ThumbWrist float64 `yaml:"thumb_wrist"`
	// TipMargin is how far (in normalized Y) a fingertip must sit above its
	// PIP joint to count as extended.
	TipMargin float64 `yaml:"tip_margin"`
}

// DefaultThresholds returns the thresholds tuned for an upright, front-facing hand.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ThumbWrist: 0.15,
		TipMargin:  0.05,
	}
}

// Extension holds one extended flag per finger, indexed by Finger.
type Extension [NumFingers]bool

// Count returns the number of extended fingers, in [0,5].
func (e Extension) Count() int {
	n := 0
	for _, extended := range e {
		if extended {
			n++
		}
	}
	return n
}

// Reading is the classification of a single frame.
type Reading struct {
	State    HandState `json:"state"`
	Fingers  int       `json:"fingers"`
	Extended Extension `json:"extended"`
}

// IsFingerExtended reports whether finger f is extended.
//
// The thumb is judged by its planar distance from the wrist; the other
// fingers by whether the tip sits above the PIP joint by at least
// TipMargin. Neither test corrects for hand rotation or handedness.
func (t Thresholds) IsFingerExtended(hand *detector.HandLandmarks, f Finger) bool {
	if hand == nil || f < 0 || f >= NumFingers {
		return false
	}

	if f == Thumb {
		wrist := hand.Points[detector.Wrist]
		tip := hand.Points[detector.ThumbTip]
		return math.Hypot(tip.X-wrist.X, tip.Y-wrist.Y) > t.ThumbWrist
	}

	idx := tipAndPIP[f]
	tip := hand.Points[idx[0]]
	pip := hand.Points[idx[1]]
	return tip.Y < pip.Y-t.TipMargin
}

// Extensions evaluates all five fingers.
func (t Thresholds) Extensions(hand *detector.HandLandmarks) Extension {
	var e Extension
	if hand == nil {
		return e
	}
	for f := Thumb; f < NumFingers; f++ {
		e[f] = t.IsFingerExtended(hand, f)
	}
	return e
}

// ClassifyHand classifies a frame's observation. A nil hand yields Detecting.
func (t Thresholds) ClassifyHand(hand *detector.HandLandmarks) Reading {
	if hand == nil {
		return Reading{State: StateDetecting}
	}
	e := t.Extensions(hand)
	n := e.Count()
	return Reading{
		State:    Classify(n),
		Fingers:  n,
		Extended: e,
	}
}

// IsFingerExtended applies DefaultThresholds.
func IsFingerExtended(hand *detector.HandLandmarks, f Finger) bool {
	return DefaultThresholds().IsFingerExtended(hand, f)
}

// FingerCount returns the number of extended fingers under DefaultThresholds.
func FingerCount(hand *detector.HandLandmarks) int {
	return DefaultThresholds().Extensions(hand).Count()
}

// ClassifyHand applies DefaultThresholds.
func ClassifyHand(hand *detector.HandLandmarks) Reading {
	return DefaultThresholds().ClassifyHand(hand)
}

// Classify maps a finger count to a hand state.
func Classify(fingers int) HandState {
	switch {
	case fingers >= 4:
		return StateOpen
	case fingers >= 2:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// StatusText returns the user-facing description of a hand state.
func StatusText(s HandState) string {
	switch s {
	case StateOpen:
		return "Hand Open - Bulb at Full Power"
	case StateHalfOpen:
		return "Hand Half Open - Bulb at Half Power"
	case StateClosed:
		return "Hand Closed - Bulb Off"
	case StateDetecting:
		return "Wave your hand in front of the camera"
	case StateError:
		return "Camera access error. Please check permissions."
	default:
		return "Initializing..."
	}
}
