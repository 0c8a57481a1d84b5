// Package overlay draws the themed hand skeleton onto a frame-sized surface.
package overlay

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/yantram/internal/detector"
	"github.com/ayusman/yantram/internal/gesture"
	"github.com/ayusman/yantram/internal/theme"
)

// Edge connects two landmark indices.
type Edge [2]int

// Edges is the skeleton: four bones per finger from the wrist plus the
// palm arcs between neighbouring knuckles.
var Edges = []Edge{
	// thumb
	{0, 1}, {1, 2}, {2, 3}, {3, 4},
	// index
	{0, 5}, {5, 6}, {6, 7}, {7, 8},
	// middle
	{0, 9}, {9, 10}, {10, 11}, {11, 12},
	// ring
	{0, 13}, {13, 14}, {14, 15}, {15, 16},
	// pinky
	{0, 17}, {17, 18}, {18, 19}, {19, 20},
	// palm
	{5, 9}, {9, 13}, {13, 17},
}

// Knuckles are the anchor landmarks drawn with a larger joint.
var Knuckles = [5]int{
	detector.Wrist, detector.IndexMCP, detector.MiddleMCP, detector.RingMCP, detector.PinkyMCP,
}

// Fingertips are indexed by gesture.Finger.
var Fingertips = [gesture.NumFingers]int{
	detector.ThumbTip, detector.IndexTip, detector.MiddleTip, detector.RingTip, detector.PinkyTip,
}

// ErrEmptySurface is returned when asked to draw on an empty Mat.
var ErrEmptySurface = errors.New("empty surface")

// Style holds stroke widths and radii in pixels. Colors always come from
// the palette passed to Render.
type Style struct {
	LineWidth     int     `yaml:"line_width"`
	GlowWidth     int     `yaml:"glow_width"`
	JointRadius   int     `yaml:"joint_radius"`
	KnuckleRadius int     `yaml:"knuckle_radius"`
	TipRadius     int     `yaml:"tip_radius"`
	TipGlowRadius int     `yaml:"tip_glow_radius"`
	HaloRadius    int     `yaml:"halo_radius"`
	HaloAlpha     float64 `yaml:"halo_alpha"`
	GlowDim       float64 `yaml:"glow_dim"`
}

// DefaultStyle returns the standard overlay style.
func DefaultStyle() Style {
	return Style{
		LineWidth:     3,
		GlowWidth:     9,
		JointRadius:   4,
		KnuckleRadius: 7,
		TipRadius:     8,
		TipGlowRadius: 12,
		HaloRadius:    20,
		HaloAlpha:     0.35,
		GlowDim:       0.35,
	}
}

// Renderer draws hands. It keeps no per-frame state.
type Renderer struct {
	style Style
}

// NewRenderer creates a renderer with the given style.
func NewRenderer(style Style) *Renderer {
	return &Renderer{style: style}
}

// Style returns the renderer's style.
func (r *Renderer) Style() Style {
	return r.style
}

// Render clears surface and, when hand is non-nil, draws the skeleton in
// pal's colors. Fingertips flagged in ext get a translucent halo.
func (r *Renderer) Render(surface *gocv.Mat, hand *detector.HandLandmarks, ext gesture.Extension, pal theme.Palette) error {
	if surface == nil || surface.Empty() {
		return ErrEmptySurface
	}

	surface.SetTo(gocv.NewScalar(0, 0, 0, 0))
	if hand == nil {
		return nil
	}

	pts := project(hand, surface.Cols(), surface.Rows())
	s := r.style

	glow := dim(pal.Line, s.GlowDim)
	for _, e := range Edges {
		gocv.Line(surface, pts[e[0]], pts[e[1]], glow, s.GlowWidth)
	}
	for _, e := range Edges {
		gocv.Line(surface, pts[e[0]], pts[e[1]], pal.Line, s.LineWidth)
	}

	for i, p := range pts {
		radius := s.JointRadius
		if isKnuckle(i) {
			radius = s.KnuckleRadius
		}
		gocv.Circle(surface, p, radius, pal.Joint, -1)
	}

	tipGlow := dim(pal.Point, s.GlowDim)
	for _, idx := range Fingertips {
		gocv.Circle(surface, pts[idx], s.TipGlowRadius, tipGlow, -1)
		gocv.Circle(surface, pts[idx], s.TipRadius, pal.Point, -1)
	}

	if ext.Count() == 0 || s.HaloAlpha <= 0 {
		return nil
	}

	halo := gocv.NewMatWithSize(surface.Rows(), surface.Cols(), surface.Type())
	defer halo.Close()
	halo.SetTo(gocv.NewScalar(0, 0, 0, 0))
	for f, extended := range ext {
		if extended {
			gocv.Circle(&halo, pts[Fingertips[f]], s.HaloRadius, pal.Point, -1)
		}
	}
	gocv.AddWeighted(*surface, 1.0, halo, s.HaloAlpha, 0, surface)
	return nil
}

// Composite copies every drawn (non-black) overlay pixel onto frame.
func Composite(frame *gocv.Mat, overlay gocv.Mat) error {
	if frame == nil || frame.Empty() || overlay.Empty() {
		return ErrEmptySurface
	}
	if frame.Rows() != overlay.Rows() || frame.Cols() != overlay.Cols() {
		return fmt.Errorf("overlay is %dx%d, frame is %dx%d",
			overlay.Cols(), overlay.Rows(), frame.Cols(), frame.Rows())
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(overlay, &gray, gocv.ColorBGRToGray)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(gray, &mask, 0, 255, gocv.ThresholdBinary)

	return overlay.CopyToWithMask(frame, mask)
}

// project converts normalized landmarks to pixel coordinates.
func project(hand *detector.HandLandmarks, width, height int) [detector.NumLandmarks]image.Point {
	var pts [detector.NumLandmarks]image.Point
	for i, lm := range hand.Points {
		pts[i] = image.Pt(int(lm.X*float64(width)), int(lm.Y*float64(height)))
	}
	return pts
}

func isKnuckle(i int) bool {
	for _, k := range Knuckles {
		if k == i {
			return true
		}
	}
	return false
}

func dim(c color.RGBA, f float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * f),
		G: uint8(float64(c.G) * f),
		B: uint8(float64(c.B) * f),
		A: c.A,
	}
}
