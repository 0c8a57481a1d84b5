package app

import (
	"context"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/yantram/internal/bulb"
	"github.com/ayusman/yantram/internal/capture"
	"github.com/ayusman/yantram/internal/detector"
	"github.com/ayusman/yantram/internal/gesture"
	"github.com/ayusman/yantram/internal/overlay"
	"github.com/ayusman/yantram/internal/theme"
)

func blankFrame(t *testing.T) gocv.Mat {
	t.Helper()
	frame := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })
	return frame
}

func TestPipeline_Process(t *testing.T) {
	sink := capture.NewFrameBuffer()
	sink.Bind(160, 120)

	p := NewPipeline(PipelineConfig{
		Thresholds: gesture.DefaultThresholds(),
		Renderer:   overlay.NewRenderer(overlay.DefaultStyle()),
		Bulb:       bulb.New(),
		Sink:       sink,
	})
	defer p.Close()

	ctx := context.Background()
	frame := blankFrame(t)
	open := detector.OpenPalmLandmarks()

	steps := []struct {
		hand    *detector.HandLandmarks
		state   gesture.HandState
		power   bulb.Power
		changed bool
	}{
		{&open, gesture.StateOpen, bulb.PowerFull, true},
		{&open, gesture.StateOpen, bulb.PowerFull, false},
		{nil, gesture.StateDetecting, bulb.PowerOff, true},
		{nil, gesture.StateDetecting, bulb.PowerOff, false},
	}

	for i, step := range steps {
		u, err := p.Process(ctx, &frame, step.hand)
		if err != nil {
			t.Fatalf("step %d: Process() error = %v", i, err)
		}
		if u.State != step.state || u.Power != step.power || u.Changed != step.changed {
			t.Errorf("step %d: update = %+v", i, u)
		}
		if u.Seq != uint64(i+1) {
			t.Errorf("step %d: Seq = %d", i, u.Seq)
		}
		if u.Status != gesture.StatusText(step.state) {
			t.Errorf("step %d: Status = %q", i, u.Status)
		}
	}

	if _, seq, ok := sink.Latest(); !ok || seq != uint64(len(steps)) {
		t.Errorf("sink seq = %d ok=%v, want %d frames", seq, ok, len(steps))
	}
}

func TestPipeline_DrawsOverlayOntoFrame(t *testing.T) {
	themes := theme.NewStore(theme.Green)
	p := NewPipeline(PipelineConfig{
		Thresholds: gesture.DefaultThresholds(),
		Renderer:   overlay.NewRenderer(overlay.DefaultStyle()),
		Themes:     themes,
	})
	defer p.Close()

	frame := blankFrame(t)
	open := detector.OpenPalmLandmarks()
	if _, err := p.Process(context.Background(), &frame, &open); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	wrist := open.Points[detector.Wrist]
	row := int(wrist.Y * float64(frame.Rows()))
	col := int(wrist.X * float64(frame.Cols()))
	px := frame.GetVecbAt(row, col)
	if px[0] == 0 && px[1] == 0 && px[2] == 0 {
		t.Error("no overlay drawn at the wrist")
	}

	// No hand leaves the frame untouched.
	empty := blankFrame(t)
	if _, err := p.Process(context.Background(), &empty, nil); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if n := gocv.CountNonZero(grayOf(t, empty)); n != 0 {
		t.Errorf("%d pixels drawn without a hand", n)
	}
}

func TestPipeline_NoRenderer(t *testing.T) {
	p := NewPipeline(PipelineConfig{Thresholds: gesture.DefaultThresholds()})
	defer p.Close()

	fist := detector.FistLandmarks()
	u, err := p.Process(context.Background(), nil, &fist)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if u.State != gesture.StateClosed || u.Power != bulb.PowerOff || u.Theme != theme.Default {
		t.Errorf("update = %+v", u)
	}
}

func grayOf(t *testing.T, m gocv.Mat) gocv.Mat {
	t.Helper()
	gray := gocv.NewMat()
	t.Cleanup(func() { gray.Close() })
	gocv.CvtColor(m, &gray, gocv.ColorBGRToGray)
	return gray
}
