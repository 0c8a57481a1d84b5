package app

import (
	"context"
	"errors"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/yantram/internal/bulb"
	"github.com/ayusman/yantram/internal/capture"
	"github.com/ayusman/yantram/internal/detector"
	"github.com/ayusman/yantram/internal/gesture"
)

func recordedCamera(t *testing.T, n int) *capture.MockCamera {
	t.Helper()
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
		frames[i] = &m
	}
	t.Cleanup(func() {
		for _, m := range frames {
			m.Close()
		}
	})

	cam := capture.NewMockCamera(frames, false)
	if err := cam.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { cam.Close() })
	return cam
}

func TestReplay(t *testing.T) {
	cam := recordedCamera(t, 5)
	det := detector.NewFakeSource()
	open := detector.OpenPalmLandmarks()
	det.SetHand(&open)

	pipe := NewPipeline(PipelineConfig{Thresholds: gesture.DefaultThresholds()})
	defer pipe.Close()

	seen := 0
	sum, err := Replay(context.Background(), cam, det, pipe, func(frame *gocv.Mat, u Update) error {
		seen++
		if seen == 3 {
			det.SetHand(nil)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}

	if sum.Frames != 5 || seen != 5 {
		t.Fatalf("Frames = %d, callbacks = %d", sum.Frames, seen)
	}
	if sum.States[gesture.StateOpen] != 3 || sum.States[gesture.StateDetecting] != 2 {
		t.Errorf("States = %v", sum.States)
	}
	if sum.Powers[bulb.PowerFull] != 3 || sum.Powers[bulb.PowerOff] != 2 {
		t.Errorf("Powers = %v", sum.Powers)
	}
	if sum.PowerChanges != 2 {
		t.Errorf("PowerChanges = %d, want 2", sum.PowerChanges)
	}
}

func TestReplay_DetectorErrors(t *testing.T) {
	cam := recordedCamera(t, 3)
	det := detector.NewFakeSource()
	det.SetError(errors.New("model crashed"))

	pipe := NewPipeline(PipelineConfig{Thresholds: gesture.DefaultThresholds()})
	defer pipe.Close()

	sum, err := Replay(context.Background(), cam, det, pipe, nil)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if sum.DetectorErrors != 3 || sum.States[gesture.StateDetecting] != 3 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestReplay_CallbackError(t *testing.T) {
	cam := recordedCamera(t, 4)
	pipe := NewPipeline(PipelineConfig{Thresholds: gesture.DefaultThresholds()})
	defer pipe.Close()

	stop := errors.New("stop")
	sum, err := Replay(context.Background(), cam, detector.NewFakeSource(), pipe, func(*gocv.Mat, Update) error {
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("Replay() error = %v, want %v", err, stop)
	}
	if sum.Frames != 1 {
		t.Errorf("Frames = %d, want 1", sum.Frames)
	}
}

func TestReplay_Cancelled(t *testing.T) {
	cam := recordedCamera(t, 2)
	pipe := NewPipeline(PipelineConfig{Thresholds: gesture.DefaultThresholds()})
	defer pipe.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Replay(ctx, cam, detector.NewFakeSource(), pipe, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Replay() error = %v, want context.Canceled", err)
	}
}
