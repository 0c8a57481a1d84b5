package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gocv.io/x/gocv"

	"github.com/ayusman/yantram/internal/bulb"
	"github.com/ayusman/yantram/internal/capture"
	"github.com/ayusman/yantram/internal/detector"
	"github.com/ayusman/yantram/internal/gesture"
)

// ReplaySummary counts what a replay saw.
type ReplaySummary struct {
	Frames         int                       `json:"frames"`
	DetectorErrors int                       `json:"detector_errors"`
	PowerChanges   int                       `json:"power_changes"`
	States         map[gesture.HandState]int `json:"states"`
	Powers         map[bulb.Power]int        `json:"powers"`
}

// FrameFunc is called after each replayed frame has been processed. The
// frame holds the composited overlay and is closed when the call returns.
type FrameFunc func(frame *gocv.Mat, u Update) error

// Replay feeds every frame of an opened camera through det and pipe, one
// detection at a time, until the camera reports io.EOF or ctx is done.
func Replay(ctx context.Context, cam capture.Camera, det detector.Source, pipe *Pipeline, onFrame FrameFunc) (ReplaySummary, error) {
	sum := ReplaySummary{
		States: make(map[gesture.HandState]int),
		Powers: make(map[bulb.Power]int),
	}

	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		frame, err := cam.ReadFrame()
		if errors.Is(err, io.EOF) {
			return sum, nil
		}
		if err != nil {
			return sum, fmt.Errorf("read frame %d: %w", sum.Frames, err)
		}

		var res detector.Result
		select {
		case res = <-det.Submit(frame):
		case <-ctx.Done():
			frame.Close()
			return sum, ctx.Err()
		}
		if res.Err != nil {
			sum.DetectorErrors++
			res.Hand = nil
		}

		u, err := pipe.Process(ctx, frame, res.Hand)
		if err != nil {
			frame.Close()
			return sum, fmt.Errorf("process frame %d: %w", sum.Frames, err)
		}

		sum.Frames++
		sum.States[u.State]++
		sum.Powers[u.Power]++
		if u.Changed {
			sum.PowerChanges++
		}

		if onFrame != nil {
			err = onFrame(frame, u)
		}
		frame.Close()
		if err != nil {
			return sum, err
		}
	}
}
