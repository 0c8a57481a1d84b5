package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/ayusman/yantram/internal/detector"
)

// DefaultRefreshInterval paces the frame loop at a 60 Hz display refresh.
const DefaultRefreshInterval = time.Second / 60

// maxReadFailures is how many consecutive failed reads end a session.
const maxReadFailures = 30

// Refresher schedules the next frame. Wait blocks until the next refresh
// or until ctx is done.
type Refresher interface {
	Wait(ctx context.Context) error
	Stop()
}

// TickerRefresher is a Refresher backed by a time.Ticker. Ticks that fire
// while the loop is busy are coalesced into one.
type TickerRefresher struct {
	ticker *time.Ticker
}

// NewTickerRefresher creates a refresher ticking every interval.
func NewTickerRefresher(interval time.Duration) *TickerRefresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &TickerRefresher{ticker: time.NewTicker(interval)}
}

// Wait implements Refresher.
func (r *TickerRefresher) Wait(ctx context.Context) error {
	select {
	case <-r.ticker.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop implements Refresher.
func (r *TickerRefresher) Stop() {
	r.ticker.Stop()
}

// run is the frame loop of one session. Each iteration waits for the
// refresh, reads a frame, and awaits the detector result before the next
// frame is read, so at most one submission is in flight.
func (c *Controller) run(ctx context.Context, s *session, det detector.Source, pipe *Pipeline) {
	defer close(s.done)
	defer pipe.Close()

	refresh := c.cfg.Refresh()
	defer refresh.Stop()

	readFailures := 0
	for s.active.Load() {
		if err := refresh.Wait(ctx); err != nil {
			return
		}
		if !s.active.Load() {
			return
		}

		frame, err := s.cam.ReadFrame()
		if err != nil {
			readFailures++
			slog.Debug("frame read failed", "session_id", s.id, "error", err)
			if readFailures >= maxReadFailures {
				slog.Error("camera stopped delivering frames", "session_id", s.id, "error", err)
				go c.endSession(s, EndCameraLost)
				return
			}
			continue
		}
		readFailures = 0

		var res detector.Result
		select {
		case res = <-det.Submit(frame):
		case <-ctx.Done():
			frame.Close()
			return
		}

		// A result that lands after Stop is dropped.
		if !s.active.Load() {
			frame.Close()
			return
		}

		if res.Err != nil {
			s.detectorErrors.Add(1)
			slog.Warn("hand detection failed", "session_id", s.id, "error", res.Err)
			res.Hand = nil
		}

		u, err := pipe.Process(ctx, frame, res.Hand)
		frame.Close()
		if err != nil {
			slog.Warn("frame processing failed", "session_id", s.id, "error", err)
		}
		s.frames.Add(1)
		c.publish(s, u)
	}
}
