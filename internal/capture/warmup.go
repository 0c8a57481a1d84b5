package capture

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultWarmupTimeout bounds how long a freshly opened camera may take to
// deliver its first frame.
const DefaultWarmupTimeout = 5 * time.Second

// warmupPoll is the delay between empty reads during warm-up.
var warmupPoll = 20 * time.Millisecond

// WaitReady blocks until cam delivers a non-empty frame, then reports the
// frame size. It is the point at which a stream counts as playable.
func WaitReady(ctx context.Context, cam Camera, timeout time.Duration) (width, height int, err error) {
	if timeout <= 0 {
		timeout = DefaultWarmupTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	attempts := 0
	var lastErr error

	for {
		attempts++
		frame, err := cam.ReadFrame()
		if err == nil {
			width, height = frame.Cols(), frame.Rows()
			frame.Close()
			slog.Debug("camera ready",
				"attempts", attempts,
				"elapsed_ms", time.Since(start).Milliseconds(),
				"width", width,
				"height", height,
			)
			return width, height, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return 0, 0, fmt.Errorf("camera not ready after %d attempts: %w", attempts, lastErr)
		case <-time.After(warmupPoll):
		}
	}
}
