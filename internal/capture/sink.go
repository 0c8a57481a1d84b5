package capture

import (
	"context"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Sink is where composited frames are shown.
type Sink interface {
	// Bind attaches the sink to a stream of the given size.
	Bind(width, height int)
	// Write delivers one frame. The sink must not retain frame.
	Write(frame *gocv.Mat) error
	// Detach releases the sink from its stream.
	Detach()
}

// JPEGQuality is the encoder quality used by FrameBuffer.
const JPEGQuality = 80

// FrameBuffer is a Sink that keeps the latest frame as JPEG for streaming
// and preview readers.
type FrameBuffer struct {
	mu     sync.Mutex
	cond   *sync.Cond
	jpeg   []byte
	seq    uint64
	width  int
	height int
	bound  bool
}

// NewFrameBuffer creates an empty, unbound buffer.
func NewFrameBuffer() *FrameBuffer {
	b := &FrameBuffer{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Bind implements Sink.
func (b *FrameBuffer) Bind(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.width = width
	b.height = height
	b.bound = true
	b.cond.Broadcast()
}

// Write implements Sink.
func (b *FrameBuffer) Write(frame *gocv.Mat) error {
	if frame == nil || frame.Empty() {
		return fmt.Errorf("empty frame")
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *frame, []int{gocv.IMWriteJpegQuality, JPEGQuality})
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.bound {
		return nil
	}
	b.jpeg = data
	b.seq++
	b.cond.Broadcast()
	return nil
}

// Detach implements Sink. The last frame is dropped.
func (b *FrameBuffer) Detach() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bound = false
	b.jpeg = nil
	b.cond.Broadcast()
}

// Latest returns the newest JPEG frame and its sequence number.
// ok is false when no frame is available.
func (b *FrameBuffer) Latest() (jpeg []byte, seq uint64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.jpeg == nil {
		return nil, b.seq, false
	}
	return b.jpeg, b.seq, true
}

// Bound reports whether a stream is attached, with its size.
func (b *FrameBuffer) Bound() (width, height int, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.width, b.height, b.bound
}

// WaitNext blocks until a frame newer than after is written or ctx ends.
func (b *FrameBuffer) WaitNext(ctx context.Context, after uint64) ([]byte, uint64, error) {
	stop := context.AfterFunc(ctx, func() {
		b.mu.Lock()
		b.cond.Broadcast()
		b.mu.Unlock()
	})
	defer stop()

	b.mu.Lock()
	defer b.mu.Unlock()
	for b.jpeg == nil || b.seq <= after {
		if err := ctx.Err(); err != nil {
			return nil, after, err
		}
		b.cond.Wait()
	}
	return b.jpeg, b.seq, nil
}
