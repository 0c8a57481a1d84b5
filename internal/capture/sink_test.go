package capture

import (
	"bytes"
	"context"
	"testing"
	"time"

	"gocv.io/x/gocv"
)

func TestFrameBuffer(t *testing.T) {
	buf := NewFrameBuffer()
	frame := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer frame.Close()

	// Frames written before Bind are dropped.
	if err := buf.Write(&frame); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if _, _, ok := buf.Latest(); ok {
		t.Error("unbound buffer should not hold frames")
	}

	buf.Bind(160, 120)
	if w, h, ok := buf.Bound(); !ok || w != 160 || h != 120 {
		t.Errorf("Bound() = %d, %d, %v", w, h, ok)
	}

	if err := buf.Write(&frame); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	jpeg, seq, ok := buf.Latest()
	if !ok || seq != 1 {
		t.Fatalf("Latest() seq = %d, ok = %v", seq, ok)
	}
	if !bytes.HasPrefix(jpeg, []byte{0xff, 0xd8}) {
		t.Error("frame is not a JPEG")
	}

	buf.Detach()
	if _, _, ok := buf.Latest(); ok {
		t.Error("detached buffer should not hold frames")
	}
}

func TestFrameBuffer_WaitNext(t *testing.T) {
	buf := NewFrameBuffer()
	buf.Bind(160, 120)
	frame := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer frame.Close()

	done := make(chan uint64, 1)
	go func() {
		_, seq, err := buf.WaitNext(context.Background(), 0)
		if err != nil {
			t.Errorf("WaitNext() error = %v", err)
		}
		done <- seq
	}()

	time.Sleep(20 * time.Millisecond)
	buf.Write(&frame)

	select {
	case seq := <-done:
		if seq != 1 {
			t.Errorf("seq = %d, want 1", seq)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitNext did not wake on Write")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, _, err := buf.WaitNext(ctx, 1); err == nil {
		t.Error("expected context error with no newer frame")
	}
}

func TestFrameBuffer_RejectsEmpty(t *testing.T) {
	buf := NewFrameBuffer()
	empty := gocv.NewMat()
	defer empty.Close()
	if err := buf.Write(&empty); err == nil {
		t.Error("expected error for empty frame")
	}
}
