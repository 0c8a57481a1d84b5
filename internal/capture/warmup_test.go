package capture

import (
	"context"
	"testing"
	"time"
)

func TestWaitReady(t *testing.T) {
	cam := NewBlankCamera(320, 240)
	cam.Open()
	defer cam.Close()

	w, h, err := WaitReady(context.Background(), cam, time.Second)
	if err != nil {
		t.Fatalf("WaitReady() error = %v", err)
	}
	if w != 320 || h != 240 {
		t.Errorf("WaitReady() = %dx%d", w, h)
	}
}

func TestWaitReady_Timeout(t *testing.T) {
	// Never opened, so every read fails.
	cam := NewBlankCamera(320, 240)

	start := time.Now()
	_, _, err := WaitReady(context.Background(), cam, 100*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("WaitReady did not honor its timeout")
	}
}

func TestWaitReady_Cancelled(t *testing.T) {
	cam := NewBlankCamera(320, 240)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := WaitReady(ctx, cam, time.Minute); err == nil {
		t.Error("expected error for cancelled context")
	}
}
