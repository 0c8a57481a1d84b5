package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ayusman/yantram/internal/app"
	"github.com/ayusman/yantram/internal/bulb"
	"github.com/ayusman/yantram/internal/gesture"
)

func TestPrintSummary(t *testing.T) {
	sum := app.ReplaySummary{
		Frames:       4,
		PowerChanges: 2,
		States:       map[gesture.HandState]int{gesture.StateOpen: 3, gesture.StateDetecting: 1},
		Powers:       map[bulb.Power]int{bulb.PowerFull: 3, bulb.PowerOff: 1},
	}

	var buf bytes.Buffer
	printSummary(&buf, "clip.mp4", sum)
	out := buf.String()

	for _, want := range []string{
		"clip.mp4: 4 frames, 0 detector errors, 2 power changes",
		"open            3   75.0%",
		"half-open       0    0.0%",
		"full            3   75.0%",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestPercent(t *testing.T) {
	if got := percent(1, 0); got != 0 {
		t.Errorf("percent(1, 0) = %v", got)
	}
	if got := percent(1, 4); got != 25 {
		t.Errorf("percent(1, 4) = %v", got)
	}
}

func TestDashboardURL(t *testing.T) {
	tests := map[string]string{
		":8420":          "http://127.0.0.1:8420/",
		"127.0.0.1:8420": "http://127.0.0.1:8420/",
		"0.0.0.0:80":     "http://0.0.0.0:80/",
	}
	for addr, want := range tests {
		if got := dashboardURL(addr); got != want {
			t.Errorf("dashboardURL(%q) = %q, want %q", addr, got, want)
		}
	}
}
