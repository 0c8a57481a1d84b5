package main

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	tests := []struct {
		level int
		gauge string
	}{
		{0, "[----------]"},
		{50, "[#####-----]"},
		{100, "[##########]"},
		{250, "[##########]"},
	}

	for _, tt := range tests {
		got := render(Request{Power: "half", Level: tt.level, State: "half-open", Fingers: 3}, 10)
		if !strings.Contains(got, tt.gauge) {
			t.Errorf("render(level=%d) = %q, want gauge %s", tt.level, got, tt.gauge)
		}
	}
}
