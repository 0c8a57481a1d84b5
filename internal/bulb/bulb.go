// Package bulb derives the simulated smart-bulb power from the hand state
// and forwards power changes to pluggable outputs.
package bulb

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/yantram/internal/gesture"
)

// Power is the bulb output level.
type Power string

const (
	PowerOff  Power = "off"
	PowerHalf Power = "half"
	PowerFull Power = "full"
)

// PowerFor maps a hand state to bulb power. Every state has a defined power;
// anything other than Open or HalfOpen turns the bulb off.
func PowerFor(s gesture.HandState) Power {
	switch s {
	case gesture.StateOpen:
		return PowerFull
	case gesture.StateHalfOpen:
		return PowerHalf
	default:
		return PowerOff
	}
}

// Percent returns the brightness shown for p.
func (p Power) Percent() int {
	switch p {
	case PowerFull:
		return 100
	case PowerHalf:
		return 50
	default:
		return 0
	}
}

// State is what the bulb reports to its outputs.
type State struct {
	Power     Power             `json:"power"`
	Level     int               `json:"level"`
	HandState gesture.HandState `json:"state"`
	Fingers   int               `json:"fingers"`
	Timestamp time.Time         `json:"ts"`
}

// StateFor builds the bulb state for a classified frame.
func StateFor(r gesture.Reading, ts time.Time) State {
	p := PowerFor(r.State)
	return State{
		Power:     p,
		Level:     p.Percent(),
		HandState: r.State,
		Fingers:   r.Fingers,
		Timestamp: ts,
	}
}

// Output receives bulb power changes.
type Output interface {
	Name() string
	Send(ctx context.Context, s State) error
}

// DefaultOutputTimeout bounds a single output delivery.
const DefaultOutputTimeout = 2 * time.Second

// Bulb is the simulated device. It remembers the last applied power and
// notifies outputs only when the power changes.
type Bulb struct {
	mu      sync.Mutex
	outputs []Output
	state   State
	timeout time.Duration
	now     func() time.Time
}

// New creates a bulb that starts off.
func New(outputs ...Output) *Bulb {
	return &Bulb{
		outputs: outputs,
		state:   State{Power: PowerOff, HandState: gesture.StateDetecting},
		timeout: DefaultOutputTimeout,
		now:     time.Now,
	}
}

// AddOutput registers another output.
func (b *Bulb) AddOutput(o Output) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outputs = append(b.outputs, o)
}

// State returns the last applied state.
func (b *Bulb) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Apply records the reading and reports whether the power changed.
// Output failures are logged; they never fail Apply.
func (b *Bulb) Apply(ctx context.Context, r gesture.Reading) (State, bool) {
	b.mu.Lock()
	next := StateFor(r, b.now())
	changed := next.Power != b.state.Power
	b.state = next
	outputs := append([]Output(nil), b.outputs...)
	timeout := b.timeout
	b.mu.Unlock()

	if !changed {
		return next, false
	}

	slog.Debug("bulb power changed", "power", next.Power, "state", next.HandState, "fingers", next.Fingers)

	for _, o := range outputs {
		octx, cancel := context.WithTimeout(ctx, timeout)
		if err := o.Send(octx, next); err != nil {
			slog.Warn("bulb output failed", "output", o.Name(), "power", next.Power, "error", err)
		}
		cancel()
	}
	return next, true
}

// Reset turns the bulb off as if no hand were observed.
func (b *Bulb) Reset(ctx context.Context) State {
	s, _ := b.Apply(ctx, gesture.Reading{State: gesture.StateDetecting})
	return s
}
