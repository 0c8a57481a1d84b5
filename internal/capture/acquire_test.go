package capture

import (
	"errors"
	"testing"
)

// scriptedOpener hands out mock cameras whose Open fails per device.
type scriptedOpener struct {
	errs    map[int]error
	tried   []int
	relaxed []bool
	cams    map[int]*MockCamera
}

func (s *scriptedOpener) open(device int, c Constraints) Camera {
	s.tried = append(s.tried, device)
	s.relaxed = append(s.relaxed, !c.RequireResolution)
	cam := NewBlankCamera(c.Width, c.Height)
	if err := s.errs[device]; err != nil {
		cam.SetOpenError(err)
	}
	if s.cams == nil {
		s.cams = make(map[int]*MockCamera)
	}
	s.cams[device] = cam
	return cam
}

func TestAcquire(t *testing.T) {
	c := Constraints{Device: 0, FallbackDevices: []int{1, 2}, Width: 640, Height: 480, RequireResolution: true}

	t.Run("preferred device", func(t *testing.T) {
		s := &scriptedOpener{}
		cam, err := Acquire(c, s.open)
		if err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}
		if !cam.IsOpen() || len(s.tried) != 1 {
			t.Errorf("tried %v", s.tried)
		}
	})

	t.Run("falls back when not found", func(t *testing.T) {
		s := &scriptedOpener{errs: map[int]error{0: &Error{Kind: NotFound}}}
		cam, err := Acquire(c, s.open)
		if err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}
		if cam != s.cams[1] {
			t.Error("expected the fallback camera")
		}
		if !s.relaxed[1] {
			t.Error("fallback should relax the resolution requirement")
		}
	})

	t.Run("falls back when overconstrained", func(t *testing.T) {
		s := &scriptedOpener{errs: map[int]error{
			0: &Error{Kind: Overconstrained},
			1: &Error{Kind: NotFound},
		}}
		if _, err := Acquire(c, s.open); err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}
		if len(s.tried) != 3 {
			t.Errorf("tried %v, want [0 1 2]", s.tried)
		}
	})

	t.Run("permission denied is final", func(t *testing.T) {
		s := &scriptedOpener{errs: map[int]error{0: &Error{Kind: PermissionDenied}}}
		_, err := Acquire(c, s.open)
		if !errors.Is(err, ErrPermissionDenied) {
			t.Errorf("error = %v, want permission denied", err)
		}
		if len(s.tried) != 1 {
			t.Errorf("tried %v, want only the preferred device", s.tried)
		}
	})

	t.Run("fallback in use is reported", func(t *testing.T) {
		s := &scriptedOpener{errs: map[int]error{
			0: &Error{Kind: NotFound},
			1: &Error{Kind: InUse},
		}}
		_, err := Acquire(c, s.open)
		if !errors.Is(err, ErrInUse) {
			t.Errorf("error = %v, want in use", err)
		}
	})

	t.Run("all missing returns the preferred error", func(t *testing.T) {
		s := &scriptedOpener{errs: map[int]error{
			0: &Error{Kind: NotFound, Device: 0},
			1: &Error{Kind: NotFound, Device: 1},
			2: &Error{Kind: NotFound, Device: 2},
		}}
		_, err := Acquire(c, s.open)
		var ce *Error
		if !errors.As(err, &ce) || ce.Device != 0 || ce.Kind != NotFound {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("uncategorized errors become unknown", func(t *testing.T) {
		s := &scriptedOpener{errs: map[int]error{0: errors.New("driver crashed")}}
		_, err := Acquire(c, s.open)
		if !errors.Is(err, ErrUnknown) {
			t.Errorf("error = %v, want unknown", err)
		}
	})
}
