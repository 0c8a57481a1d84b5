package capture

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"testing"
)

func TestError_Is(t *testing.T) {
	err := fmt.Errorf("start session: %w", &Error{Kind: InUse, Device: 2, Err: errors.New("busy")})

	if !errors.Is(err, ErrInUse) {
		t.Error("expected errors.Is(err, ErrInUse)")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("did not expect errors.Is(err, ErrNotFound)")
	}
	if KindOf(err) != InUse {
		t.Errorf("KindOf() = %s, want in use", KindOf(err))
	}
	if KindOf(errors.New("plain")) != Unknown {
		t.Error("plain errors should be Unknown")
	}
}

func TestKindFromSyscall(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"missing node", &fs.PathError{Op: "open", Path: "/dev/video9", Err: syscall.ENOENT}, NotFound},
		{"no access", &fs.PathError{Op: "open", Path: "/dev/video0", Err: syscall.EACCES}, PermissionDenied},
		{"busy", &fs.PathError{Op: "open", Path: "/dev/video0", Err: syscall.EBUSY}, InUse},
		{"other", errors.New("ioctl failed"), Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := kindFromSyscall(tt.err); got != tt.want {
				t.Errorf("kindFromSyscall() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyOpenError(t *testing.T) {
	dir := t.TempDir()
	orig := devicePath
	devicePath = func(id int) string { return filepath.Join(dir, fmt.Sprintf("video%d", id)) }
	t.Cleanup(func() { devicePath = orig })

	cause := errors.New("opencv: can't open camera by index")

	err := classifyOpenError(3, cause)
	if err.Kind != NotFound || err.Device != 3 {
		t.Errorf("missing node: %+v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("cause should be wrapped")
	}

	if e := os.WriteFile(filepath.Join(dir, "video4"), nil, 0644); e != nil {
		t.Fatal(e)
	}
	if err := classifyOpenError(4, cause); err.Kind != Unknown {
		t.Errorf("accessible node: kind = %s, want unknown", err.Kind)
	}
}
