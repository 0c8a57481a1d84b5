package capture

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
)

// ErrorKind categorizes a camera acquisition failure.
type ErrorKind int

const (
	Unknown ErrorKind = iota
	PermissionDenied
	NotFound
	InUse
	Overconstrained
)

func (k ErrorKind) String() string {
	switch k {
	case PermissionDenied:
		return "permission denied"
	case NotFound:
		return "not found"
	case InUse:
		return "in use"
	case Overconstrained:
		return "overconstrained"
	default:
		return "unknown"
	}
}

// Error is a categorized camera acquisition failure.
type Error struct {
	Kind   ErrorKind
	Device int
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("camera %d: %s", e.Device, e.Kind)
	}
	return fmt.Sprintf("camera %d: %s: %v", e.Device, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, ErrNotFound)
// works regardless of device.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrPermissionDenied = &Error{Kind: PermissionDenied}
	ErrNotFound         = &Error{Kind: NotFound}
	ErrInUse            = &Error{Kind: InUse}
	ErrOverconstrained  = &Error{Kind: Overconstrained}
	ErrUnknown          = &Error{Kind: Unknown}
)

// KindOf returns the Kind of a categorized error, or Unknown.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return Unknown
}

// devicePath returns the OS node probed to explain an open failure.
var devicePath = func(id int) string {
	return fmt.Sprintf("/dev/video%d", id)
}

// classifyOpenError explains an OpenCV open failure by probing the device
// node directly, since OpenCV reports every failure the same way.
func classifyOpenError(id int, cause error) *Error {
	f, err := os.OpenFile(devicePath(id), os.O_RDWR, 0)
	if err == nil {
		f.Close()
		return &Error{Kind: Unknown, Device: id, Err: cause}
	}
	return &Error{Kind: kindFromSyscall(err), Device: id, Err: cause}
}

func kindFromSyscall(err error) ErrorKind {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return NotFound
	case errors.Is(err, fs.ErrPermission):
		return PermissionDenied
	case errors.Is(err, syscall.EBUSY):
		return InUse
	default:
		return Unknown
	}
}
