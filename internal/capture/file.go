package capture

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// FileCamera reads frames from a recorded video file. ReadFrame returns
// io.EOF once the file is exhausted.
type FileCamera struct {
	path    string
	capture *gocv.VideoCapture
	mu      sync.Mutex
	fps     int
	width   int
	height  int
	frames  int
}

// NewFileCamera creates a camera over the video at path.
func NewFileCamera(path string) *FileCamera {
	return &FileCamera{path: path}
}

func (c *FileCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil
	}

	if _, err := os.Stat(c.path); err != nil {
		kind := Unknown
		if errors.Is(err, fs.ErrNotExist) {
			kind = NotFound
		} else if errors.Is(err, fs.ErrPermission) {
			kind = PermissionDenied
		}
		return &Error{Kind: kind, Device: -1, Err: err}
	}

	capture, err := gocv.VideoCaptureFile(c.path)
	if err != nil {
		return &Error{Kind: Unknown, Device: -1, Err: fmt.Errorf("open %s: %w", c.path, err)}
	}

	c.capture = capture
	c.fps = int(capture.Get(gocv.VideoCaptureFPS))
	c.width = int(capture.Get(gocv.VideoCaptureFrameWidth))
	c.height = int(capture.Get(gocv.VideoCaptureFrameHeight))
	c.frames = int(capture.Get(gocv.VideoCaptureFrameCount))
	return nil
}

func (c *FileCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}
	err := c.capture.Close()
	c.capture = nil
	return err
}

func (c *FileCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, io.EOF
	}
	return &mat, nil
}

// SetFPS is a no-op; a file plays at its recorded rate.
func (c *FileCamera) SetFPS(fps int) {}

func (c *FileCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *FileCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture != nil
}

func (c *FileCamera) Resolution() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

// FrameCount returns the container's frame count, which may be an estimate.
func (c *FileCamera) FrameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}
