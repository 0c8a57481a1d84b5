// Package capture provides camera capture functionality using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 30
	DefaultWidth  = 640
	DefaultHeight = 480
)

// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
var ErrCameraNotOpen = errors.New("camera is not open")

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
	// Resolution reports the negotiated frame size, or zeros before Open.
	Resolution() (width, height int)
}

// DeviceConfig describes the stream requested from a capture device.
type DeviceConfig struct {
	ID     int
	Width  int
	Height int
	FPS    int
	// RequireResolution fails Open with Overconstrained when the device
	// cannot deliver Width x Height exactly.
	RequireResolution bool
}

// cameraImpl manages video capture from a camera device using GoCV.
type cameraImpl struct {
	cfg     DeviceConfig
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	fps     int
	width   int
	height  int
}

// NewCamera creates a new Camera for the given device. Zero values in cfg
// fall back to 640x480 at 30 FPS.
func NewCamera(cfg DeviceConfig) Camera {
	if cfg.Width <= 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultHeight
	}
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultFPS
	}
	return &cameraImpl{
		cfg: cfg,
		fps: cfg.FPS,
	}
}

// Open opens the camera and negotiates the requested resolution.
// Failures are returned as *Error with a categorized Kind.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.cfg.ID)
	if err != nil {
		return classifyOpenError(c.cfg.ID, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return classifyOpenError(c.cfg.ID, errors.New("device did not open"))
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.cfg.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.cfg.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(c.fps))

	width := int(capture.Get(gocv.VideoCaptureFrameWidth))
	height := int(capture.Get(gocv.VideoCaptureFrameHeight))
	if c.cfg.RequireResolution && (width != c.cfg.Width || height != c.cfg.Height) {
		capture.Close()
		return &Error{
			Kind:   Overconstrained,
			Device: c.cfg.ID,
			Err:    fmt.Errorf("requested %dx%d, device offers %dx%d", c.cfg.Width, c.cfg.Height, width, height),
		}
	}

	c.capture = capture
	c.width = width
	c.height = height
	c.running = true

	return nil
}

// Close closes the camera and releases resources.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads a single frame from the camera.
// The caller is responsible for closing the returned Mat.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, errors.New("failed to read frame from camera")
	}

	if mat.Empty() {
		mat.Close()
		return nil, errors.New("captured frame is empty")
	}

	return &mat, nil
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (c *cameraImpl) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps

	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fps
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}

// Resolution returns the frame size negotiated by Open.
func (c *cameraImpl) Resolution() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.width, c.height
}

// Device returns the device index this camera opens.
func (c *cameraImpl) Device() int {
	return c.cfg.ID
}
