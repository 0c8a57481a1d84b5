package capture

import (
	"fmt"
	"log/slog"
)

// Constraints describe the camera stream requested on enable.
type Constraints struct {
	// Device is the preferred (front-facing) device index.
	Device int `yaml:"device"`
	// FallbackDevices are tried, in order, when the preferred device is
	// missing or cannot meet the constraints.
	FallbackDevices   []int `yaml:"fallback_devices"`
	Width             int   `yaml:"width"`
	Height            int   `yaml:"height"`
	FPS               int   `yaml:"fps"`
	RequireResolution bool  `yaml:"require_resolution"`
}

// DefaultConstraints asks for device 0 at 640x480, falling back to device 1.
func DefaultConstraints() Constraints {
	return Constraints{
		Device:          0,
		FallbackDevices: []int{1},
		Width:           DefaultWidth,
		Height:          DefaultHeight,
		FPS:             DefaultFPS,
	}
}

// Opener builds a camera for a device under the given constraints.
type Opener func(device int, c Constraints) Camera

// OpenDevice is the Opener for real capture devices.
func OpenDevice(device int, c Constraints) Camera {
	return NewCamera(DeviceConfig{
		ID:                device,
		Width:             c.Width,
		Height:            c.Height,
		FPS:               c.FPS,
		RequireResolution: c.RequireResolution,
	})
}

// Acquire opens the preferred device, falling back to any listed device
// with relaxed constraints when the preferred one is NotFound or
// Overconstrained. Other failures are returned immediately. The returned
// error is always a categorized *Error.
func Acquire(c Constraints, open Opener) (Camera, error) {
	if open == nil {
		open = OpenDevice
	}

	cam := open(c.Device, c)
	firstErr := cam.Open()
	if firstErr == nil {
		return cam, nil
	}
	firstErr = categorize(c.Device, firstErr)
	if !retryable(firstErr) {
		return nil, firstErr
	}

	relaxed := c
	relaxed.RequireResolution = false
	for _, dev := range c.FallbackDevices {
		if dev == c.Device {
			continue
		}
		slog.Info("camera unavailable, trying fallback", "device", c.Device, "fallback", dev, "error", firstErr)

		cam := open(dev, relaxed)
		err := cam.Open()
		if err == nil {
			return cam, nil
		}
		err = categorize(dev, err)
		if !retryable(err) {
			return nil, err
		}
	}
	return nil, firstErr
}

func retryable(err error) bool {
	switch KindOf(err) {
	case NotFound, Overconstrained:
		return true
	default:
		return false
	}
}

func categorize(device int, err error) error {
	if _, ok := err.(*Error); ok {
		return err
	}
	return &Error{Kind: Unknown, Device: device, Err: fmt.Errorf("open: %w", err)}
}
