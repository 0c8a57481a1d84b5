package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ayusman/yantram/internal/theme"
)

var instanceIDPattern = regexp.MustCompile(`^[a-z0-9\-]+$`)

// Validate checks the configuration and fills derived defaults in place
func Validate(cfg *Config) error {
	if cfg.InstanceID == "" {
		return fmt.Errorf("instance_id is required")
	}
	if !instanceIDPattern.MatchString(cfg.InstanceID) {
		return fmt.Errorf("instance_id must match pattern [a-z0-9-]+")
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("data_dir not set and home directory unknown: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".yantram")
	} else if strings.HasPrefix(cfg.DataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("expand data_dir: %w", err)
		}
		cfg.DataDir = filepath.Join(home, cfg.DataDir[2:])
	}

	if _, err := theme.Parse(cfg.Theme); err != nil {
		return fmt.Errorf("theme: %w", err)
	}

	if cfg.RefreshHz <= 0 || cfg.RefreshHz > 240 {
		return fmt.Errorf("refresh_hz must be in 1..240, got %d", cfg.RefreshHz)
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:8420"
	}

	if err := validateCamera(cfg); err != nil {
		return fmt.Errorf("camera: %w", err)
	}

	if cfg.Detector.Options.MaxHands < 1 {
		return fmt.Errorf("detector.options.max_hands must be >= 1")
	}
	for name, v := range map[string]float64{
		"min_detection_confidence": cfg.Detector.Options.MinDetectionConfidence,
		"min_tracking_confidence":  cfg.Detector.Options.MinTrackingConfidence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("detector.options.%s must be in [0,1], got %g", name, v)
		}
	}

	if cfg.Gesture.ThumbWrist <= 0 || cfg.Gesture.TipMargin < 0 {
		return fmt.Errorf("gesture thresholds must be positive")
	}

	if cfg.Overlay.HaloAlpha < 0 || cfg.Overlay.HaloAlpha > 1 {
		return fmt.Errorf("overlay.halo_alpha must be in [0,1]")
	}

	if cfg.MQTT.Enabled {
		if cfg.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
		}
		if cfg.MQTT.Topic == "" {
			cfg.MQTT.Topic = fmt.Sprintf("yantram/bulb/%s/state", cfg.InstanceID)
		}
		if cfg.MQTT.ClientID == "" {
			cfg.MQTT.ClientID = "yantram-" + cfg.InstanceID
		}
		if cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
		}
	}

	if cfg.Plugins.Dir == "" {
		cfg.Plugins.Dir = filepath.Join(cfg.DataDir, "plugins")
	}
	if cfg.Plugins.TimeoutMs <= 0 {
		cfg.Plugins.TimeoutMs = 2000
	}

	return nil
}

func validateCamera(cfg *Config) error {
	c := &cfg.Camera
	if c.Device < 0 {
		return fmt.Errorf("device must be >= 0")
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("width and height must be > 0")
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be > 0")
	}
	if c.WarmupTimeoutS <= 0 {
		c.WarmupTimeoutS = 5
	}
	return nil
}
