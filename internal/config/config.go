// Package config loads the yantram YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/yantram/internal/bulb"
	"github.com/ayusman/yantram/internal/capture"
	"github.com/ayusman/yantram/internal/detector"
	"github.com/ayusman/yantram/internal/gesture"
	"github.com/ayusman/yantram/internal/overlay"
	"github.com/ayusman/yantram/internal/theme"
)

// Config represents the complete yantram configuration
type Config struct {
	InstanceID string             `yaml:"instance_id"`
	DataDir    string             `yaml:"data_dir"`
	Theme      string             `yaml:"theme"`
	RefreshHz  int                `yaml:"refresh_hz"` // frame loop pacing, normally the display refresh rate
	Server     ServerConfig       `yaml:"server"`
	Camera     CameraConfig       `yaml:"camera"`
	Detector   DetectorConfig     `yaml:"detector"`
	Gesture    gesture.Thresholds `yaml:"gesture"`
	Overlay    overlay.Style      `yaml:"overlay"`
	MQTT       MQTTConfig         `yaml:"mqtt"`
	Plugins    PluginsConfig      `yaml:"plugins"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// CameraConfig contains capture settings
type CameraConfig struct {
	capture.Constraints `yaml:",inline"`
	WarmupTimeoutS      float64 `yaml:"warmup_timeout_s"`
}

// DetectorConfig locates the hands service and tunes the model
type DetectorConfig struct {
	Script       string           `yaml:"script"`
	Python       string           `yaml:"python"`
	IdleTimeoutS int              `yaml:"idle_timeout_s"`
	Options      detector.Options `yaml:"options"`
}

// MQTTConfig contains the optional MQTT bulb output
type MQTTConfig struct {
	Enabled         bool `yaml:"enabled"`
	bulb.MQTTConfig `yaml:",inline"`
}

// PluginsConfig selects bulb driver plugins
type PluginsConfig struct {
	Dir       string                    `yaml:"dir"`
	Enabled   []string                  `yaml:"enabled"`
	TimeoutMs int                       `yaml:"timeout_ms"`
	Settings  map[string]map[string]any `yaml:"settings"` // per-plugin config, passed through as JSON
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		InstanceID: "default",
		Theme:      string(theme.Default),
		RefreshHz:  60,
		Server: ServerConfig{
			Addr: "127.0.0.1:8420",
		},
		Camera: CameraConfig{
			Constraints:    capture.DefaultConstraints(),
			WarmupTimeoutS: capture.DefaultWarmupTimeout.Seconds(),
		},
		Detector: DetectorConfig{
			IdleTimeoutS: int(detector.DefaultIdleTimeout.Seconds()),
			Options:      detector.DefaultOptions(),
		},
		Gesture: gesture.DefaultThresholds(),
		Overlay: overlay.DefaultStyle(),
		MQTT: MQTTConfig{
			MQTTConfig: bulb.MQTTConfig{QoS: 1, Retain: true},
		},
		Plugins: PluginsConfig{
			TimeoutMs: 2000,
		},
	}
}

// Load reads a YAML configuration file over the defaults. An empty path
// returns the validated defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DBPath returns the SQLite database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "yantram.db")
}

// WarmupTimeout returns the camera warm-up timeout.
func (c *Config) WarmupTimeout() time.Duration {
	return time.Duration(c.Camera.WarmupTimeoutS * float64(time.Second))
}

// RefreshInterval returns the frame loop tick interval.
func (c *Config) RefreshInterval() time.Duration {
	return time.Second / time.Duration(c.RefreshHz)
}

// PluginTimeout returns the per-call plugin timeout.
func (c *Config) PluginTimeout() time.Duration {
	return time.Duration(c.Plugins.TimeoutMs) * time.Millisecond
}
