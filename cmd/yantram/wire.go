package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ayusman/yantram/internal/app"
	"github.com/ayusman/yantram/internal/bulb"
	"github.com/ayusman/yantram/internal/capture"
	"github.com/ayusman/yantram/internal/config"
	"github.com/ayusman/yantram/internal/detector"
	"github.com/ayusman/yantram/internal/overlay"
	"github.com/ayusman/yantram/internal/plugin"
	"github.com/ayusman/yantram/internal/store"
	"github.com/ayusman/yantram/internal/theme"
)

// services holds everything a long-running command needs.
type services struct {
	store  *store.Store
	themes *theme.Store
	bulb   *bulb.Bulb
	mqtt   *bulb.MQTTOutput
	frames *capture.FrameBuffer
	ctrl   *app.Controller

	unsubscribe func()
}

// buildServices opens the store and assembles the bulb outputs and the
// capture controller from cfg.
func buildServices(ctx context.Context, cfg *config.Config) (*services, error) {
	st, err := store.New(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	svc := &services{
		store:  st,
		themes: theme.NewStore(loadTheme(st, cfg)),
		frames: capture.NewFrameBuffer(),
	}

	settings := st.Settings()
	svc.unsubscribe = svc.themes.Subscribe(func(t theme.Theme) {
		if err := settings.Set(store.SettingTheme, string(t)); err != nil {
			slog.Warn("failed to persist theme", "theme", t, "error", err)
		}
	})

	svc.bulb = bulb.New()
	if cfg.MQTT.Enabled {
		svc.mqtt = bulb.NewMQTTOutput(cfg.MQTT.MQTTConfig)
		if err := svc.mqtt.Connect(ctx); err != nil {
			// The client keeps retrying in the background.
			slog.Warn("mqtt broker unavailable", "broker", cfg.MQTT.Broker, "error", err)
		}
		svc.bulb.AddOutput(svc.mqtt)
	}
	if err := addPluginOutputs(svc.bulb, cfg); err != nil {
		svc.Close()
		return nil, err
	}

	det := cfg.Detector
	svc.ctrl = app.New(app.Config{
		Constraints:   cfg.Camera.Constraints,
		Opener:        capture.OpenDevice,
		WarmupTimeout: cfg.WarmupTimeout(),
		NewDetector: func() (detector.Source, error) {
			src, err := detector.NewMediaPipeSource(detector.MediaPipeConfig{
				Script:      det.Script,
				Python:      det.Python,
				IdleTimeout: time.Duration(det.IdleTimeoutS) * time.Second,
			})
			if err != nil {
				return nil, err
			}
			return src, nil
		},
		DetectorOptions: det.Options,
		Thresholds:      cfg.Gesture,
		Renderer:        overlay.NewRenderer(cfg.Overlay),
		Themes:          svc.themes,
		Bulb:            svc.bulb,
		Sink:            svc.frames,
		Store:           st,
		Refresh: func() app.Refresher {
			return app.NewTickerRefresher(cfg.RefreshInterval())
		},
	})

	return svc, nil
}

// Close stops the camera and releases every resource.
func (svc *services) Close() {
	if svc.ctrl != nil {
		svc.ctrl.Close()
	}
	if svc.unsubscribe != nil {
		svc.unsubscribe()
	}
	if svc.mqtt != nil {
		svc.mqtt.Disconnect()
	}
	if err := svc.store.Close(); err != nil {
		slog.Warn("failed to close store", "error", err)
	}
}

// loadTheme prefers the theme saved by the last run over the configured one.
func loadTheme(st *store.Store, cfg *config.Config) theme.Theme {
	fallback, _ := theme.Parse(cfg.Theme)

	saved, err := st.Settings().GetOr(store.SettingTheme, cfg.Theme)
	if err != nil {
		slog.Warn("failed to read saved theme", "error", err)
		return fallback
	}
	t, err := theme.Parse(saved)
	if err != nil {
		slog.Warn("ignoring saved theme", "theme", saved, "error", err)
		return fallback
	}
	return t
}

// addPluginOutputs attaches every enabled bulb driver plugin.
func addPluginOutputs(b *bulb.Bulb, cfg *config.Config) error {
	if len(cfg.Plugins.Enabled) == 0 {
		return nil
	}

	manager := plugin.NewManager(cfg.Plugins.Dir)
	if err := manager.Discover(); err != nil {
		return fmt.Errorf("failed to discover plugins: %w", err)
	}
	executor := plugin.NewExecutor(cfg.PluginTimeout())

	for _, name := range cfg.Plugins.Enabled {
		p, err := manager.Get(name)
		if errors.Is(err, plugin.ErrPluginNotFound) {
			return fmt.Errorf("plugin %q not found in %s", name, cfg.Plugins.Dir)
		}
		if err != nil {
			return err
		}

		var settings json.RawMessage
		if s, ok := cfg.Plugins.Settings[name]; ok {
			settings, err = json.Marshal(s)
			if err != nil {
				return fmt.Errorf("plugin %q settings: %w", name, err)
			}
		}

		b.AddOutput(plugin.NewOutput(p, executor, settings))
		slog.Info("bulb plugin enabled", "plugin", name, "version", p.Manifest.Version)
	}
	return nil
}

// findWebDir searches for the dashboard directory in common locations.
// It checks: "web", "../web", "../../web", and <data_dir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	for _, p := range []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
