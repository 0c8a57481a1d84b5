package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ayusman/yantram/internal/preview"
	"github.com/ayusman/yantram/internal/server"
)

var (
	previewServe bool
	previewIdle  bool
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Open a window showing the camera, the hand overlay and the bulb",
	Long: `Open a window showing the composited camera feed and a simulated bulb.

Keys: space toggles the camera, 1-6 select a theme, q or escape quits.`,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().BoolVar(&previewServe, "serve", false, "Also run the HTTP API")
	previewCmd.Flags().BoolVar(&previewIdle, "idle", false, "Open with the camera off")
}

func runPreview(cmd *cobra.Command, args []string) error {
	setupLogging(os.Stderr, false)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	svc, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	if previewServe {
		srv := server.New(server.Config{
			Store:      svc.store,
			Controller: svc.ctrl,
			Themes:     svc.themes,
			Frames:     svc.frames,
		})
		go func() {
			if err := srv.Run(ctx, cfg.Server.Addr); err != nil {
				slog.Error("http server failed", "error", err)
			}
		}()
	}

	if !previewIdle {
		// Start can take seconds; the window opens meanwhile.
		go func() {
			if err := svc.ctrl.Start(ctx); err != nil {
				slog.Error("failed to start camera", "error", err)
			}
		}()
	}

	return preview.New(svc.ctrl, svc.frames, svc.themes).Run(ctx)
}
