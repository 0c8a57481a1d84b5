package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	goruntime "runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ayusman/yantram/internal/server"
	"github.com/ayusman/yantram/internal/tray"
)

var (
	serveAddr  string
	serveTray  bool
	serveStart bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and dashboard, optionally with a tray icon",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: server.addr from config)")
	serveCmd.Flags().BoolVar(&serveTray, "tray", false, "Show the system tray menu")
	serveCmd.Flags().BoolVar(&serveStart, "start", false, "Turn the camera on at startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	setupLogging(os.Stdout, true)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	svc, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	staticDir := cfg.Server.StaticDir
	if staticDir == "" {
		staticDir = findWebDir(cfg.DataDir)
	}
	if staticDir != "" {
		slog.Info("serving dashboard", "dir", staticDir)
	}

	srv := server.New(server.Config{
		StaticDir:  staticDir,
		Store:      svc.store,
		Controller: svc.ctrl,
		Themes:     svc.themes,
		Frames:     svc.frames,
	})

	if serveStart {
		if err := svc.ctrl.Start(ctx); err != nil {
			slog.Error("failed to start camera", "error", err)
		}
	}

	if !serveTray {
		return srv.Run(ctx, addr)
	}

	// The tray owns the main goroutine; the server runs beside it.
	t := tray.New(svc.ctrl, svc.themes)
	t.OnSettings(func() { openBrowser(dashboardURL(addr)) })
	t.OnQuit(cancel)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(ctx, addr)
		t.Quit()
	}()

	t.Run()
	cancel()
	return <-errCh
}

func dashboardURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return fmt.Sprintf("http://%s/", addr)
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		slog.Warn("failed to open browser", "url", url, "error", err)
	}
}
