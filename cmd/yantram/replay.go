package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/ayusman/yantram/internal/app"
	"github.com/ayusman/yantram/internal/bulb"
	"github.com/ayusman/yantram/internal/capture"
	"github.com/ayusman/yantram/internal/detector"
	"github.com/ayusman/yantram/internal/gesture"
	"github.com/ayusman/yantram/internal/overlay"
	"github.com/ayusman/yantram/internal/theme"
)

var (
	replayOutput string
	replayJSON   bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <video>",
	Short: "Run a recorded video through the hand pipeline and summarize it",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func init() {
	replayCmd.Flags().StringVarP(&replayOutput, "output", "o", "", "Write the video with the overlay drawn to this path (.avi)")
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "Print the summary as JSON")
}

func runReplay(cmd *cobra.Command, args []string) error {
	setupLogging(os.Stderr, false)
	ctx := cmd.Context()

	cam := capture.NewFileCamera(args[0])
	if err := cam.Open(); err != nil {
		return fmt.Errorf("failed to open video: %w", err)
	}
	defer cam.Close()

	det, err := detector.NewMediaPipeSource(detector.MediaPipeConfig{
		Script:      cfg.Detector.Script,
		Python:      cfg.Detector.Python,
		IdleTimeout: time.Duration(cfg.Detector.IdleTimeoutS) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", app.ErrDetectorInit, err)
	}
	defer det.Close()
	if err := det.Configure(cfg.Detector.Options); err != nil {
		return fmt.Errorf("%w: %v", app.ErrDetectorInit, err)
	}

	th, _ := theme.Parse(cfg.Theme)
	pipeCfg := app.PipelineConfig{
		Thresholds: cfg.Gesture,
		Themes:     theme.NewStore(th),
		// No outputs: a replay never drives a real bulb.
		Bulb: bulb.New(),
	}

	var writer *gocv.VideoWriter
	if replayOutput != "" {
		w, h := cam.Resolution()
		fps := float64(cam.FPS())
		if fps <= 0 {
			fps = capture.DefaultFPS
		}
		writer, err = gocv.VideoWriterFile(replayOutput, "MJPG", fps, w, h, true)
		if err != nil {
			return fmt.Errorf("failed to create output video: %w", err)
		}
		defer writer.Close()
		pipeCfg.Renderer = overlay.NewRenderer(cfg.Overlay)
	}

	pipe := app.NewPipeline(pipeCfg)
	defer pipe.Close()

	total := cam.FrameCount()
	if total <= 0 {
		total = -1
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Replaying"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	start := time.Now()
	sum, err := app.Replay(ctx, cam, det, pipe, func(frame *gocv.Mat, u app.Update) error {
		bar.Add(1)
		if writer != nil {
			return writer.Write(*frame)
		}
		return nil
	})
	bar.Finish()
	if err != nil {
		return err
	}
	slog.Debug("replay finished", "frames", sum.Frames, "elapsed", time.Since(start))

	if replayJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}
	printSummary(cmd.OutOrStdout(), args[0], sum)
	return nil
}

func printSummary(w io.Writer, name string, sum app.ReplaySummary) {
	fmt.Fprintf(w, "%s: %d frames, %d detector errors, %d power changes\n",
		name, sum.Frames, sum.DetectorErrors, sum.PowerChanges)

	fmt.Fprintln(w, "\nHand state")
	for _, s := range []gesture.HandState{gesture.StateOpen, gesture.StateHalfOpen, gesture.StateClosed, gesture.StateDetecting} {
		fmt.Fprintf(w, "  %-10s %6d  %5.1f%%\n", s, sum.States[s], percent(sum.States[s], sum.Frames))
	}

	fmt.Fprintln(w, "\nBulb power")
	for _, p := range []bulb.Power{bulb.PowerFull, bulb.PowerHalf, bulb.PowerOff} {
		fmt.Fprintf(w, "  %-10s %6d  %5.1f%%\n", p, sum.Powers[p], percent(sum.Powers[p], sum.Frames))
	}
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}
