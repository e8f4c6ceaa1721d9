// Command gps-replay runs a recorded track through the GPS filter and the
// marker animator, printing every decision.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"repairdesk_backend/internal/tracking/animation"
	"repairdesk_backend/internal/tracking/replay"

	"github.com/spf13/cobra"
)

var (
	animate       bool
	frameInterval time.Duration
	asJSON        bool
	printFrames   bool
)

var rootCmd = &cobra.Command{
	Use:   "gps-replay <track.yaml>",
	Short: "Replay a recorded GPS track through the location filter",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func init() {
	rootCmd.Flags().BoolVar(&animate, "animate", false, "drive the marker animator on a virtual clock")
	rootCmd.Flags().DurationVar(&frameInterval, "frame-interval", animation.DefaultFrameInterval, "virtual frame interval")
	rootCmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	rootCmd.Flags().BoolVar(&printFrames, "frames", false, "print every animation frame")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open track: %w", err)
	}
	defer func() { _ = f.Close() }()

	track, err := replay.Load(f)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	opts := replay.Options{Animate: animate || printFrames, FrameInterval: frameInterval}
	if printFrames && !asJSON {
		opts.OnFrame = func(at time.Time, fr animation.Frame) {
			fmt.Fprintf(out, "  frame %s  %.6f,%.6f  bearing=%5.1f  progress=%.2f\n",
				at.Format("15:04:05.000"), fr.Position.Lat, fr.Position.Lng, fr.Bearing, fr.Progress)
		}
	}

	report := replay.Run(track, opts)

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	if track.Name != "" {
		fmt.Fprintf(out, "track %q\n", track.Name)
	}
	for _, step := range report.Steps {
		if step.Emitted == nil {
			fmt.Fprintf(out, "#%03d %s  %-7s\n", step.Index, step.At.Format(time.RFC3339), step.Decision)
			continue
		}
		fmt.Fprintf(out, "#%03d %s  %-7s -> %.6f,%.6f\n",
			step.Index, step.At.Format(time.RFC3339), step.Decision, step.Emitted.Lat, step.Emitted.Lng)
	}
	fmt.Fprintf(out, "accepted=%d dropped=%d frames=%d\n", report.Accepted, report.Dropped, report.Frames)
	return nil
}
