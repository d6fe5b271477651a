package main

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"cruisetrack/internal/ingest"
	"cruisetrack/internal/logging"
	"cruisetrack/internal/output"
	"cruisetrack/internal/pipeline"
)

var (
	replayInput     string
	replaySpeed     float64
	replayPrintOnly bool
	replayTUI       bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a prioritized track",
	Long: "replay feeds rows from a prioritized CSV or JSON lines file to the configured sinks " +
		"(GreptimeDB, MQTT) or STDOUT, optionally paced at a multiple of real time.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		var src output.Source
		if strings.HasSuffix(replayInput, ".jsonl") {
			f, err := os.Open(replayInput)
			if err != nil {
				return eris.Wrapf(err, "replay: open %s", replayInput)
			}
			defer f.Close()
			src = output.NewJSONLSource(f)
		} else {
			r, err := ingest.OpenCombined(ctx, replayInput)
			if err != nil {
				return err
			}
			defer r.Close()
			src = r
		}

		writer, cleanup, err := newWriters(ctx, cfg, writerOptions{
			PrintOnly: replayPrintOnly,
			TUI:       replayTUI,
			RunID:     pipeline.NewRunID(),
		})
		if err != nil {
			return err
		}
		n, err := output.Replay(ctx, src, writer, replaySpeed)
		if f, ok := writer.(output.Flusher); ok && err == nil {
			err = f.Flush()
		}
		if cerr := cleanup(); err == nil {
			err = cerr
		}
		logging.FromContext(ctx).Info("replay finished", "rows", n)
		return err
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Prioritized CSV or .jsonl file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 0, "Playback speed multiplier (0 replays without delay)")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print rows to STDOUT instead of writing to sinks")
	replayCmd.Flags().BoolVar(&replayTUI, "tui", false, "Show rows in the interactive terminal UI")
	replayCmd.MarkFlagRequired("input")
}
