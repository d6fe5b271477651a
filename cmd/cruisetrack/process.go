package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"cruisetrack/internal/logging"
	"cruisetrack/internal/output"
	"cruisetrack/internal/pipeline"
)

var (
	processOutput    string
	processPrintOnly bool
	processTUI       bool
	processJSONL     string
	processGeoJSON   string
	processDailyDir  string
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Flag, fuse and prioritize every configured instrument",
	Long: "process reads each instrument's logs, flags them in parallel, applies the exclusion windows, " +
		"fuses the streams and writes one best fix per second.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := logging.FromContext(ctx)
		if len(cfg.Instruments) == 0 {
			return eris.New("process: no instruments configured")
		}
		opts, err := cfg.Options(ctx)
		if err != nil {
			return err
		}
		opts.RunID = pipeline.NewRunID()

		csvPath := firstNonEmpty(processOutput, cfg.Output.Path)
		writer, cleanup, err := newWriters(ctx, cfg, writerOptions{
			PrintOnly: processPrintOnly,
			TUI:       processTUI,
			CSVPath:   csvPath,
			JSONL:     firstNonEmpty(processJSONL, cfg.Output.JSONL),
			GeoJSON:   firstNonEmpty(processGeoJSON, cfg.Output.GeoJSON),
			RunID:     opts.RunID,
		})
		if err != nil {
			return err
		}

		var daily *output.DailyWriter
		if dir := firstNonEmpty(processDailyDir, cfg.Output.DailyDir); dir != "" && !processPrintOnly {
			if daily, err = output.NewDailyWriter(dir, ""); err != nil {
				cleanup()
				return err
			}
			opts.Flagged = daily
		}

		res, runErr := pipeline.Run(ctx, opts, writer)
		if f, ok := writer.(output.Flusher); ok && runErr == nil {
			runErr = f.Flush()
		}
		if tw, ok := writer.(*output.TUIWriter); ok {
			tw.SetStatus(fmt.Sprintf("done: %d seconds written, %d gaps", res.Stats.Written, res.Stats.Gaps))
		}
		closeErr := cleanup()
		if daily != nil {
			if err := daily.Close(); err != nil && closeErr == nil {
				closeErr = err
			}
		}
		if runErr != nil {
			return runErr
		}
		if closeErr != nil {
			return closeErr
		}

		fmt.Fprintln(cmd.ErrOrStderr(), pipeline.RenderSummary(res.Tallies(), res.Stats))
		if !processPrintOnly {
			log.Info("wrote prioritized track", "path", csvPath, "rows", res.Stats.Written, "run_id", res.RunID)
		}
		return nil
	},
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	processCmd.Flags().StringVar(&processOutput, "output", "", "Prioritized CSV path (default output.path)")
	processCmd.Flags().BoolVar(&processPrintOnly, "print-only", false, "Print rows to STDOUT instead of writing files and sinks")
	processCmd.Flags().BoolVar(&processTUI, "tui", false, "Show the interactive terminal UI while processing")
	processCmd.Flags().StringVar(&processJSONL, "jsonl", "", "Also write rows as JSON lines to this path")
	processCmd.Flags().StringVar(&processGeoJSON, "geojson", "", "Also write rows as a GeoJSON FeatureCollection")
	processCmd.Flags().StringVar(&processDailyDir, "daily-dir", "", "Also write daily flagged files to this directory")
}
