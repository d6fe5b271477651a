package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"cruisetrack/internal/ingest"
	"cruisetrack/internal/logging"
	"cruisetrack/internal/output"
	"cruisetrack/internal/pipeline"
)

var (
	prioritizeInputs    []string
	prioritizeOutput    string
	prioritizePrintOnly bool
)

var prioritizeCmd = &cobra.Command{
	Use:   "prioritize",
	Short: "Re-prioritize already flagged combined files",
	Long: "prioritize fuses combined or prioritized CSV files and selects one fix per second again " +
		"without re-flagging. Running it on its own output reproduces that output.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if len(prioritizeInputs) == 0 {
			return eris.New("prioritize: at least one --input is required")
		}
		rows, err := ingest.ReadCombinedFiles(ctx, prioritizeInputs)
		if err != nil {
			return err
		}
		writer, cleanup, err := newWriters(ctx, cfg, writerOptions{
			PrintOnly: prioritizePrintOnly,
			CSVPath:   firstNonEmpty(prioritizeOutput, cfg.Output.Path),
			RunID:     pipeline.NewRunID(),
		})
		if err != nil {
			return err
		}
		st, err := pipeline.Reprioritize(ctx, rows, cfg.Policy(), writer)
		if f, ok := writer.(output.Flusher); ok && err == nil {
			err = f.Flush()
		}
		if cerr := cleanup(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		logging.FromContext(ctx).Info("reprioritized", "rows", st.Input, "written", st.Written, "gaps", st.Gaps)
		return nil
	},
}

func init() {
	prioritizeCmd.Flags().StringSliceVar(&prioritizeInputs, "input", nil, "Combined CSV file (repeatable)")
	prioritizeCmd.Flags().StringVar(&prioritizeOutput, "output", "", "Prioritized CSV path (default output.path)")
	prioritizeCmd.Flags().BoolVar(&prioritizePrintOnly, "print-only", false, "Print rows to STDOUT instead of writing files and sinks")
}
