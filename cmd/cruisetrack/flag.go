package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"cruisetrack/internal/flagger"
	"cruisetrack/internal/logging"
	"cruisetrack/internal/output"
	"cruisetrack/internal/pipeline"
	"cruisetrack/internal/prioritize"
)

var flagDir string

var flagCmd = &cobra.Command{
	Use:   "flag",
	Short: "Flag each instrument and write daily flagged files",
	Long: "flag writes every fix of every instrument with its speed, course, acceleration, visual " +
		"and overall flags to <dir>/flagging_data_<device>_<YYYY-MM-DD>.csv.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if len(cfg.Instruments) == 0 {
			return eris.New("flag: no instruments configured")
		}
		opts, err := cfg.Options(ctx)
		if err != nil {
			return err
		}
		dir := firstNonEmpty(flagDir, cfg.Output.DailyDir, "flagged")
		daily, err := output.NewDailyWriter(dir, "")
		if err != nil {
			return err
		}

		streams, err := pipeline.FlagInstruments(ctx, opts.Instruments, opts.Thresholds, opts.Exclusions, opts.Workers)
		if err != nil {
			daily.Close()
			return err
		}
		tallies := make([]flagger.Tally, 0, len(streams))
		for _, s := range streams {
			if err := daily.WriteFlaggedBatch(s.Fixes); err != nil {
				daily.Close()
				return err
			}
			tallies = append(tallies, s.Tally)
		}
		if err := daily.Close(); err != nil {
			return err
		}
		logging.FromContext(ctx).Info("wrote daily flagged files", "dir", dir, "files", len(daily.Files()))
		fmt.Fprintln(cmd.ErrOrStderr(), pipeline.RenderSummary(tallies, prioritize.Stats{}))
		return nil
	},
}

func init() {
	flagCmd.Flags().StringVar(&flagDir, "dir", "", "Output directory (default output.daily_dir, then ./flagged)")
}
