package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"cruisetrack/internal/decimate"
	"cruisetrack/internal/ingest"
)

var (
	decimateInput      string
	decimateOutput     string
	decimateResolution string
)

var decimateCmd = &cobra.Command{
	Use:   "decimate",
	Short: "Extract a one-minute or one-hour track from a prioritized CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		res, err := decimate.ParseResolution(decimateResolution)
		if err != nil {
			return err
		}
		src, err := ingest.OpenCombined(ctx, decimateInput)
		if err != nil {
			return err
		}
		defer src.Close()

		out := cmd.OutOrStdout()
		if decimateOutput != "" {
			f, err := os.Create(decimateOutput)
			if err != nil {
				return eris.Wrapf(err, "decimate: create %s", decimateOutput)
			}
			defer f.Close()
			out = f
		}
		w, err := decimate.NewWriter(out)
		if err != nil {
			return err
		}
		if _, err := decimate.Run(ctx, src, res, w); err != nil {
			return err
		}
		return w.Flush()
	},
}

func init() {
	decimateCmd.Flags().StringVar(&decimateInput, "input", "", "Prioritized CSV file")
	decimateCmd.Flags().StringVar(&decimateOutput, "output", "", "Output CSV path (STDOUT when empty)")
	decimateCmd.Flags().StringVar(&decimateResolution, "resolution", "minute", "minute or hour")
	decimateCmd.MarkFlagRequired("input")
}
