package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"cruisetrack/internal/ingest"
	"cruisetrack/internal/positions"
)

var (
	positionsDB       string
	positionsInput    string
	positionsOutput   string
	positionsDatetime string
)

var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Load and query the SQLite position store",
}

var positionsLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load a prioritized CSV into the position store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()
		src, err := ingest.OpenCombined(ctx, positionsInput)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = store.Load(ctx, src)
		return err
	},
}

var positionsLookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Resolve datetimes to positions",
	Long: "lookup resolves either a single --datetime or a CSV of datetimes (first column, one header " +
		"row) to latitude and longitude. Unknown datetimes get NaN coordinates.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		if positionsDatetime != "" {
			p, err := store.Lookup(ctx, positionsDatetime)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s,%v,%v\n", p.DateTime, p.Latitude, p.Longitude)
			return nil
		}
		if positionsInput == "" {
			return eris.New("positions: --input or --datetime is required")
		}
		in, err := os.Open(positionsInput)
		if err != nil {
			return eris.Wrapf(err, "positions: open %s", positionsInput)
		}
		defer in.Close()
		out := cmd.OutOrStdout()
		if positionsOutput != "" {
			f, err := os.Create(positionsOutput)
			if err != nil {
				return eris.Wrapf(err, "positions: create %s", positionsOutput)
			}
			defer f.Close()
			out = f
		}
		_, err = store.LookupAll(ctx, in, out)
		return err
	},
}

func openStore(cmd *cobra.Command) (*positions.Store, error) {
	store, err := positions.Open(firstNonEmpty(positionsDB, cfg.Positions.Path))
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(cmd.Context()); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func init() {
	positionsCmd.PersistentFlags().StringVar(&positionsDB, "db", "", "SQLite database path (default positions.path)")
	positionsLoadCmd.Flags().StringVar(&positionsInput, "input", "", "Prioritized CSV file")
	positionsLoadCmd.MarkFlagRequired("input")
	positionsLookupCmd.Flags().StringVar(&positionsInput, "input", "", "CSV of datetimes")
	positionsLookupCmd.Flags().StringVar(&positionsOutput, "output", "", "Output CSV path (STDOUT when empty)")
	positionsLookupCmd.Flags().StringVar(&positionsDatetime, "datetime", "", "Single datetime, e.g. 2023-03-17T12:00:00")
	positionsCmd.AddCommand(positionsLoadCmd)
	positionsCmd.AddCommand(positionsLookupCmd)
}
