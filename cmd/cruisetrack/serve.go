package main

import (
	"github.com/spf13/cobra"

	"cruisetrack/internal/admin"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve position lookups over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()
		return admin.NewServer(store).Start(cmd.Context(), serveAddr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().StringVar(&positionsDB, "db", "", "SQLite database path (default positions.path)")
}
