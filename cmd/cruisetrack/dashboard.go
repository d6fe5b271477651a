package main

import (
	"github.com/spf13/cobra"

	"cruisetrack/internal/dashboard"
	"cruisetrack/internal/logging"
)

var dashboardOut string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render Grafana dashboards for the GreptimeDB track table",
	Long:  "dashboard renders Grafana dashboards querying greptime.database/greptime.table. GREPTIMEDB_DATASOURCE_UID must be set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := dashboard.Render(dashboardOut, dashboard.Params{Database: cfg.Greptime.Database, Table: cfg.Greptime.Table})
		if err != nil {
			return err
		}
		logging.FromContext(cmd.Context()).Info("rendered dashboards", "files", files)
		return nil
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardOut, "out", "build", "Output directory")
}
