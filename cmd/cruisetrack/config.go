package main

import (
	"github.com/spf13/cobra"

	"cruisetrack/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		return config.Dump(cfg, cmd.OutOrStdout())
	},
}
