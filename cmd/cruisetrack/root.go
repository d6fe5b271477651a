package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cruisetrack/internal/config"
	"cruisetrack/internal/logging"
)

var (
	configPath string
	schemaPath string
	logLevel   string
	logFormat  string

	cfg *config.PipelineConfig
)

var rootCmd = &cobra.Command{
	Use:   "cruisetrack",
	Short: "GPS cruise track quality flagging toolkit",
	Long: "cruisetrack flags the kinematic quality of shipboard GPS fixes, fuses several receivers " +
		"and selects one best fix per second.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if !cmd.Flags().Changed("config") {
			if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
				path = ""
			}
		}
		loaded, err := config.Load(path, schemaPath)
		if err != nil {
			return err
		}
		cfg = loaded
		if cmd.Flags().Changed("log-level") {
			cfg.Log.Level = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.Log.Format = logFormat
		}
		logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
		logger.Debug("loaded configuration", "config", path, "instruments", len(cfg.Instruments))
		cmd.SetContext(logging.NewContext(cmd.Context(), logger))
		return nil
	},
}

// Execute runs the root command, cancelling its context on SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/pipeline.yaml", "Path to pipeline configuration YAML")
	rootCmd.PersistentFlags().StringVar(&schemaPath, "schema", "", "Path to CUE schema file (built-in schema when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(flagCmd)
	rootCmd.AddCommand(prioritizeCmd)
	rootCmd.AddCommand(decimateCmd)
	rootCmd.AddCommand(positionsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(simulateCmd)
}
