package main

import (
	"context"
	"errors"
	"io"
	"os"

	"golang.org/x/term"

	"cruisetrack/internal/config"
	"cruisetrack/internal/logging"
	"cruisetrack/internal/output"
)

// writerOptions selects the sinks of a run.
type writerOptions struct {
	PrintOnly bool
	TUI       bool
	CSVPath   string
	JSONL     string
	GeoJSON   string
	RunID     string
}

// newWriters sets up the row sinks from flags and configuration. It returns
// the writer and a cleanup function that flushes and closes every sink.
func newWriters(ctx context.Context, cfg *config.PipelineConfig, opts writerOptions) (output.Writer, func() error, error) {
	var (
		ws      []output.Writer
		closers []io.Closer
	)
	cleanup := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i].Close())
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (output.Writer, func() error, error) {
		cleanup()
		return nil, nil, err
	}

	if opts.PrintOnly {
		w, c := stdoutWriter(opts.TUI, cfg.Policy().Priority)
		if c != nil {
			closers = append(closers, c)
		}
		return w, cleanup, nil
	}

	if opts.CSVPath != "" {
		w, err := output.CreateCSV(opts.CSVPath)
		if err != nil {
			return fail(err)
		}
		ws, closers = append(ws, w), append(closers, w)
	}
	if opts.JSONL != "" {
		w, err := output.NewFileWriter(opts.JSONL, opts.RunID)
		if err != nil {
			return fail(err)
		}
		ws, closers = append(ws, w), append(closers, w)
	}
	if opts.GeoJSON != "" {
		w, err := output.NewGeoJSONWriter(opts.GeoJSON)
		if err != nil {
			return fail(err)
		}
		ws, closers = append(ws, w), append(closers, w)
	}
	if cfg.Greptime.Endpoint != "" {
		w, err := output.NewGreptimeWriter(ctx, cfg.Greptime.Endpoint, cfg.Greptime.Database, cfg.Greptime.Table, opts.RunID)
		if err != nil {
			return fail(err)
		}
		ws, closers = append(ws, w), append(closers, w)
	}
	if cfg.MQTT.Broker != "" {
		w, err := output.NewMQTTWriter(ctx, cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Topic, opts.RunID)
		if err != nil {
			return fail(err)
		}
		ws, closers = append(ws, w), append(closers, w)
	}
	if opts.TUI || len(ws) == 0 {
		w, c := stdoutWriter(opts.TUI, cfg.Policy().Priority)
		ws = append(ws, w)
		if c != nil {
			closers = append(closers, c)
		}
	}

	logging.FromContext(ctx).Debug("configured sinks", "count", len(ws))
	if len(ws) == 1 {
		return ws[0], cleanup, nil
	}
	return output.NewMultiWriter(ws...), cleanup, nil
}

// stdoutWriter picks the TUI, the colour writer on a terminal, or JSON lines.
func stdoutWriter(tui bool, priority []string) (output.Writer, io.Closer) {
	if tui {
		w := output.NewTUIWriter(priority)
		return w, w
	}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return output.NewColorStdoutWriter(priority), nil
	}
	return output.NewJSONStdoutWriter(), nil
}
