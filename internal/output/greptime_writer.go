package output

import (
	"context"
	"math"
	"net"
	"strconv"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"
	"github.com/rotisserie/eris"

	"cruisetrack/internal/logging"
	"cruisetrack/internal/track"
)

const (
	defaultGreptimePort  = 4001
	defaultGreptimeTable = "cruise_track"
	defaultBatchSize     = 500
)

// greptimeClient abstracts the ingester client for testing.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeWriter buffers rows and writes them to GreptimeDB in batches.
type GreptimeWriter struct {
	ctx       context.Context
	client    greptimeClient
	table     string
	runID     string
	batchSize int
	pending   []track.Combined
}

// NewGreptimeWriter connects to endpoint (host or host:port).
func NewGreptimeWriter(ctx context.Context, endpoint, database, tableName, runID string) (*GreptimeWriter, error) {
	host, port := endpoint, defaultGreptimePort
	if h, p, err := net.SplitHostPort(endpoint); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, eris.Wrapf(err, "output: greptime port in %q", endpoint)
		}
		host, port = h, n
	}
	if database == "" {
		database = "public"
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	cli, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, eris.Wrap(err, "output: greptime client")
	}
	logging.FromContext(ctx).Info("greptime sink ready", "host", host, "port", port, "database", database)
	return newGreptimeWriter(ctx, cli, tableName, runID), nil
}

func newGreptimeWriter(ctx context.Context, cli greptimeClient, tableName, runID string) *GreptimeWriter {
	if tableName == "" {
		tableName = defaultGreptimeTable
	}
	return &GreptimeWriter{ctx: ctx, client: cli, table: tableName, runID: runID, batchSize: defaultBatchSize}
}

// Write buffers one row and sends a batch when full.
func (w *GreptimeWriter) Write(c track.Combined) error {
	w.pending = append(w.pending, c)
	if len(w.pending) >= w.batchSize {
		return w.Flush()
	}
	return nil
}

// WriteBatch sends rows immediately.
func (w *GreptimeWriter) WriteBatch(rows []track.Combined) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := w.buildTable(rows)
	if err != nil {
		return err
	}
	if _, err := w.client.Write(w.ctx, tbl); err != nil {
		logging.FromContext(w.ctx).Error("greptime write failed", "rows", len(rows), "err", err)
		return eris.Wrap(err, "output: greptime write")
	}
	logging.FromContext(w.ctx).Debug("greptime batch written", "rows", len(rows))
	return nil
}

// Flush sends buffered rows.
func (w *GreptimeWriter) Flush() error {
	rows := w.pending
	w.pending = nil
	return w.WriteBatch(rows)
}

// Close flushes remaining rows.
func (w *GreptimeWriter) Close() error { return w.Flush() }

func orNil(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func countOrNil(v int) any {
	if v < 0 {
		return nil
	}
	return int64(v)
}

func (w *GreptimeWriter) buildTable(rows []track.Combined) (*table.Table, error) {
	tbl, err := table.New(w.table)
	if err != nil {
		return nil, eris.Wrap(err, "output: greptime table")
	}
	cols := []struct {
		name string
		tag  bool
		typ  types.ColumnType
	}{
		{"device_id", true, types.STRING},
		{"run_id", true, types.STRING},
		{"latitude", false, types.FLOAT64},
		{"longitude", false, types.FLOAT64},
		{"fix_quality", false, types.INT64},
		{"number_satellites", false, types.INT64},
		{"horiz_dilution_of_position", false, types.FLOAT64},
		{"altitude", false, types.FLOAT64},
		{"geoid_height", false, types.FLOAT64},
		{"speed", false, types.FLOAT64},
		{"measureland_qualifier_flag_overall", false, types.INT64},
	}
	for _, c := range cols {
		if c.tag {
			err = tbl.AddTagColumn(c.name, c.typ)
		} else {
			err = tbl.AddFieldColumn(c.name, c.typ)
		}
		if err != nil {
			return nil, eris.Wrapf(err, "output: greptime column %s", c.name)
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, eris.Wrap(err, "output: greptime time index")
	}
	for _, r := range rows {
		err := tbl.AddRow(
			r.DeviceID,
			w.runID,
			r.Latitude,
			r.Longitude,
			countOrNil(r.FixQuality),
			countOrNil(r.Satellites),
			orNil(r.HDOP),
			orNil(r.Altitude),
			orNil(r.GeoidHeight),
			orNil(r.Speed),
			int64(r.Overall),
			r.Time,
		)
		if err != nil {
			return nil, eris.Wrap(err, "output: greptime row")
		}
	}
	return tbl, nil
}
