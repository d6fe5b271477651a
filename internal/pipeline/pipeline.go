// Package pipeline wires ingest, flagging, fusion and prioritization into a
// single run.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"cruisetrack/internal/exclusion"
	"cruisetrack/internal/flagger"
	"cruisetrack/internal/fusion"
	"cruisetrack/internal/ingest"
	"cruisetrack/internal/logging"
	"cruisetrack/internal/prioritize"
	"cruisetrack/internal/track"
)

// Input formats.
const (
	FormatCSV  = "csv"
	FormatNMEA = "nmea"
)

// Instrument is one position source and the files it logged.
type Instrument struct {
	ID     string
	Files  []string
	Format string
	// Start is the first calendar day of an NMEA log.
	Start time.Time
}

// FlaggedSink receives every flagged fix before fusion.
type FlaggedSink interface {
	WriteFlagged(track.Fix) error
}

// Options configure a run.
type Options struct {
	Instruments []Instrument
	Policy      prioritize.Policy
	Thresholds  flagger.Thresholds
	Exclusions  *exclusion.Set
	// Workers bounds concurrent instrument flagging; 0 means one per
	// instrument.
	Workers int
	Flagged FlaggedSink
	// RunID tags the run; a fresh uuid is used when empty.
	RunID string
}

// Stream is one instrument after flagging.
type Stream struct {
	Device  string
	Fixes   []track.Fix
	Skipped int
	Tally   flagger.Tally
}

// Result describes a completed run.
type Result struct {
	RunID    string
	Streams  []Stream
	Stats    prioritize.Stats
	Duration time.Duration
}

// Tallies returns the per-instrument flag counts in instrument order.
func (r Result) Tallies() []flagger.Tally {
	out := make([]flagger.Tally, len(r.Streams))
	for i, s := range r.Streams {
		out[i] = s.Tally
	}
	return out
}

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.New().String() }

func load(ctx context.Context, in Instrument) (ingest.Result, error) {
	if in.Format == FormatNMEA {
		var all ingest.Result
		for _, p := range in.Files {
			res, err := ingest.ReadNMEAFile(ctx, p, in.ID, in.Start)
			if err != nil {
				return all, err
			}
			all.Fixes = append(all.Fixes, res.Fixes...)
			all.Skipped += res.Skipped
		}
		ingest.SortByTime(all.Fixes)
		return all, nil
	}
	return ingest.ReadFiles(ctx, in.Files, in.ID)
}

// FlagInstruments reads and flags every instrument concurrently. Each
// instrument owns its rolling state; the exclusion set is shared read-only.
func FlagInstruments(ctx context.Context, instruments []Instrument, th flagger.Thresholds, windows *exclusion.Set, workers int) ([]Stream, error) {
	streams := make([]Stream, len(instruments))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, in := range instruments {
		g.Go(func() error {
			log := logging.FromContext(gctx).With("device_id", in.ID)
			res, err := load(logging.NewContext(gctx, log), in)
			if err != nil {
				return eris.Wrapf(err, "pipeline: load %s", in.ID)
			}
			if res.Skipped > 0 {
				log.Warn("skipped malformed records", "count", res.Skipped)
			}
			tally := flagger.Run(gctx, in.ID, res.Fixes, th, windows)
			streams[i] = Stream{Device: in.ID, Fixes: res.Fixes, Skipped: res.Skipped, Tally: tally}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return streams, nil
}

// Run executes the full pipeline and streams the prioritized track to sink.
func Run(ctx context.Context, opts Options, sink prioritize.Writer) (Result, error) {
	started := time.Now()
	res := Result{RunID: opts.RunID}
	if res.RunID == "" {
		res.RunID = NewRunID()
	}
	log := logging.FromContext(ctx).With("run_id", res.RunID)
	ctx = logging.NewContext(ctx, log)
	log.Info("pipeline started", "instruments", len(opts.Instruments), "exclusion_windows", opts.Exclusions.Len())

	streams, err := FlagInstruments(ctx, opts.Instruments, opts.Thresholds, opts.Exclusions, opts.Workers)
	if err != nil {
		return res, err
	}
	res.Streams = streams

	if opts.Flagged != nil {
		for _, s := range streams {
			for _, f := range s.Fixes {
				if err := opts.Flagged.WriteFlagged(f); err != nil {
					return res, eris.Wrap(err, "pipeline: write flagged fix")
				}
			}
		}
	}

	fixes := make([][]track.Fix, len(streams))
	for i, s := range streams {
		fixes[i] = s.Fixes
	}
	combined := fusion.Fuse(fixes...)
	log.Info("fused instrument streams", "fixes", len(combined))

	st, err := prioritize.New(opts.Policy).Run(ctx, prioritize.NewSliceSource(combined), sink)
	res.Stats = st
	res.Duration = time.Since(started)
	if err != nil {
		return res, err
	}
	log.Info("pipeline finished", "written", st.Written, "duration", res.Duration)
	return res, nil
}

// Reprioritize fuses already-flagged combined rows and prioritizes them
// again without re-flagging.
func Reprioritize(ctx context.Context, rows []track.Combined, policy prioritize.Policy, sink prioritize.Writer) (prioritize.Stats, error) {
	fusion.Sort(rows)
	return prioritize.New(policy).Run(ctx, prioritize.NewSliceSource(rows), sink)
}
