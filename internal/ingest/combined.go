package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"cruisetrack/internal/logging"
	"cruisetrack/internal/track"
)

// CombinedReader streams a combined or prioritized CSV file row by row.
type CombinedReader struct {
	ctx     context.Context
	name    string
	cr      *csv.Reader
	src     *track.SingleRecord
	dec     *csvutil.Decoder
	width   int
	closer  io.Closer
	Skipped int
}

// NewCombinedReader reads the header of r and prepares row decoding.
func NewCombinedReader(ctx context.Context, r io.Reader, name string) (*CombinedReader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read header of %s", name)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	for _, col := range []string{"date_time", "latitude", "longitude", "device_id", "measureland_qualifier_flag_overall"} {
		if !slices.Contains(header, col) {
			return nil, eris.Errorf("ingest: %s: missing required column %q", name, col)
		}
	}
	src := &track.SingleRecord{}
	dec, err := csvutil.NewDecoder(src, header...)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: decoder for %s", name)
	}
	return &CombinedReader{ctx: ctx, name: name, cr: cr, src: src, dec: dec, width: len(header)}, nil
}

// OpenCombined opens path for streaming.
func OpenCombined(ctx context.Context, path string) (*CombinedReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	r, err := NewCombinedReader(ctx, f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// Next returns the next well-formed row, or io.EOF.
func (r *CombinedReader) Next() (track.Combined, error) {
	log := logging.FromContext(r.ctx)
	for {
		rec, err := r.cr.Read()
		if errors.Is(err, io.EOF) {
			return track.Combined{}, io.EOF
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				log.Warn("skipping malformed row", "file", r.name, "line", pe.Line, "err", pe.Err)
				r.Skipped++
				continue
			}
			return track.Combined{}, eris.Wrapf(err, "ingest: read %s", r.name)
		}
		line, _ := r.cr.FieldPos(0)
		if len(rec) != r.width {
			log.Warn("skipping row with wrong field count", "file", r.name, "line", line, "record", strings.Join(rec, ","))
			r.Skipped++
			continue
		}
		r.src.Set(rec)
		cr := track.CombinedRecord{FixQuality: track.NoCount, Satellites: track.NoCount}
		if err := r.dec.Decode(&cr); err != nil {
			log.Warn("skipping unparseable row", "file", r.name, "line", line, "record", strings.Join(rec, ","), "err", err)
			r.Skipped++
			continue
		}
		return cr.Combined(), nil
	}
}

// Close closes the underlying file, if any.
func (r *CombinedReader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// ReadCombinedFiles loads every combined file fully. Used when several
// already-flagged files must be fused before prioritization.
func ReadCombinedFiles(ctx context.Context, paths []string) ([]track.Combined, error) {
	var out []track.Combined
	for _, p := range paths {
		r, err := OpenCombined(ctx, p)
		if err != nil {
			return nil, err
		}
		for {
			c, err := r.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				r.Close()
				return nil, err
			}
			out = append(out, c)
		}
		if err := r.Close(); err != nil {
			return nil, eris.Wrapf(err, "ingest: close %s", p)
		}
	}
	return out, nil
}
