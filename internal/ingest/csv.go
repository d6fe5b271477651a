// Package ingest reads raw instrument position logs into track fixes.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"cruisetrack/internal/logging"
	"cruisetrack/internal/track"
)

// Result is what a file read produced.
type Result struct {
	Fixes   []track.Fix
	Skipped int
}

// ReadCSV decodes an instrument CSV stream. Rows with the wrong number of
// fields or unparseable values are skipped with a warning; read errors of the
// underlying stream are returned. When device is non-empty it fills blank
// device_id cells.
func ReadCSV(ctx context.Context, r io.Reader, name, device string) (Result, error) {
	log := logging.FromContext(ctx)
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Result{}, nil
		}
		return Result{}, eris.Wrapf(err, "ingest: read header of %s", name)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	for _, col := range track.RequiredColumns {
		if col == "device_id" && device != "" {
			continue
		}
		if !slices.Contains(header, col) {
			return Result{}, eris.Errorf("ingest: %s: missing required column %q", name, col)
		}
	}

	src := &track.SingleRecord{}
	dec, err := csvutil.NewDecoder(src, header...)
	if err != nil {
		return Result{}, eris.Wrapf(err, "ingest: decoder for %s", name)
	}

	var res Result
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				log.Warn("skipping malformed row", "file", name, "line", pe.Line, "err", pe.Err)
				res.Skipped++
				continue
			}
			return res, eris.Wrapf(err, "ingest: read %s", name)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) != len(header) {
			log.Warn("skipping row with wrong field count", "file", name, "line", line,
				"want", len(header), "got", len(rec), "record", strings.Join(rec, ","))
			res.Skipped++
			continue
		}

		src.Set(rec)
		ir := track.InstrumentRecord{
			FixQuality:  track.NoCount,
			Satellites:  track.NoCount,
			HDOP:        track.Float(math.NaN()),
			Altitude:    track.Float(math.NaN()),
			GeoidHeight: track.Float(math.NaN()),
		}
		if err := dec.Decode(&ir); err != nil {
			log.Warn("skipping unparseable row", "file", name, "line", line,
				"record", strings.Join(rec, ","), "err", err)
			res.Skipped++
			continue
		}
		if math.IsNaN(float64(ir.Latitude)) || math.IsNaN(float64(ir.Longitude)) {
			log.Warn("skipping row without coordinates", "file", name, "line", line,
				"record", strings.Join(rec, ","))
			res.Skipped++
			continue
		}
		if ir.DeviceID == "" {
			ir.DeviceID = device
		}
		fix := ir.Fix()
		for _, i := range dec.Unused() {
			fix.Extra = append(fix.Extra, track.Column{Name: header[i], Value: rec[i]})
		}
		res.Fixes = append(res.Fixes, fix)
	}
	log.Debug("read instrument file", "file", name, "fixes", len(res.Fixes), "skipped", res.Skipped)
	return res, nil
}

// ReadCSVFile opens path and decodes it with ReadCSV.
func ReadCSVFile(ctx context.Context, path, device string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close()
	return ReadCSV(ctx, f, path, device)
}

// ReadFiles reads every path and returns one time-sorted stream. The sort is
// stable, so fixes with equal timestamps keep their file order.
func ReadFiles(ctx context.Context, paths []string, device string) (Result, error) {
	var all Result
	for _, p := range paths {
		res, err := ReadCSVFile(ctx, p, device)
		if err != nil {
			return all, err
		}
		all.Fixes = append(all.Fixes, res.Fixes...)
		all.Skipped += res.Skipped
	}
	SortByTime(all.Fixes)
	return all, nil
}

// SortByTime stable-sorts fixes by timestamp.
func SortByTime(fixes []track.Fix) {
	sort.SliceStable(fixes, func(i, j int) bool { return fixes[i].Time.Before(fixes[j].Time) })
}
