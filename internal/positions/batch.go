package positions

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"cruisetrack/internal/logging"
)

// BatchStats summarises a LookupAll run.
type BatchStats struct {
	Rows    int
	Found   int
	Missing int
}

// LookupAll resolves the datetimes in the first column of r (after a header
// row) and writes datetime, latitude and longitude to w. Datetimes without
// a stored position are written with NaN coordinates.
func (s *Store) LookupAll(ctx context.Context, r io.Reader, w io.Writer) (BatchStats, error) {
	log := logging.FromContext(ctx)
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	if _, err := cr.Read(); err != nil && !errors.Is(err, io.EOF) {
		return BatchStats{}, eris.Wrap(err, "positions: read header")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"datetime", "latitude", "longitude"}); err != nil {
		return BatchStats{}, eris.Wrap(err, "positions: write header")
	}

	var st BatchStats
	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return st, eris.Wrap(err, "positions: read datetimes")
		}
		if len(rec) == 0 || strings.TrimSpace(rec[0]) == "" {
			continue
		}
		st.Rows++
		dt := strings.TrimSpace(rec[0])
		lat, lon := math.NaN(), math.NaN()
		p, err := s.Lookup(ctx, dt)
		switch {
		case err == nil:
			st.Found++
			lat, lon = p.Latitude, p.Longitude
		case errors.Is(err, ErrNotFound):
			st.Missing++
			log.Debug("no position", "datetime", dt)
		default:
			return st, err
		}
		if err := cw.Write([]string{dt, formatCoord(lat), formatCoord(lon)}); err != nil {
			return st, eris.Wrap(err, "positions: write row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return st, eris.Wrap(err, "positions: flush")
	}
	log.Info("resolved positions", "rows", st.Rows, "found", st.Found, "missing", st.Missing)
	return st, nil
}

func formatCoord(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
