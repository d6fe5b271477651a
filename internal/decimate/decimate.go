// Package decimate extracts lower-resolution tracks from the one-second
// prioritized track.
package decimate

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"cruisetrack/internal/logging"
	"cruisetrack/internal/track"
)

// Resolution selects which rows are kept.
type Resolution string

const (
	Minute Resolution = "minute"
	Hour   Resolution = "hour"
)

// ParseResolution validates a resolution name.
func ParseResolution(s string) (Resolution, error) {
	switch Resolution(s) {
	case Minute, Hour:
		return Resolution(s), nil
	}
	return "", eris.Errorf("decimate: unknown resolution %q (want minute or hour)", s)
}

// Keep reports whether a fix at t belongs to the resolution: whole minutes
// keep second 0, whole hours keep minute 0 and second 0. Fractions of a
// second are ignored.
func Keep(r Resolution, t time.Time) bool {
	t = t.UTC()
	switch r {
	case Minute:
		return t.Second() == 0
	case Hour:
		return t.Minute() == 0 && t.Second() == 0
	}
	return false
}

// ISOLayout is the timestamp layout of decimated files.
const ISOLayout = "2006-01-02T15:04:05+00:00"

type isoTime time.Time

func (t isoTime) MarshalCSV() ([]byte, error) {
	return []byte(time.Time(t).UTC().Format(ISOLayout)), nil
}

type record struct {
	Time isoTime `csv:"date_time"`
	track.CombinedRecord
}

// Source yields rows in time order and io.EOF at the end.
type Source interface {
	Next() (track.Combined, error)
}

// Writer emits decimated rows as CSV.
type Writer struct {
	w   *csv.Writer
	enc *csvutil.Encoder
}

// NewWriter writes the header to w.
func NewWriter(w io.Writer) (*Writer, error) {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if err := enc.EncodeHeader(record{}); err != nil {
		return nil, eris.Wrap(err, "decimate: encode header")
	}
	return &Writer{w: cw, enc: enc}, nil
}

func (w *Writer) Write(c track.Combined) error {
	return w.enc.Encode(record{Time: isoTime(c.Time), CombinedRecord: c.Record()})
}

// Flush flushes buffered rows.
func (w *Writer) Flush() error {
	w.w.Flush()
	return w.w.Error()
}

// Run copies the rows of src that match r to w and returns how many were
// kept.
func Run(ctx context.Context, src Source, r Resolution, w interface{ Write(track.Combined) error }) (int, error) {
	log := logging.FromContext(ctx)
	read, kept := 0, 0
	for {
		c, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return kept, err
		}
		read++
		if !Keep(r, c.Time) {
			continue
		}
		if err := w.Write(c); err != nil {
			return kept, eris.Wrap(err, "decimate: write")
		}
		kept++
	}
	log.Info("decimated track", "resolution", r, "read", read, "kept", kept)
	return kept, nil
}
