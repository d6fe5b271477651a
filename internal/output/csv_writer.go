package output

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"cruisetrack/internal/track"
)

// CSVWriter writes prioritized rows with the combined header.
type CSVWriter struct {
	w      *csv.Writer
	enc    *csvutil.Encoder
	closer io.Closer
}

// NewCSVWriter writes to w. The header is emitted even when no row follows.
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if err := enc.EncodeHeader(track.CombinedRecord{}); err != nil {
		return nil, eris.Wrap(err, "output: encode header")
	}
	return &CSVWriter{w: cw, enc: enc}, nil
}

// CreateCSV creates path and returns a CSVWriter on it.
func CreateCSV(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "output: create %s", path)
	}
	w, err := NewCSVWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

func (w *CSVWriter) Write(c track.Combined) error {
	if err := w.enc.Encode(c.Record()); err != nil {
		return eris.Wrap(err, "output: encode row")
	}
	return nil
}

// WriteBatch writes rows in order.
func (w *CSVWriter) WriteBatch(rows []track.Combined) error {
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes buffered rows.
func (w *CSVWriter) Flush() error {
	w.w.Flush()
	return w.w.Error()
}

// Close flushes and closes the underlying file, if any.
func (w *CSVWriter) Close() error {
	err := w.Flush()
	if w.closer != nil {
		if e := w.closer.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
