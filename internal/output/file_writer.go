package output

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"cruisetrack/internal/track"
)

// FileWriter writes rows to a JSONL file.
type FileWriter struct {
	f     *os.File
	enc   *json.Encoder
	runID string
}

// NewFileWriter creates path. runID, when set, is stamped on every row.
func NewFileWriter(path, runID string) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "output: create %s", path)
	}
	return &FileWriter{f: f, enc: json.NewEncoder(f), runID: runID}, nil
}

// Write logs a single row.
func (w *FileWriter) Write(c track.Combined) error {
	return w.enc.Encode(toJSON(c, w.runID))
}

// WriteBatch logs multiple rows.
func (w *FileWriter) WriteBatch(rows []track.Combined) error {
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying file.
func (w *FileWriter) Close() error {
	if w.f == nil {
		return nil
	}
	return w.f.Close()
}
