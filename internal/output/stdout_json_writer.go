package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"cruisetrack/internal/track"
)

// JSONStdoutWriter prints rows as JSON lines.
type JSONStdoutWriter struct {
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

// Write outputs a row in JSON format.
func (w *JSONStdoutWriter) Write(c track.Combined) error {
	data, err := json.Marshal(toJSON(c, ""))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}
