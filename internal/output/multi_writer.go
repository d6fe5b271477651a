package output

import "cruisetrack/internal/track"

// MultiWriter fans rows out to several writers.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(ws ...Writer) *MultiWriter {
	return &MultiWriter{writers: ws}
}

// Write sends a row to all writers.
func (mw *MultiWriter) Write(c track.Combined) error {
	for _, w := range mw.writers {
		if err := w.Write(c); err != nil {
			return err
		}
	}
	return nil
}

// WriteBatch sends rows to all writers, using batch if supported.
func (mw *MultiWriter) WriteBatch(rows []track.Combined) error {
	for _, w := range mw.writers {
		if bw, ok := w.(batchWriter); ok {
			if err := bw.WriteBatch(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.Write(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush flushes every buffered writer.
func (mw *MultiWriter) Flush() error {
	for _, w := range mw.writers {
		if f, ok := w.(Flusher); ok {
			if err := f.Flush(); err != nil {
				return err
			}
		}
	}
	return nil
}
