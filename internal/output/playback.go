package output

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/rotisserie/eris"

	"cruisetrack/internal/track"
)

// Source yields rows in time order and io.EOF at the end.
type Source interface {
	Next() (track.Combined, error)
}

// Replay feeds rows from src to writer. A speed > 0 paces playback at that
// multiple of real time; speed <= 0 inserts no delay.
func Replay(ctx context.Context, src Source, writer Writer, speed float64) (int, error) {
	var prev time.Time
	n := 0
	for {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if !prev.IsZero() && speed > 0 {
			diff := row.Time.Sub(prev)
			if speed != 1 {
				diff = time.Duration(float64(diff) / speed)
			}
			if diff > 0 {
				timer := time.NewTimer(diff)
				select {
				case <-ctx.Done():
					timer.Stop()
					return n, ctx.Err()
				case <-timer.C:
				}
			}
		}
		if err := writer.Write(row); err != nil {
			return n, eris.Wrap(err, "output: replay write")
		}
		n++
		prev = row.Time
	}
}

// JSONLSource decodes rows written by FileWriter.
type JSONLSource struct {
	dec *json.Decoder
}

// NewJSONLSource reads JSONL rows from r.
func NewJSONLSource(r io.Reader) *JSONLSource {
	return &JSONLSource{dec: json.NewDecoder(r)}
}

func (s *JSONLSource) Next() (track.Combined, error) {
	var row jsonRow
	if err := s.dec.Decode(&row); err != nil {
		if errors.Is(err, io.EOF) {
			return track.Combined{}, io.EOF
		}
		return track.Combined{}, eris.Wrap(err, "output: decode jsonl row")
	}
	return fromJSON(row), nil
}
