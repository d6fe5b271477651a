// Package exclusion marks fixes that fall inside manually recorded
// bad-data windows.
package exclusion

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"cruisetrack/internal/logging"
	"cruisetrack/internal/track"
)

// Window is an inclusive interval during which fixes are visually bad.
type Window struct {
	Start  time.Time
	End    time.Time
	Reason string
}

// Contains reports whether t lies in [Start, End].
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

type windowRecord struct {
	Start  track.Timestamp `csv:"start"`
	End    track.Timestamp `csv:"end"`
	Reason string          `csv:"reason,omitempty"`
}

// Set is an immutable collection of windows, safe for concurrent use.
type Set struct {
	windows []Window
}

// NewSet builds a Set from windows.
func NewSet(windows ...Window) *Set {
	return &Set{windows: append([]Window(nil), windows...)}
}

// Len returns the number of windows.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.windows)
}

// Windows returns a copy of the windows.
func (s *Set) Windows() []Window {
	if s == nil {
		return nil
	}
	return append([]Window(nil), s.windows...)
}

// Excluded reports whether t falls in any window.
func (s *Set) Excluded(t time.Time) (Window, bool) {
	if s == nil {
		return Window{}, false
	}
	for _, w := range s.windows {
		if w.Contains(t) {
			return w, true
		}
	}
	return Window{}, false
}

// Apply sets the visual flag of every fix: bad inside a window, ok
// otherwise. It returns the number of fixes marked bad.
func (s *Set) Apply(fixes []track.Fix) int {
	n := 0
	for i := range fixes {
		if _, ok := s.Excluded(fixes[i].Time); ok {
			fixes[i].Flags.Visual = track.FlagBad
			n++
			continue
		}
		fixes[i].Flags.Visual = track.FlagOK
	}
	return n
}

// Read decodes a start,end,reason CSV with a header row. Rows that do not
// parse are skipped with a warning.
func Read(ctx context.Context, r io.Reader, name string) (*Set, error) {
	log := logging.FromContext(ctx)
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return NewSet(), nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "exclusion: read header of %s", name)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}
	src := &track.SingleRecord{}
	dec, err := csvutil.NewDecoder(src, header...)
	if err != nil {
		return nil, eris.Wrapf(err, "exclusion: decoder for %s", name)
	}

	var windows []Window
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				log.Warn("skipping malformed exclusion window", "file", name, "line", pe.Line, "err", pe.Err)
				continue
			}
			return nil, eris.Wrapf(err, "exclusion: read %s", name)
		}
		if len(rec) != len(header) {
			log.Warn("skipping malformed exclusion window", "file", name, "record", strings.Join(rec, ","))
			continue
		}
		src.Set(rec)
		var wr windowRecord
		if err := dec.Decode(&wr); err != nil {
			log.Warn("skipping malformed exclusion window", "file", name, "record", strings.Join(rec, ","), "err", err)
			continue
		}
		w := Window{Start: wr.Start.Time(), End: wr.End.Time(), Reason: wr.Reason}
		if w.End.Before(w.Start) {
			log.Warn("skipping inverted exclusion window", "file", name, "start", w.Start, "end", w.End)
			continue
		}
		windows = append(windows, w)
	}
	return NewSet(windows...), nil
}

// Load reads the window file at path. An empty path or a missing file means
// no exclusions.
func Load(ctx context.Context, path string) (*Set, error) {
	log := logging.FromContext(ctx)
	if path == "" {
		log.Info("no exclusion file configured")
		return NewSet(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Info("exclusion file not found, no windows applied", "file", path)
			return NewSet(), nil
		}
		return nil, eris.Wrapf(err, "exclusion: open %s", path)
	}
	defer f.Close()
	set, err := Read(ctx, f, path)
	if err != nil {
		return nil, err
	}
	log.Info("loaded exclusion windows", "file", path, "windows", set.Len())
	return set, nil
}
