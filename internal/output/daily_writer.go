package output

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"cruisetrack/internal/track"
)

// DailyWriter splits flagged fixes into one CSV file per device and UTC day:
// <dir>/<prefix>_<device>_<YYYY-MM-DD>.csv. Pass-through input columns follow
// the flagged columns, named after the first fix written to the file.
type DailyWriter struct {
	dir    string
	prefix string
	files  map[string]*dailyFile
}

type dailyFile struct {
	f     *os.File
	w     *csv.Writer
	enc   *csvutil.Encoder
	extra *extraColumns
}

var flaggedHeader, _ = csvutil.Header(track.FlaggedRecord{}, "csv")

// extraColumns sits between csvutil and the csv.Writer and appends the
// pass-through columns of the current fix to every record.
type extraColumns struct {
	w      *csv.Writer
	names  []string
	values []string
	header bool
}

func newExtraColumns(w *csv.Writer, cols []track.Column) *extraColumns {
	e := &extraColumns{w: w}
	for _, c := range cols {
		if !slices.Contains(flaggedHeader, c.Name) && !slices.Contains(e.names, c.Name) {
			e.names = append(e.names, c.Name)
		}
	}
	return e
}

func (e *extraColumns) set(cols []track.Column) {
	e.values = e.values[:0]
	for _, name := range e.names {
		v := ""
		for _, c := range cols {
			if c.Name == name {
				v = c.Value
				break
			}
		}
		e.values = append(e.values, v)
	}
}

func (e *extraColumns) Write(rec []string) error {
	if !e.header {
		e.header = true
		return e.w.Write(slices.Concat(rec, e.names))
	}
	return e.w.Write(slices.Concat(rec, e.values))
}

// NewDailyWriter creates dir if needed.
func NewDailyWriter(dir, prefix string) (*DailyWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "output: create %s", dir)
	}
	if prefix == "" {
		prefix = "flagging_data"
	}
	return &DailyWriter{dir: dir, prefix: prefix, files: make(map[string]*dailyFile)}, nil
}

// Path returns the file name used for device on day.
func (d *DailyWriter) Path(device, day string) string {
	return filepath.Join(d.dir, d.prefix+"_"+device+"_"+day+".csv")
}

// WriteFlagged appends fix to its daily file.
func (d *DailyWriter) WriteFlagged(fix track.Fix) error {
	rec := fix.Flagged()
	p := d.Path(fix.DeviceID, rec.Day)
	df, ok := d.files[p]
	if !ok {
		f, err := os.Create(p)
		if err != nil {
			return eris.Wrapf(err, "output: create %s", p)
		}
		w := csv.NewWriter(f)
		extra := newExtraColumns(w, fix.Extra)
		df = &dailyFile{f: f, w: w, enc: csvutil.NewEncoder(extra), extra: extra}
		d.files[p] = df
	}
	df.extra.set(fix.Extra)
	if err := df.enc.Encode(rec); err != nil {
		return eris.Wrapf(err, "output: encode %s", p)
	}
	return nil
}

// WriteFlaggedBatch appends every fix.
func (d *DailyWriter) WriteFlaggedBatch(fixes []track.Fix) error {
	for _, f := range fixes {
		if err := d.WriteFlagged(f); err != nil {
			return err
		}
	}
	return nil
}

// Files lists the files written so far, sorted.
func (d *DailyWriter) Files() []string {
	out := make([]string, 0, len(d.files))
	for p := range d.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Close flushes and closes every daily file.
func (d *DailyWriter) Close() error {
	var err error
	for _, p := range d.Files() {
		df := d.files[p]
		df.w.Flush()
		if e := df.w.Error(); e != nil && err == nil {
			err = eris.Wrapf(e, "output: flush %s", p)
		}
		if e := df.f.Close(); e != nil && err == nil {
			err = eris.Wrapf(e, "output: close %s", p)
		}
	}
	d.files = make(map[string]*dailyFile)
	return err
}
