package track

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// TimeLayout is the timestamp layout written to CSV output.
const TimeLayout = "2006-01-02 15:04:05.999999"

var inputLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-07:00",
}

// ParseTime parses the timestamp forms found in instrument logs. Values
// without a zone are taken as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, eris.Errorf("track: unparseable timestamp %q", s)
}

// Timestamp is a CSV cell holding a UTC time.
type Timestamp time.Time

func (t Timestamp) Time() time.Time { return time.Time(t) }

func (t Timestamp) MarshalCSV() ([]byte, error) {
	return []byte(time.Time(t).UTC().Format(TimeLayout)), nil
}

func (t *Timestamp) UnmarshalCSV(b []byte) error {
	v, err := ParseTime(string(b))
	if err != nil {
		return err
	}
	*t = Timestamp(v)
	return nil
}

// Float is a CSV cell where empty and NaN cells decode to NaN and NaN encodes
// as the literal "NaN".
type Float float64

func (f Float) MarshalCSV() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) {
		return []byte("NaN"), nil
	}
	return []byte(strconv.FormatFloat(v, 'f', -1, 64)), nil
}

func (f *Float) UnmarshalCSV(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || strings.EqualFold(s, "nan") {
		*f = Float(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return eris.Wrapf(err, "track: parse number %q", s)
	}
	*f = Float(v)
	return nil
}

// NoCount marks an integer column whose cell was empty or NaN.
const NoCount = -1

// Count is an integer CSV cell. Empty and NaN cells decode to NoCount, any
// negative value encodes as "NaN", and float renderings such as "7.0" are
// accepted.
type Count int

func (c Count) MarshalCSV() ([]byte, error) {
	if c < 0 {
		return []byte("NaN"), nil
	}
	return []byte(strconv.Itoa(int(c))), nil
}

func (c *Count) UnmarshalCSV(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || strings.EqualFold(s, "nan") {
		*c = NoCount
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return eris.Wrapf(err, "track: parse count %q", s)
	}
	if v < 0 {
		return eris.Errorf("track: negative count %q", s)
	}
	*c = Count(int(v))
	return nil
}
