package track

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Flag is a measureland qualifier code. The integer values are the codes
// written to disk.
type Flag int

const (
	FlagUnset    Flag = 0
	FlagPristine Flag = 1
	FlagOK       Flag = 2
	FlagSuspect  Flag = 3
	FlagBad      Flag = 5
	FlagMissing  Flag = 10
)

func (f Flag) String() string {
	switch f {
	case FlagPristine:
		return "pristine"
	case FlagOK:
		return "ok"
	case FlagSuspect:
		return "suspect"
	case FlagBad:
		return "bad"
	case FlagMissing:
		return "missing"
	default:
		return "unset"
	}
}

// Valid reports whether f is one of the defined codes.
func (f Flag) Valid() bool {
	switch f {
	case FlagPristine, FlagOK, FlagSuspect, FlagBad, FlagMissing:
		return true
	}
	return false
}

// AllFlags lists the defined codes in ascending order.
var AllFlags = []Flag{FlagPristine, FlagOK, FlagSuspect, FlagBad, FlagMissing}

// MarshalCSV writes the numeric code.
func (f Flag) MarshalCSV() ([]byte, error) {
	return []byte(strconv.Itoa(int(f))), nil
}

// UnmarshalCSV accepts the numeric code, including float renderings like "2.0".
func (f *Flag) UnmarshalCSV(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" {
		*f = FlagUnset
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return eris.Wrapf(err, "track: parse flag %q", s)
	}
	v := Flag(int(n))
	if !v.Valid() {
		return eris.Errorf("track: unknown flag code %q", s)
	}
	*f = v
	return nil
}

// Flags holds the per-axis qualifiers of a fix.
type Flags struct {
	Speed        Flag
	Course       Flag
	Acceleration Flag
	Visual       Flag
}

// Reduce folds the per-axis flags into the overall flag. Precedence, first
// match wins: any bad, all pristine, any suspect, otherwise ok.
func Reduce(f Flags) Flag {
	all := [...]Flag{f.Speed, f.Course, f.Acceleration, f.Visual}
	for _, v := range all {
		if v == FlagBad {
			return FlagBad
		}
	}
	pristine := true
	for _, v := range all {
		if v != FlagPristine {
			pristine = false
			break
		}
	}
	if pristine {
		return FlagPristine
	}
	for _, v := range all {
		if v == FlagSuspect {
			return FlagSuspect
		}
	}
	return FlagOK
}
