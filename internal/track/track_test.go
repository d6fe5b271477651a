package track

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduce(t *testing.T) {
	cases := []struct {
		name  string
		flags Flags
		want  Flag
	}{
		{"bad wins over pristine", Flags{FlagBad, FlagPristine, FlagPristine, FlagPristine}, FlagBad},
		{"bad wins over suspect", Flags{FlagOK, FlagSuspect, FlagOK, FlagBad}, FlagBad},
		{"all pristine", Flags{FlagPristine, FlagPristine, FlagPristine, FlagPristine}, FlagPristine},
		{"first fix with ok visual", Flags{FlagPristine, FlagPristine, FlagPristine, FlagOK}, FlagOK},
		{"suspect", Flags{FlagOK, FlagSuspect, FlagOK, FlagOK}, FlagSuspect},
		{"all ok", Flags{FlagOK, FlagOK, FlagOK, FlagOK}, FlagOK},
		{"missing reduces to ok", Flags{FlagMissing, FlagMissing, FlagMissing, FlagOK}, FlagOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Reduce(tc.flags))
		})
	}
}

func TestFlagCSV(t *testing.T) {
	var f Flag
	require.NoError(t, f.UnmarshalCSV([]byte("5")))
	assert.Equal(t, FlagBad, f)
	require.NoError(t, f.UnmarshalCSV([]byte("2.0")))
	assert.Equal(t, FlagOK, f)
	assert.Error(t, f.UnmarshalCSV([]byte("4")))
	assert.Error(t, f.UnmarshalCSV([]byte("x")))
	b, err := FlagMissing.MarshalCSV()
	require.NoError(t, err)
	assert.Equal(t, "10", string(b))
	assert.Equal(t, "suspect", FlagSuspect.String())
}

func TestParseTime(t *testing.T) {
	want := time.Date(2017, 1, 30, 12, 0, 1, 500000000, time.UTC)
	for _, s := range []string{
		"2017-01-30 12:00:01.5",
		"2017-01-30T12:00:01.5",
		"2017-01-30T12:00:01.5Z",
		"2017-01-30 12:00:01.5+00:00",
	} {
		got, err := ParseTime(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), s)
	}
	_, err := ParseTime("30/01/2017")
	assert.Error(t, err)
}

func TestTimestampRendering(t *testing.T) {
	ts := Timestamp(time.Date(2017, 1, 30, 12, 0, 1, 0, time.UTC))
	b, err := ts.MarshalCSV()
	require.NoError(t, err)
	assert.Equal(t, "2017-01-30 12:00:01", string(b))

	ts = Timestamp(time.Date(2017, 1, 30, 12, 0, 1, 250000000, time.UTC))
	b, _ = ts.MarshalCSV()
	assert.Equal(t, "2017-01-30 12:00:01.25", string(b))
}

func TestFloatNaN(t *testing.T) {
	var f Float
	require.NoError(t, f.UnmarshalCSV([]byte("")))
	assert.True(t, math.IsNaN(float64(f)))
	require.NoError(t, f.UnmarshalCSV([]byte("nan")))
	assert.True(t, math.IsNaN(float64(f)))
	b, _ := f.MarshalCSV()
	assert.Equal(t, "NaN", string(b))
	require.NoError(t, f.UnmarshalCSV([]byte("-64.125")))
	b, _ = f.MarshalCSV()
	assert.Equal(t, "-64.125", string(b))
	assert.Error(t, f.UnmarshalCSV([]byte("north")))
}

func TestCount(t *testing.T) {
	var c Count
	require.NoError(t, c.UnmarshalCSV([]byte("7.0")))
	assert.Equal(t, Count(7), c)
	b, _ := c.MarshalCSV()
	assert.Equal(t, "7", string(b))
	require.NoError(t, c.UnmarshalCSV([]byte("0")))
	b, _ = c.MarshalCSV()
	assert.Equal(t, "0", string(b))
	assert.Error(t, c.UnmarshalCSV([]byte("-2")))
	assert.Error(t, c.UnmarshalCSV([]byte("many")))
}

func TestCountMissingRoundTrip(t *testing.T) {
	for _, cell := range []string{"", "NaN", "nan", " "} {
		var c Count
		require.NoError(t, c.UnmarshalCSV([]byte(cell)), "cell %q", cell)
		assert.Equal(t, Count(NoCount), c, "cell %q", cell)
		b, err := c.MarshalCSV()
		require.NoError(t, err)
		assert.Equal(t, "NaN", string(b), "cell %q", cell)
	}
}

func TestCombineDropsAxisFlags(t *testing.T) {
	f := Fix{
		Time:     time.Date(2017, 1, 1, 0, 0, 0, 700000000, time.UTC),
		DeviceID: "gps1",
		Speed:    11.2,
		Flags:    Flags{FlagOK, FlagSuspect, FlagOK, FlagOK},
		Overall:  FlagSuspect,
	}
	c := f.Combine()
	assert.Equal(t, FlagSuspect, c.Overall)
	assert.Equal(t, "gps1", c.DeviceID)
	assert.Equal(t, time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), c.Second())
	assert.Equal(t, c, c.Record().Combined())
}

func TestFlaggedDay(t *testing.T) {
	f := Fix{Time: time.Date(2017, 2, 3, 23, 59, 59, 0, time.UTC), Speed: math.NaN()}
	assert.Equal(t, "2017-02-03", f.Flagged().Day)
}
