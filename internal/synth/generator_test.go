package synth

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cruisetrack/internal/flagger"
	"cruisetrack/internal/geodesy"
	"cruisetrack/internal/ingest"
	"cruisetrack/internal/track"
)

var (
	start  = time.Date(2017, 1, 30, 0, 0, 0, 0, time.UTC)
	vessel = Vessel{Position: geodesy.Point{Lat: -64.5, Lon: -62.1}, Heading: 45, SpeedKnots: 10}
)

func TestGenerateIsDeterministic(t *testing.T) {
	a, _ := NewGenerator("gpsA", 7).Generate(start, vessel, 50)
	b, _ := NewGenerator("gpsA", 7).Generate(start, vessel, 50)
	assert.Empty(t, cmp.Diff(a, b, cmpopts.EquateNaNs()))

	c, _ := NewGenerator("gpsA", 8).Generate(start, vessel, 50)
	assert.NotEmpty(t, cmp.Diff(a, c, cmpopts.EquateNaNs()))
}

func TestGenerateSpacingAndOffset(t *testing.T) {
	g := NewGenerator("gpsA", 1)
	g.Offset = 600 * time.Millisecond
	fixes, st := g.Generate(start, vessel, 10)
	require.Len(t, fixes, 10)
	assert.Equal(t, 10, st.Emitted)
	for i, f := range fixes {
		assert.Equal(t, start.Add(time.Duration(i)*time.Second+600*time.Millisecond), f.Time)
		assert.Equal(t, "gpsA", f.DeviceID)
	}
}

func TestGenerateDropouts(t *testing.T) {
	g := NewGenerator("gpsA", 1)
	g.DropoutRate = 1
	fixes, st := g.Generate(start, vessel, 10)
	assert.Len(t, fixes, 1)
	assert.Equal(t, 9, st.Dropped)
}

func TestStepMovesAtSpeed(t *testing.T) {
	g := NewGenerator("gpsA", 1)
	g.HeadingWander, g.SpeedWander = 0, 0
	v := vessel
	g.Step(&v, time.Minute)
	_, knots, err := geodesy.SpeedKnots(vessel.Position, v.Position, start, start.Add(time.Minute))
	require.NoError(t, err)
	assert.InDelta(t, 10, knots, 0.1)
}

func TestGlitchesAreFlaggedBad(t *testing.T) {
	g := NewGenerator("gpsA", 42)
	g.GlitchRate = 0.02
	fixes, st := g.Generate(start, vessel, 1000)
	require.NotEmpty(t, st.Glitches)

	flagger.Run(context.Background(), "gpsA", fixes, flagger.DefaultThresholds(), nil)
	glitched := map[time.Time]bool{}
	for _, at := range st.Glitches {
		glitched[at] = true
	}
	for _, f := range fixes {
		if glitched[f.Time] {
			assert.Equal(t, track.FlagBad, f.Flags.Speed, "glitch at %s", f.Time)
			assert.Equal(t, track.FlagBad, f.Overall)
		}
	}
}

func TestNoBackToBackGlitches(t *testing.T) {
	g := NewGenerator("gpsA", 7)
	g.GlitchRate = 1
	fixes, st := g.Generate(start, vessel, 41)
	require.Len(t, fixes, 41)
	assert.Len(t, st.Glitches, 20)

	glitched := map[time.Time]bool{}
	for _, at := range st.Glitches {
		glitched[at] = true
	}
	flagger.Run(context.Background(), "gpsA", fixes, flagger.DefaultThresholds(), nil)
	for i, f := range fixes {
		assert.Equal(t, i%2 == 1, glitched[f.Time], "fix %d", i)
		if i > 0 && glitched[f.Time] {
			assert.False(t, glitched[fixes[i-1].Time], "fix %d follows a glitch", i)
			assert.Equal(t, track.FlagBad, f.Flags.Speed, "glitch at %s", f.Time)
		}
	}
}

func TestWriteCSVReadsBack(t *testing.T) {
	fixes, _ := NewGenerator("gpsB", 3).Generate(start, vessel, 20)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, fixes))

	res, err := ingest.ReadCSV(context.Background(), &buf, "synth", "")
	require.NoError(t, err)
	require.Len(t, res.Fixes, 20)
	assert.Zero(t, res.Skipped)
	assert.Equal(t, "gpsB", res.Fixes[0].DeviceID)
	assert.Equal(t, fixes[5].Time, res.Fixes[5].Time)
	assert.InDelta(t, fixes[5].Latitude, res.Fixes[5].Latitude, 1e-9)
}
