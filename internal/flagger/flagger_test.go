package flagger

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cruisetrack/internal/exclusion"
	"cruisetrack/internal/geodesy"
	"cruisetrack/internal/track"
)

const metresPerDegree = geodesy.EarthRadiusMetres * math.Pi / 180

var t0 = time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)

// path builds one fix per second near the equator, each leg given as a
// north and east displacement in metres.
func path(legs ...[2]float64) []track.Fix {
	fixes := []track.Fix{{Time: t0, DeviceID: "gps1"}}
	lat, lon := 0.0, 0.0
	for i, leg := range legs {
		lat += leg[0] / metresPerDegree
		lon += leg[1] / metresPerDegree
		fixes = append(fixes, track.Fix{
			Time:      t0.Add(time.Duration(i+1) * time.Second),
			Latitude:  lat,
			Longitude: lon,
			DeviceID:  "gps1",
		})
	}
	return fixes
}

func knots(kn float64) float64 { return geodesy.KnotsToMetresPerSecond(kn) }

func TestFirstFixPristine(t *testing.T) {
	fixes := path([2]float64{knots(10), 0})
	Run(context.Background(), "gps1", fixes, DefaultThresholds(), nil)
	f := fixes[0]
	assert.Equal(t, track.FlagPristine, f.Flags.Speed)
	assert.Equal(t, track.FlagPristine, f.Flags.Course)
	assert.Equal(t, track.FlagPristine, f.Flags.Acceleration)
	assert.Equal(t, track.FlagOK, f.Flags.Visual)
	assert.Equal(t, track.FlagOK, f.Overall)
	assert.True(t, math.IsNaN(f.Speed))
}

func TestZeroElapsedIsMissing(t *testing.T) {
	fixes := []track.Fix{
		{Time: t0, Latitude: 0, Longitude: 0},
		{Time: t0, Latitude: 0.001, Longitude: 0},
	}
	Measure(fixes)
	Flag(context.Background(), fixes, DefaultThresholds(), 100)
	f := fixes[1]
	assert.Equal(t, track.FlagMissing, f.Flags.Speed)
	assert.Equal(t, track.FlagMissing, f.Flags.Course)
	assert.Equal(t, track.FlagMissing, f.Flags.Acceleration)
	assert.Zero(t, f.Acceleration)
}

func TestStationaryCourseMissing(t *testing.T) {
	fixes := path([2]float64{0, 0})
	Measure(fixes)
	Flag(context.Background(), fixes, DefaultThresholds(), 100)
	f := fixes[1]
	assert.Equal(t, track.FlagOK, f.Flags.Speed)
	assert.Zero(t, f.Speed)
	assert.Equal(t, track.FlagMissing, f.Flags.Course)
	assert.Equal(t, track.FlagOK, f.Flags.Acceleration)
}

func TestTurnWhileMovingIsBad(t *testing.T) {
	v := knots(10)
	fixes := path([2]float64{v, 0}, [2]float64{v, 0}, [2]float64{0, v})
	Measure(fixes)
	Flag(context.Background(), fixes, DefaultThresholds(), 100)

	// from rest to 10 kn in one second
	assert.Equal(t, track.FlagBad, fixes[1].Flags.Acceleration)
	assert.Equal(t, track.FlagOK, fixes[1].Flags.Course)

	assert.Equal(t, track.FlagOK, fixes[2].Flags.Course)
	assert.Equal(t, track.FlagOK, fixes[2].Flags.Acceleration)
	assert.InDelta(t, 10, fixes[2].Speed, 1e-6)
	assert.InDelta(t, 0, fixes[2].Bearing, 1e-6)

	assert.Equal(t, track.FlagBad, fixes[3].Flags.Course)
	assert.InDelta(t, 90, fixes[3].Bearing, 1e-3)
}

func TestTurnWhileNearlyStationaryIsSuspect(t *testing.T) {
	v := knots(0.2)
	fixes := path([2]float64{v, 0}, [2]float64{0, v})
	Measure(fixes)
	Flag(context.Background(), fixes, DefaultThresholds(), 100)
	assert.Equal(t, track.FlagOK, fixes[1].Flags.Course)
	assert.Equal(t, track.FlagSuspect, fixes[2].Flags.Course)
	assert.Equal(t, track.FlagSuspect, track.Reduce(track.Flags{
		Speed: fixes[2].Flags.Speed, Course: fixes[2].Flags.Course,
		Acceleration: fixes[2].Flags.Acceleration, Visual: track.FlagOK,
	}))
}

func TestSpeedAboveBoundIsBad(t *testing.T) {
	fixes := path([2]float64{knots(10), 0}, [2]float64{knots(10.5), 0}, [2]float64{knots(30), 0})
	Measure(fixes)
	Flag(context.Background(), fixes, DefaultThresholds(), 20)
	assert.Equal(t, track.FlagOK, fixes[1].Flags.Speed)
	assert.Equal(t, track.FlagOK, fixes[2].Flags.Speed)
	assert.Equal(t, track.FlagBad, fixes[3].Flags.Speed)
}

func TestUndefinedBearingKeepsPrevious(t *testing.T) {
	v := knots(0.5)
	// east, pause, east again: the pause must not reset the reference bearing
	fixes := path([2]float64{0, v}, [2]float64{0, 0}, [2]float64{0, v})
	Measure(fixes)
	Flag(context.Background(), fixes, DefaultThresholds(), 100)
	assert.Equal(t, track.FlagBad, fixes[1].Flags.Course, "first leg turns from the initial north reference")
	assert.Equal(t, track.FlagMissing, fixes[2].Flags.Course)
	assert.Equal(t, track.FlagOK, fixes[3].Flags.Course)
}

func TestSpeedBound(t *testing.T) {
	th := DefaultThresholds()
	assert.Equal(t, 100.0, SpeedBound(nil, th))
	assert.Equal(t, 100.0, SpeedBound([]float64{math.NaN(), 1, 2, 150}, th))
	assert.InDelta(t, 10, SpeedBound([]float64{10, 10, 10, 1, 120, math.NaN()}, th), 1e-9)

	speeds := []float64{8, 9, 10, 11, 12, 13, 14}
	b := SpeedBound(speeds, th)
	assert.Greater(t, b, 14.0)
	assert.Less(t, b, 30.0)
}

func TestRunTallyAndExclusion(t *testing.T) {
	fixes := path([2]float64{knots(9), 0}, [2]float64{knots(10), 0}, [2]float64{knots(11), 0})
	windows := exclusion.NewSet(exclusion.Window{Start: t0.Add(2 * time.Second), End: t0.Add(2 * time.Second)})
	tally := Run(context.Background(), "gps1", fixes, DefaultThresholds(), windows)

	require.Equal(t, 4, tally.Fixes)
	assert.Equal(t, track.FlagBad, fixes[2].Flags.Visual)
	assert.Equal(t, track.FlagBad, fixes[2].Overall)
	assert.Equal(t, track.FlagOK, fixes[3].Overall)
	assert.Equal(t, 1, tally.Count(AxisVisual, track.FlagBad))
	assert.Equal(t, 1, tally.Count(AxisSpeed, track.FlagPristine))
	assert.Equal(t, track.FlagOK, fixes[3].Flags.Speed)
	assert.Greater(t, tally.Bound, 11.0)
}

func TestRunEmpty(t *testing.T) {
	tally := Run(context.Background(), "gps1", nil, DefaultThresholds(), nil)
	assert.Zero(t, tally.Fixes)
}
