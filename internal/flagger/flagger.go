package flagger

import (
	"context"
	"math"

	"cruisetrack/internal/geodesy"
	"cruisetrack/internal/logging"
	"cruisetrack/internal/track"
)

func point(f track.Fix) geodesy.Point { return geodesy.Point{Lat: f.Latitude, Lon: f.Longitude} }

// Measure derives distance and speed for every fix from its predecessor.
// The first fix gets distance 0 and a NaN speed, as does any fix that shares
// its predecessor's timestamp.
func Measure(fixes []track.Fix) {
	for i := range fixes {
		if i == 0 {
			fixes[i].Distance = 0
			fixes[i].Speed = math.NaN()
			continue
		}
		metres, knots, err := geodesy.SpeedKnots(point(fixes[i-1]), point(fixes[i]), fixes[i-1].Time, fixes[i].Time)
		fixes[i].Distance = metres
		if err != nil {
			fixes[i].Speed = math.NaN()
			continue
		}
		fixes[i].Speed = knots
	}
}

// state is the rolling context carried from one fix to the next.
type state struct {
	prev        track.Fix
	prevBearing float64
	prevSpeed   float64
}

// checker flags one fix against the rolling state.
type checker struct {
	th    Thresholds
	bound float64
}

// step flags fix and returns the state for its successor. The previous
// bearing is kept when the current one is undefined and the previous speed is
// kept when the current one is not computable.
func (c checker) step(s state, fix track.Fix) (state, track.Fix) {
	speedOK := !math.IsNaN(fix.Speed)

	switch {
	case !speedOK:
		fix.Flags.Speed = track.FlagMissing
	case fix.Speed > c.bound:
		fix.Flags.Speed = track.FlagBad
	default:
		fix.Flags.Speed = track.FlagOK
	}

	bearingOK := speedOK && fix.Distance > 0 && !math.IsNaN(fix.Distance)
	var bearing float64
	if bearingOK {
		bearing = geodesy.Bearing(point(s.prev), point(fix))
		fix.Bearing = geodesy.NormalizeBearing(bearing)
		diff := math.Abs(geodesy.BearingDifference(bearing, s.prevBearing))
		switch {
		case diff >= c.th.TurnDegrees && fix.Speed > c.th.StationaryTurnKnots:
			fix.Flags.Course = track.FlagBad
		case diff >= c.th.TurnDegrees:
			fix.Flags.Course = track.FlagSuspect
		default:
			fix.Flags.Course = track.FlagOK
		}
	} else {
		fix.Bearing = math.NaN()
		fix.Flags.Course = track.FlagMissing
	}

	if speedOK {
		elapsed := fix.Time.Sub(s.prev.Time).Seconds()
		if elapsed > 0 {
			fix.Acceleration = geodesy.KnotsToMetresPerSecond(fix.Speed-s.prevSpeed) / elapsed
		} else {
			fix.Acceleration = 0
		}
		if math.Abs(fix.Acceleration) > c.th.MaxAccelerationMS2 {
			fix.Flags.Acceleration = track.FlagBad
		} else {
			fix.Flags.Acceleration = track.FlagOK
		}
	} else {
		fix.Acceleration = 0
		fix.Flags.Acceleration = track.FlagMissing
	}

	next := state{prev: fix, prevBearing: s.prevBearing, prevSpeed: s.prevSpeed}
	if bearingOK {
		next.prevBearing = bearing
	}
	if speedOK {
		next.prevSpeed = fix.Speed
	}
	return next, fix
}

// Flag assigns the speed, course and acceleration flags of fixes in place
// given a speed bound. The first fix is pristine on all three axes.
func Flag(ctx context.Context, fixes []track.Fix, th Thresholds, bound float64) {
	if len(fixes) == 0 {
		return
	}
	log := logging.FromContext(ctx)
	c := checker{th: th, bound: bound}

	first := &fixes[0]
	first.Flags.Speed = track.FlagPristine
	first.Flags.Course = track.FlagPristine
	first.Flags.Acceleration = track.FlagPristine
	first.Bearing = math.NaN()
	first.Acceleration = 0

	s := state{prev: *first}
	for i := 1; i < len(fixes); i++ {
		s, fixes[i] = c.step(s, fixes[i])
		f := &fixes[i]
		if f.Flags.Speed == track.FlagBad || f.Flags.Course == track.FlagBad || f.Flags.Acceleration == track.FlagBad {
			log.Debug("kinematic check failed",
				"device_id", f.DeviceID, "time", f.Time,
				"lat", f.Latitude, "lon", f.Longitude,
				"speed_kn", f.Speed, "bearing", f.Bearing, "accel_ms2", f.Acceleration,
				"speed_flag", f.Flags.Speed, "course_flag", f.Flags.Course, "accel_flag", f.Flags.Acceleration)
		}
		if f.Flags.Speed == track.FlagMissing {
			log.Debug("speed not computable", "device_id", f.DeviceID, "time", f.Time)
		}
	}
}
