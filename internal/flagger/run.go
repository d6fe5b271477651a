package flagger

import (
	"context"

	"cruisetrack/internal/exclusion"
	"cruisetrack/internal/logging"
	"cruisetrack/internal/track"
)

// Axis names one flag column.
type Axis string

const (
	AxisSpeed        Axis = "speed"
	AxisCourse       Axis = "course"
	AxisAcceleration Axis = "acceleration"
	AxisVisual       Axis = "visual"
	AxisOverall      Axis = "overall"
)

// Axes lists the flag columns in report order.
var Axes = []Axis{AxisSpeed, AxisCourse, AxisAcceleration, AxisVisual, AxisOverall}

// Tally counts flag values per axis for one instrument.
type Tally struct {
	DeviceID string
	Fixes    int
	Bound    float64
	Counts   map[Axis]map[track.Flag]int
}

func newTally(device string) Tally {
	t := Tally{DeviceID: device, Counts: make(map[Axis]map[track.Flag]int, len(Axes))}
	for _, a := range Axes {
		t.Counts[a] = make(map[track.Flag]int)
	}
	return t
}

func (t *Tally) add(f track.Fix) {
	t.Fixes++
	t.Counts[AxisSpeed][f.Flags.Speed]++
	t.Counts[AxisCourse][f.Flags.Course]++
	t.Counts[AxisAcceleration][f.Flags.Acceleration]++
	t.Counts[AxisVisual][f.Flags.Visual]++
	t.Counts[AxisOverall][f.Overall]++
}

// Count returns the number of fixes with flag v on axis a.
func (t Tally) Count(a Axis, v track.Flag) int { return t.Counts[a][v] }

// Run flags one instrument stream in place: measure, derive the speed bound,
// flag kinematics, overlay exclusion windows and reduce to the overall flag.
// fixes must already be sorted by time.
func Run(ctx context.Context, device string, fixes []track.Fix, th Thresholds, windows *exclusion.Set) Tally {
	log := logging.FromContext(ctx).With("device_id", device)
	tally := newTally(device)
	if len(fixes) == 0 {
		log.Info("no fixes to flag")
		return tally
	}

	Measure(fixes)
	bound := SpeedBound(Speeds(fixes), th)
	tally.Bound = bound
	log.Info("speed bound", "knots", bound)

	Flag(logging.NewContext(ctx, log), fixes, th, bound)
	excluded := windows.Apply(fixes)
	for i := range fixes {
		fixes[i].Overall = track.Reduce(fixes[i].Flags)
		tally.add(fixes[i])
	}
	log.Info("flagged instrument",
		"fixes", tally.Fixes,
		"speed_bad", tally.Count(AxisSpeed, track.FlagBad),
		"course_bad", tally.Count(AxisCourse, track.FlagBad),
		"acceleration_bad", tally.Count(AxisAcceleration, track.FlagBad),
		"excluded", excluded,
		"missing", tally.Count(AxisSpeed, track.FlagMissing))
	return tally
}
