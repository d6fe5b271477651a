package flagger

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"cruisetrack/internal/track"
)

// SpeedBound returns the upper plausible speed in knots for a stream:
// Q3 + IQRFactor*IQR over the speeds within [StationaryKnots, GlitchKnots).
// With no usable samples the bound is GlitchKnots.
func SpeedBound(speeds []float64, th Thresholds) float64 {
	sample := make([]float64, 0, len(speeds))
	for _, v := range speeds {
		if math.IsNaN(v) || v < th.StationaryKnots || v >= th.GlitchKnots {
			continue
		}
		sample = append(sample, v)
	}
	if len(sample) == 0 {
		return th.GlitchKnots
	}
	sort.Float64s(sample)
	q1 := stat.Quantile(0.25, stat.LinInterp, sample, nil)
	q3 := stat.Quantile(0.75, stat.LinInterp, sample, nil)
	return q3 + th.IQRFactor*(q3-q1)
}

// Speeds collects the measured speeds of fixes.
func Speeds(fixes []track.Fix) []float64 {
	out := make([]float64, len(fixes))
	for i := range fixes {
		out[i] = fixes[i].Speed
	}
	return out
}
