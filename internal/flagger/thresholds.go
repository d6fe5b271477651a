// Package flagger assigns kinematic quality flags to one instrument's
// time-sorted stream of fixes.
package flagger

// Thresholds are the tunable limits of the kinematic checks.
type Thresholds struct {
	// TurnDegrees is the smallest course change that counts as a turn.
	TurnDegrees float64
	// StationaryTurnKnots separates a turn while moving (bad) from one while
	// nearly stationary (suspect).
	StationaryTurnKnots float64
	// MaxAccelerationMS2 is the largest plausible acceleration magnitude.
	MaxAccelerationMS2 float64
	// StationaryKnots and GlitchKnots bound the speed sample used for the
	// interquartile speed limit.
	StationaryKnots float64
	GlitchKnots     float64
	// IQRFactor scales the interquartile range added to Q3.
	IQRFactor float64
}

// DefaultThresholds returns the limits used for shipboard GPS receivers.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TurnDegrees:         5,
		StationaryTurnKnots: 0.3,
		MaxAccelerationMS2:  1,
		StationaryKnots:     2.5,
		GlitchKnots:         100,
		IQRFactor:           1.5,
	}
}
