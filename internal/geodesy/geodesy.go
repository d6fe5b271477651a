// Package geodesy holds the spherical-earth helpers used to derive kinematics
// between consecutive position fixes.
package geodesy

import (
	"math"
	"time"

	"github.com/rotisserie/eris"
)

// EarthRadiusMetres is the mean earth radius used by the haversine formula.
const EarthRadiusMetres = 6371000.0

const metresPerNauticalMile = 1852.0

// ErrNoElapsedTime is returned when two fixes share a timestamp and no speed
// can be derived.
var ErrNoElapsedTime = eris.New("geodesy: no elapsed time between fixes")

// Point is a position in signed decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

func radians(d float64) float64 { return d * math.Pi / 180 }
func degrees(r float64) float64 { return r * 180 / math.Pi }

// Distance returns the great-circle distance between a and b in metres.
func Distance(a, b Point) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLat := lat2 - lat1
	dLon := radians(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusMetres * math.Asin(math.Sqrt(h))
}

// Bearing returns the initial bearing from a to b in degrees, in (-180, 180].
func Bearing(a, b Point) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLon := radians(b.Lon - a.Lon)
	x := math.Sin(dLon) * math.Cos(lat2)
	y := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	brg := degrees(math.Atan2(x, y))
	if brg == -180 {
		brg = 180
	}
	return brg
}

// BearingDifference returns curr-prev folded into [-180, 180].
func BearingDifference(curr, prev float64) float64 {
	d := curr - prev
	for d > 180 {
		d -= 360
	}
	for d < -180 {
		d += 360
	}
	return d
}

// NormalizeBearing maps any bearing into [0, 360).
func NormalizeBearing(b float64) float64 {
	b = math.Mod(b, 360)
	if b < 0 {
		b += 360
	}
	return b
}

// SpeedKnots returns the distance in metres and the speed in knots between
// two timed positions. The elapsed time is taken as an absolute value.
func SpeedKnots(a, b Point, at, bt time.Time) (float64, float64, error) {
	metres := Distance(a, b)
	elapsed := math.Abs(bt.Sub(at).Seconds())
	if elapsed == 0 {
		return metres, math.NaN(), ErrNoElapsedTime
	}
	return metres, MetresPerSecondToKnots(metres / elapsed), nil
}

// MetresPerSecondToKnots converts m/s to knots.
func MetresPerSecondToKnots(v float64) float64 { return v * 3600 / metresPerNauticalMile }

// KnotsToMetresPerSecond converts knots to m/s.
func KnotsToMetresPerSecond(v float64) float64 { return v * metresPerNauticalMile / 3600 }
