// Package synth generates synthetic shipboard GPS logs for demos and
// end-to-end checks of the flagging pipeline.
package synth

import (
	"encoding/csv"
	"io"
	"math"
	"math/rand"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"cruisetrack/internal/geodesy"
	"cruisetrack/internal/track"
)

const metresPerDegree = 111000

// glitchDegrees is how far a glitched fix jumps, roughly 1 km.
const glitchDegrees = 0.01

// Vessel holds the simulated ship's true state.
type Vessel struct {
	Position   geodesy.Point
	Heading    float64 // degrees
	SpeedKnots float64
}

// Generator simulates one GPS receiver on board a vessel.
type Generator struct {
	DeviceID string
	Interval time.Duration
	// Offset shifts every fix within its second, as receivers rarely report
	// on the whole second.
	Offset      time.Duration
	GlitchRate  float64
	DropoutRate float64
	// HeadingWander and SpeedWander bound the per-step random walk.
	HeadingWander float64
	SpeedWander   float64

	rng *rand.Rand
}

// Stats records what the generator did to the ideal track.
type Stats struct {
	Emitted  int
	Dropped  int
	Glitches []time.Time
}

// NewGenerator creates a generator with a deterministic random source.
func NewGenerator(deviceID string, seed int64) *Generator {
	return &Generator{
		DeviceID:      deviceID,
		Interval:      time.Second,
		HeadingWander: 0.5,
		SpeedWander:   0.05,
		rng:           rand.New(rand.NewSource(seed)),
	}
}

// Step advances v by dt.
func (g *Generator) Step(v *Vessel, dt time.Duration) {
	v.Heading = geodesy.NormalizeBearing(v.Heading + (g.rng.Float64()*2-1)*g.HeadingWander)
	v.SpeedKnots = math.Max(0, v.SpeedKnots+(g.rng.Float64()*2-1)*g.SpeedWander)
	v.Position = move(v.Position, v.Heading, geodesy.KnotsToMetresPerSecond(v.SpeedKnots)*dt.Seconds())
}

// move displaces p by metres along heading on a local flat-earth approximation.
func move(p geodesy.Point, heading, metres float64) geodesy.Point {
	h := heading * math.Pi / 180
	return geodesy.Point{
		Lat: p.Lat + metres*math.Cos(h)/metresPerDegree,
		Lon: p.Lon + metres*math.Sin(h)/(metresPerDegree*math.Cos(p.Lat*math.Pi/180)),
	}
}

// Generate produces n fixes starting at start. The first fix is never
// glitched or dropped, and a fix directly after a glitch is never glitched.
func (g *Generator) Generate(start time.Time, v Vessel, n int) ([]track.Fix, Stats) {
	var (
		fixes        []track.Fix
		st           Stats
		prevGlitched bool
	)
	t := start.UTC().Add(g.Offset)
	for i := 0; i < n; i++ {
		if i > 0 {
			g.Step(&v, g.Interval)
			t = t.Add(g.Interval)
			if g.rng.Float64() < g.DropoutRate {
				st.Dropped++
				continue
			}
		}
		f := g.fix(v, t)
		glitched := false
		if i > 0 && g.rng.Float64() < g.GlitchRate && !prevGlitched {
			f.Latitude += glitchDegrees
			st.Glitches = append(st.Glitches, t)
			glitched = true
		}
		prevGlitched = glitched
		fixes = append(fixes, f)
		st.Emitted++
	}
	return fixes, st
}

func (g *Generator) fix(v Vessel, t time.Time) track.Fix {
	return track.Fix{
		Time:             t,
		Latitude:         v.Position.Lat,
		Longitude:        v.Position.Lon,
		FixQuality:       1,
		Satellites:       8 + g.rng.Intn(5),
		HDOP:             math.Round((0.7+g.rng.Float64()*0.6)*100) / 100,
		Altitude:         math.Round((15+g.rng.Float64()*2)*10) / 10,
		AltitudeUnits:    "M",
		GeoidHeight:      -12.3,
		GeoidHeightUnits: "M",
		DeviceID:         g.DeviceID,
		Speed:            math.NaN(),
	}
}

// WriteCSV writes fixes in the instrument log format.
func WriteCSV(w io.Writer, fixes []track.Fix) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if err := enc.EncodeHeader(track.InstrumentRecord{}); err != nil {
		return eris.Wrap(err, "synth: encode header")
	}
	for _, f := range fixes {
		if err := enc.Encode(f.Instrument()); err != nil {
			return eris.Wrapf(err, "synth: encode fix at %s", f.Time)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "synth: flush")
}
