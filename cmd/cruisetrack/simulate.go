package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"cruisetrack/internal/geodesy"
	"cruisetrack/internal/logging"
	"cruisetrack/internal/synth"
	"cruisetrack/internal/track"
)

var (
	simDevice   string
	simStart    string
	simDuration time.Duration
	simOffset   time.Duration
	simLat      float64
	simLon      float64
	simHeading  float64
	simSpeed    float64
	simGlitch   float64
	simDropout  float64
	simSeed     int64
	simOutput   string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Write a synthetic instrument log",
	Long:  "simulate writes a one-fix-per-second GPS log for a vessel on a wandering course, with optional glitches and dropouts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		start, err := track.ParseTime(simStart)
		if err != nil {
			return err
		}
		g := synth.NewGenerator(simDevice, simSeed)
		g.Offset = simOffset
		g.GlitchRate = simGlitch
		g.DropoutRate = simDropout
		v := synth.Vessel{Position: geodesy.Point{Lat: simLat, Lon: simLon}, Heading: simHeading, SpeedKnots: simSpeed}
		fixes, st := g.Generate(start, v, int(simDuration/g.Interval))

		out := cmd.OutOrStdout()
		if simOutput != "" {
			f, err := os.Create(simOutput)
			if err != nil {
				return eris.Wrapf(err, "simulate: create %s", simOutput)
			}
			defer f.Close()
			out = f
		}
		if err := synth.WriteCSV(out, fixes); err != nil {
			return err
		}
		logging.FromContext(ctx).Info("simulated instrument", "device_id", simDevice,
			"fixes", st.Emitted, "dropped", st.Dropped, "glitches", len(st.Glitches))
		return nil
	},
}

func init() {
	f := simulateCmd.Flags()
	f.StringVar(&simDevice, "device", "gps", "Device id written to every fix")
	f.StringVar(&simStart, "start", "2017-01-30 00:00:00", "First fix time (UTC)")
	f.DurationVar(&simDuration, "duration", time.Hour, "Length of the log")
	f.DurationVar(&simOffset, "offset", 0, "Sub-second offset of every fix")
	f.Float64Var(&simLat, "lat", -64.5, "Start latitude")
	f.Float64Var(&simLon, "lon", -62.1, "Start longitude")
	f.Float64Var(&simHeading, "heading", 45, "Start heading in degrees")
	f.Float64Var(&simSpeed, "speed", 10, "Start speed in knots")
	f.Float64Var(&simGlitch, "glitch-rate", 0.001, "Probability a fix jumps about 1 km")
	f.Float64Var(&simDropout, "dropout-rate", 0, "Probability a fix is missing")
	f.Int64Var(&simSeed, "seed", 1, "Random seed")
	f.StringVar(&simOutput, "output", "", "Output CSV path (STDOUT when empty)")
}
