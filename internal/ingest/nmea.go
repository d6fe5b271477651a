package ingest

import (
	"bufio"
	"context"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	"github.com/rotisserie/eris"

	"cruisetrack/internal/logging"
	"cruisetrack/internal/track"
)

// ReadNMEA decodes GGA sentences from a raw NMEA log. GGA carries only the
// time of day, so the calendar day starts at start and advances whenever the
// time of day goes backwards. An RMC sentence resets the day to its date.
func ReadNMEA(ctx context.Context, r io.Reader, name, device string, start time.Time) (Result, error) {
	log := logging.FromContext(ctx)
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	var (
		res     Result
		prevTOD time.Duration = -1
		line    int
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line++
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}
		raw := strings.TrimSpace(sc.Text())
		if i := strings.IndexAny(raw, "$!"); i > 0 {
			raw = raw[i:]
		}
		if raw == "" || (raw[0] != '$' && raw[0] != '!') {
			continue
		}
		s, err := nmea.Parse(raw)
		if err != nil {
			log.Warn("skipping malformed sentence", "file", name, "line", line, "record", raw, "err", err)
			res.Skipped++
			continue
		}
		switch s.DataType() {
		case nmea.TypeRMC:
			rmc := s.(nmea.RMC)
			if rmc.Date.Valid {
				day = time.Date(fullYear(rmc.Date.YY), time.Month(rmc.Date.MM), rmc.Date.DD, 0, 0, 0, 0, time.UTC)
				prevTOD = -1
			}
		case nmea.TypeGGA:
			gga := s.(nmea.GGA)
			if !gga.Time.Valid {
				res.Skipped++
				continue
			}
			tod := time.Duration(gga.Time.Hour)*time.Hour +
				time.Duration(gga.Time.Minute)*time.Minute +
				time.Duration(gga.Time.Second)*time.Second +
				time.Duration(gga.Time.Millisecond)*time.Millisecond
			if prevTOD >= 0 && tod < prevTOD {
				day = day.AddDate(0, 0, 1)
				log.Debug("day rollover", "file", name, "line", line, "day", track.Day(day))
			}
			prevTOD = tod
			q, _ := strconv.Atoi(gga.FixQuality)
			res.Fixes = append(res.Fixes, track.Fix{
				Time:             day.Add(tod),
				Latitude:         gga.Latitude,
				Longitude:        gga.Longitude,
				FixQuality:       q,
				Satellites:       int(gga.NumSatellites),
				HDOP:             gga.HDOP,
				Altitude:         gga.Altitude,
				AltitudeUnits:    "M",
				GeoidHeight:      gga.Separation,
				GeoidHeightUnits: "M",
				DeviceID:         device,
				Speed:            math.NaN(),
			})
		}
	}
	if err := sc.Err(); err != nil {
		return res, eris.Wrapf(err, "ingest: scan %s", name)
	}
	return res, nil
}

// ReadNMEAFile opens path and decodes it with ReadNMEA.
func ReadNMEAFile(ctx context.Context, path, device string, start time.Time) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close()
	return ReadNMEA(ctx, f, path, device, start)
}

func fullYear(yy int) int {
	if yy < 70 {
		return 2000 + yy
	}
	return 1900 + yy
}
