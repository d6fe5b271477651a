// Package output holds the sinks a prioritized track can be written to.
package output

import (
	"math"
	"time"

	"cruisetrack/internal/track"
)

// Writer receives prioritized rows one at a time.
type Writer interface {
	Write(track.Combined) error
}

// batchWriter is implemented by sinks that prefer rows in batches.
type batchWriter interface {
	WriteBatch([]track.Combined) error
}

// Flusher is implemented by buffered sinks.
type Flusher interface {
	Flush() error
}

// jsonRow is the JSON form of a row. NaN values are encoded as null.
type jsonRow struct {
	Time             time.Time `json:"date_time"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	FixQuality       *int      `json:"fix_quality"`
	Satellites       *int      `json:"number_satellites"`
	HDOP             *float64  `json:"horiz_dilution_of_position"`
	Altitude         *float64  `json:"altitude"`
	AltitudeUnits    string    `json:"altitude_units,omitempty"`
	GeoidHeight      *float64  `json:"geoid_height"`
	GeoidHeightUnits string    `json:"geoid_height_units,omitempty"`
	DeviceID         string    `json:"device_id"`
	Speed            *float64  `json:"speed"`
	Overall          int       `json:"measureland_qualifier_flag_overall"`
	RunID            string    `json:"run_id,omitempty"`
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func nullableCount(v int) *int {
	if v < 0 {
		return nil
	}
	return &v
}

func toJSON(c track.Combined, runID string) jsonRow {
	return jsonRow{
		Time:             c.Time.UTC(),
		Latitude:         c.Latitude,
		Longitude:        c.Longitude,
		FixQuality:       nullableCount(c.FixQuality),
		Satellites:       nullableCount(c.Satellites),
		HDOP:             nullable(c.HDOP),
		Altitude:         nullable(c.Altitude),
		AltitudeUnits:    c.AltitudeUnits,
		GeoidHeight:      nullable(c.GeoidHeight),
		GeoidHeightUnits: c.GeoidHeightUnits,
		DeviceID:         c.DeviceID,
		Speed:            nullable(c.Speed),
		Overall:          int(c.Overall),
		RunID:            runID,
	}
}

func fromJSON(r jsonRow) track.Combined {
	val := func(p *float64) float64 {
		if p == nil {
			return math.NaN()
		}
		return *p
	}
	count := func(p *int) int {
		if p == nil {
			return track.NoCount
		}
		return *p
	}
	return track.Combined{
		Time:             r.Time.UTC(),
		Latitude:         r.Latitude,
		Longitude:        r.Longitude,
		FixQuality:       count(r.FixQuality),
		Satellites:       count(r.Satellites),
		HDOP:             val(r.HDOP),
		Altitude:         val(r.Altitude),
		AltitudeUnits:    r.AltitudeUnits,
		GeoidHeight:      val(r.GeoidHeight),
		GeoidHeightUnits: r.GeoidHeightUnits,
		DeviceID:         r.DeviceID,
		Speed:            val(r.Speed),
		Overall:          track.Flag(r.Overall),
	}
}
