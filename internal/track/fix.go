// Package track defines the position fix model shared by the flagging,
// fusion and prioritization stages, and its CSV record forms.
package track

import (
	"math"
	"time"
)

// Column is an input column carried through untouched.
type Column struct {
	Name  string
	Value string
}

// Fix is one position report from one instrument.
type Fix struct {
	Time             time.Time
	Latitude         float64
	Longitude        float64
	FixQuality       int // NoCount when unknown
	Satellites       int // NoCount when unknown
	HDOP             float64
	Altitude         float64
	AltitudeUnits    string
	GeoidHeight      float64
	GeoidHeightUnits string
	DeviceID         string
	Extra            []Column

	// Derived from the previous fix of the same instrument.
	Distance     float64 // metres
	Speed        float64 // knots, NaN when not computable
	Bearing      float64 // degrees in [0, 360)
	Acceleration float64 // m/s²

	Flags   Flags
	Overall Flag
}

// Combined is a fix after fusion: the per-axis flags are dropped and only the
// overall flag remains.
type Combined struct {
	Time             time.Time
	Latitude         float64
	Longitude        float64
	FixQuality       int
	Satellites       int
	HDOP             float64
	Altitude         float64
	AltitudeUnits    string
	GeoidHeight      float64
	GeoidHeightUnits string
	DeviceID         string
	Speed            float64
	Overall          Flag
}

// Combine projects a flagged fix to the combined schema.
func (f Fix) Combine() Combined {
	return Combined{
		Time:             f.Time,
		Latitude:         f.Latitude,
		Longitude:        f.Longitude,
		FixQuality:       f.FixQuality,
		Satellites:       f.Satellites,
		HDOP:             f.HDOP,
		Altitude:         f.Altitude,
		AltitudeUnits:    f.AltitudeUnits,
		GeoidHeight:      f.GeoidHeight,
		GeoidHeightUnits: f.GeoidHeightUnits,
		DeviceID:         f.DeviceID,
		Speed:            f.Speed,
		Overall:          f.Overall,
	}
}

// Second is the per-second bucket key of the fix.
func (c Combined) Second() time.Time { return c.Time.Truncate(time.Second) }

// CombinedHeader is the column order of combined and prioritized CSV files.
var CombinedHeader = []string{
	"date_time", "latitude", "longitude", "fix_quality", "number_satellites",
	"horiz_dilution_of_position", "altitude", "altitude_units", "geoid_height",
	"geoid_height_units", "device_id", "speed", "measureland_qualifier_flag_overall",
}

// CombinedRecord is the CSV form of Combined.
type CombinedRecord struct {
	Time             Timestamp `csv:"date_time"`
	Latitude         Float     `csv:"latitude"`
	Longitude        Float     `csv:"longitude"`
	FixQuality       Count     `csv:"fix_quality"`
	Satellites       Count     `csv:"number_satellites"`
	HDOP             Float     `csv:"horiz_dilution_of_position"`
	Altitude         Float     `csv:"altitude"`
	AltitudeUnits    string    `csv:"altitude_units"`
	GeoidHeight      Float     `csv:"geoid_height"`
	GeoidHeightUnits string    `csv:"geoid_height_units"`
	DeviceID         string    `csv:"device_id"`
	Speed            Float     `csv:"speed"`
	Overall          Flag      `csv:"measureland_qualifier_flag_overall"`
}

// Record converts c to its CSV form.
func (c Combined) Record() CombinedRecord {
	return CombinedRecord{
		Time:             Timestamp(c.Time),
		Latitude:         Float(c.Latitude),
		Longitude:        Float(c.Longitude),
		FixQuality:       Count(c.FixQuality),
		Satellites:       Count(c.Satellites),
		HDOP:             Float(c.HDOP),
		Altitude:         Float(c.Altitude),
		AltitudeUnits:    c.AltitudeUnits,
		GeoidHeight:      Float(c.GeoidHeight),
		GeoidHeightUnits: c.GeoidHeightUnits,
		DeviceID:         c.DeviceID,
		Speed:            Float(c.Speed),
		Overall:          c.Overall,
	}
}

// Combined converts the CSV form back.
func (r CombinedRecord) Combined() Combined {
	return Combined{
		Time:             r.Time.Time(),
		Latitude:         float64(r.Latitude),
		Longitude:        float64(r.Longitude),
		FixQuality:       int(r.FixQuality),
		Satellites:       int(r.Satellites),
		HDOP:             float64(r.HDOP),
		Altitude:         float64(r.Altitude),
		AltitudeUnits:    r.AltitudeUnits,
		GeoidHeight:      float64(r.GeoidHeight),
		GeoidHeightUnits: r.GeoidHeightUnits,
		DeviceID:         r.DeviceID,
		Speed:            float64(r.Speed),
		Overall:          r.Overall,
	}
}

// InstrumentRecord is the CSV form of a raw instrument fix. Optional columns
// decode to NaN or zero when absent.
type InstrumentRecord struct {
	Time             Timestamp `csv:"date_time"`
	Latitude         Float     `csv:"latitude"`
	Longitude        Float     `csv:"longitude"`
	FixQuality       Count     `csv:"fix_quality"`
	Satellites       Count     `csv:"number_satellites"`
	HDOP             Float     `csv:"horiz_dilution_of_position"`
	Altitude         Float     `csv:"altitude"`
	AltitudeUnits    string    `csv:"altitude_units"`
	GeoidHeight      Float     `csv:"geoid_height"`
	GeoidHeightUnits string    `csv:"geoid_height_units"`
	DeviceID         string    `csv:"device_id"`
}

// RequiredColumns must appear in every instrument file header.
var RequiredColumns = []string{"date_time", "latitude", "longitude", "device_id"}

// Fix converts the CSV form to an unflagged fix.
func (r InstrumentRecord) Fix() Fix {
	return Fix{
		Time:             r.Time.Time(),
		Latitude:         float64(r.Latitude),
		Longitude:        float64(r.Longitude),
		FixQuality:       int(r.FixQuality),
		Satellites:       int(r.Satellites),
		HDOP:             float64(r.HDOP),
		Altitude:         float64(r.Altitude),
		AltitudeUnits:    r.AltitudeUnits,
		GeoidHeight:      float64(r.GeoidHeight),
		GeoidHeightUnits: r.GeoidHeightUnits,
		DeviceID:         r.DeviceID,
		Speed:            math.NaN(),
	}
}

// Instrument converts a fix back to its raw CSV form.
func (f Fix) Instrument() InstrumentRecord {
	return InstrumentRecord{
		Time:             Timestamp(f.Time),
		Latitude:         Float(f.Latitude),
		Longitude:        Float(f.Longitude),
		FixQuality:       Count(f.FixQuality),
		Satellites:       Count(f.Satellites),
		HDOP:             Float(f.HDOP),
		Altitude:         Float(f.Altitude),
		AltitudeUnits:    f.AltitudeUnits,
		GeoidHeight:      Float(f.GeoidHeight),
		GeoidHeightUnits: f.GeoidHeightUnits,
		DeviceID:         f.DeviceID,
	}
}

// FlaggedRecord is the CSV form of a fully flagged fix, as written to the
// daily flagging files.
type FlaggedRecord struct {
	Time             Timestamp `csv:"date_time"`
	Latitude         Float     `csv:"latitude"`
	Longitude        Float     `csv:"longitude"`
	FixQuality       Count     `csv:"fix_quality"`
	Satellites       Count     `csv:"number_satellites"`
	HDOP             Float     `csv:"horiz_dilution_of_position"`
	Altitude         Float     `csv:"altitude"`
	AltitudeUnits    string    `csv:"altitude_units"`
	GeoidHeight      Float     `csv:"geoid_height"`
	GeoidHeightUnits string    `csv:"geoid_height_units"`
	DeviceID         string    `csv:"device_id"`
	Distance         Float     `csv:"distance"`
	Speed            Float     `csv:"speed"`
	Bearing          Float     `csv:"bearing"`
	Acceleration     Float     `csv:"acceleration"`
	SpeedFlag        Flag      `csv:"measureland_qualifier_flag_speed"`
	CourseFlag       Flag      `csv:"measureland_qualifier_flag_course"`
	AccelerationFlag Flag      `csv:"measureland_qualifier_flag_acceleration"`
	VisualFlag       Flag      `csv:"measureland_qualifier_flag_visual"`
	Overall          Flag      `csv:"measureland_qualifier_flag_overall"`
	Day              string    `csv:"date_time_day"`
}

// Flagged converts f to its flagged CSV form.
func (f Fix) Flagged() FlaggedRecord {
	return FlaggedRecord{
		Time:             Timestamp(f.Time),
		Latitude:         Float(f.Latitude),
		Longitude:        Float(f.Longitude),
		FixQuality:       Count(f.FixQuality),
		Satellites:       Count(f.Satellites),
		HDOP:             Float(f.HDOP),
		Altitude:         Float(f.Altitude),
		AltitudeUnits:    f.AltitudeUnits,
		GeoidHeight:      Float(f.GeoidHeight),
		GeoidHeightUnits: f.GeoidHeightUnits,
		DeviceID:         f.DeviceID,
		Distance:         Float(f.Distance),
		Speed:            Float(f.Speed),
		Bearing:          Float(f.Bearing),
		Acceleration:     Float(f.Acceleration),
		SpeedFlag:        f.Flags.Speed,
		CourseFlag:       f.Flags.Course,
		AccelerationFlag: f.Flags.Acceleration,
		VisualFlag:       f.Flags.Visual,
		Overall:          f.Overall,
		Day:              Day(f.Time),
	}
}

// Day returns the UTC calendar day of t as YYYY-MM-DD.
func Day(t time.Time) string { return t.UTC().Format("2006-01-02") }
