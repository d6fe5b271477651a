package ingest

import (
	"context"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cruisetrack/internal/track"
)

const sampleCSV = `id,date_time,latitude,longitude,fix_quality,number_satellites,horiz_dilution_of_position,altitude,altitude_units,geoid_height,geoid_height_units,device_id
1,2017-01-01 00:00:01,-64.1,-60.2,1,9,0.9,12.0,M,15.1,M,gps1
2,2017-01-01 00:00:00,-64.1,-60.2,1,9,0.9,12.0,M,15.1,M,gps1
3,2017-01-01 00:00:02,-64.1,-60.2,1,9,0.9
4,not-a-time,-64.1,-60.2,1,9,0.9,12.0,M,15.1,M,gps1
5,2017-01-01 00:00:03,,-60.2,1,9,0.9,12.0,M,15.1,M,gps1
6,2017-01-01 00:00:04,-64.2,-60.3,,,,,,,,gps1
`

func TestReadCSVSkipsMalformedRows(t *testing.T) {
	res, err := ReadCSV(context.Background(), strings.NewReader(sampleCSV), "sample.csv", "")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Skipped)
	require.Len(t, res.Fixes, 3)

	f := res.Fixes[0]
	assert.Equal(t, time.Date(2017, 1, 1, 0, 0, 1, 0, time.UTC), f.Time)
	assert.Equal(t, -64.1, f.Latitude)
	assert.Equal(t, 9, f.Satellites)
	assert.Equal(t, "gps1", f.DeviceID)
	assert.True(t, math.IsNaN(f.Speed))
	require.Len(t, f.Extra, 1)
	assert.Equal(t, "id", f.Extra[0].Name)
	assert.Equal(t, "1", f.Extra[0].Value)

	last := res.Fixes[2]
	assert.True(t, math.IsNaN(last.HDOP))
	assert.Equal(t, track.NoCount, last.FixQuality)
	assert.Equal(t, track.NoCount, last.Satellites)
}

func TestReadCSVKeepsMissingCountsAsNaN(t *testing.T) {
	in := "date_time,latitude,longitude,fix_quality,number_satellites,device_id\n" +
		"2017-01-30 00:00:00,-10,30,,NaN,gpsA\n"
	res, err := ReadCSV(context.Background(), strings.NewReader(in), "x.csv", "")
	require.NoError(t, err)
	require.Len(t, res.Fixes, 1)

	rec := res.Fixes[0].Combine().Record()
	for _, cell := range []track.Count{rec.FixQuality, rec.Satellites} {
		b, err := cell.MarshalCSV()
		require.NoError(t, err)
		assert.Equal(t, "NaN", string(b))
	}
}

func TestReadCSVMissingColumn(t *testing.T) {
	_, err := ReadCSV(context.Background(), strings.NewReader("date_time,latitude\n"), "x.csv", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "longitude")
}

func TestReadCSVDeviceFallback(t *testing.T) {
	in := "date_time,latitude,longitude\n2017-01-01T00:00:00Z,1,2\n"
	res, err := ReadCSV(context.Background(), strings.NewReader(in), "x.csv", "trimble")
	require.NoError(t, err)
	require.Len(t, res.Fixes, 1)
	assert.Equal(t, "trimble", res.Fixes[0].DeviceID)
}

func TestReadFilesSortsStable(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "seatex-gga_1.csv")
	b := filepath.Join(dir, "seatex-gga_2.csv")
	require.NoError(t, os.WriteFile(a, []byte("date_time,latitude,longitude,device_id\n2017-01-01 00:00:02,1,1,s\n2017-01-01 00:00:00,1,1,s\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("date_time,latitude,longitude,device_id\n2017-01-01 00:00:01,2,2,s\n2017-01-01 00:00:00,3,3,s\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.csv"), nil, 0o644))

	paths, err := Discover(dir, "seatex-gga")
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, paths)

	res, err := ReadFiles(context.Background(), paths, "")
	require.NoError(t, err)
	require.Len(t, res.Fixes, 4)
	lats := []float64{}
	for _, f := range res.Fixes {
		lats = append(lats, f.Latitude)
	}
	// equal timestamps keep file order
	assert.Equal(t, []float64{1, 3, 2, 1}, lats)
}

func TestReadCSVFileMissing(t *testing.T) {
	_, err := ReadCSVFile(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), "")
	assert.Error(t, err)
}

const sampleNMEA = `$GPRMC,120000,A,4807.038,N,01131.000,E,022.4,084.4,230317,003.1,W*6F
$GPGGA,235959,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*4B
garbage line
$GPGGA,000001,4807.040,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*44
$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*00
`

func TestReadNMEADayRollover(t *testing.T) {
	start := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	res, err := ReadNMEA(context.Background(), strings.NewReader(sampleNMEA), "log.nmea", "gps1", start)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Fixes, 2)

	assert.Equal(t, time.Date(2017, 3, 23, 23, 59, 59, 0, time.UTC), res.Fixes[0].Time)
	assert.Equal(t, time.Date(2017, 3, 24, 0, 0, 1, 0, time.UTC), res.Fixes[1].Time)
	assert.InDelta(t, 48.1173, res.Fixes[0].Latitude, 1e-4)
	assert.InDelta(t, 11.516666, res.Fixes[0].Longitude, 1e-4)
	assert.Equal(t, 8, res.Fixes[0].Satellites)
	assert.Equal(t, 1, res.Fixes[0].FixQuality)
	assert.Equal(t, "gps1", res.Fixes[0].DeviceID)
}

func TestCombinedReader(t *testing.T) {
	in := `date_time,latitude,longitude,fix_quality,number_satellites,horiz_dilution_of_position,altitude,altitude_units,geoid_height,geoid_height_units,device_id,speed,measureland_qualifier_flag_overall
2017-01-01 00:00:00,-64.1,-60.2,1,9,0.9,12,M,15.1,M,gps1,NaN,2
2017-01-01 00:00:01,-64.1,-60.2,1,9,0.9,12,M,15.1,M,gps1,3.2,7
2017-01-01 00:00:02,-64.1,-60.2,1,9,0.9,12,M,15.1,M,gps1,3.2,5
`
	r, err := NewCombinedReader(context.Background(), strings.NewReader(in), "combined.csv")
	require.NoError(t, err)
	var got []float64
	var flags []int
	for {
		c, err := r.Next()
		if err != nil {
			require.ErrorIs(t, err, io.EOF)
			break
		}
		got = append(got, c.Speed)
		flags = append(flags, int(c.Overall))
	}
	require.Len(t, got, 2)
	assert.True(t, math.IsNaN(got[0]))
	assert.Equal(t, []int{2, 5}, flags)
	assert.Equal(t, 1, r.Skipped)
}
