package output

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"cruisetrack/internal/track"
)

// GeoJSONWriter streams rows as a FeatureCollection of points.
type GeoJSONWriter struct {
	f     *os.File
	bw    *bufio.Writer
	count int
}

// NewGeoJSONWriter creates path and writes the collection preamble.
func NewGeoJSONWriter(path string) (*GeoJSONWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "output: create %s", path)
	}
	bw := bufio.NewWriter(f)
	if _, err := bw.WriteString(`{"type":"FeatureCollection","features":[`); err != nil {
		f.Close()
		return nil, eris.Wrap(err, "output: geojson preamble")
	}
	return &GeoJSONWriter{f: f, bw: bw}, nil
}

// Feature converts a row to a GeoJSON point feature.
func Feature(c track.Combined) *geojson.Feature {
	props := map[string]interface{}{
		"date_time":                          c.Time.UTC().Format(track.TimeLayout),
		"device_id":                          c.DeviceID,
		"measureland_qualifier_flag_overall": int(c.Overall),
	}
	if s := nullable(c.Speed); s != nil {
		props["speed"] = *s
	}
	return &geojson.Feature{
		Geometry:   geom.NewPointFlat(geom.XY, []float64{c.Longitude, c.Latitude}),
		Properties: props,
	}
}

func (w *GeoJSONWriter) Write(c track.Combined) error {
	data, err := json.Marshal(Feature(c))
	if err != nil {
		return eris.Wrap(err, "output: geojson feature")
	}
	if w.count > 0 {
		if err := w.bw.WriteByte(','); err != nil {
			return err
		}
	}
	if _, err := w.bw.Write(data); err != nil {
		return eris.Wrap(err, "output: geojson write")
	}
	w.count++
	return nil
}

// Flush flushes buffered features.
func (w *GeoJSONWriter) Flush() error { return w.bw.Flush() }

// Close terminates the collection and closes the file.
func (w *GeoJSONWriter) Close() error {
	_, err := w.bw.WriteString("]}\n")
	if e := w.bw.Flush(); e != nil && err == nil {
		err = e
	}
	if e := w.f.Close(); e != nil && err == nil {
		err = e
	}
	return err
}
