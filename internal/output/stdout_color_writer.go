// ColorStdoutWriter prints human-friendly, colorized rows to STDOUT.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"

	"cruisetrack/internal/track"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

var devicePalette = []string{colorCyan, colorMagenta, colorBlue, colorYellow, colorGreen, colorRed}

// ColorStdoutWriter prints rows using ANSI colors.
type ColorStdoutWriter struct {
	priority     []string
	out          io.Writer
	once         sync.Once
	deviceColors map[string]string
	colorIdx     int
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(priority []string) *ColorStdoutWriter {
	return &ColorStdoutWriter{
		priority:     priority,
		out:          os.Stdout,
		deviceColors: make(map[string]string),
	}
}

func (w *ColorStdoutWriter) deviceColor(id string) string {
	if c, ok := w.deviceColors[id]; ok {
		return c
	}
	c := devicePalette[w.colorIdx%len(devicePalette)]
	w.deviceColors[id] = c
	w.colorIdx++
	return c
}

func flagColor(f track.Flag) string {
	switch f {
	case track.FlagBad:
		return colorRed
	case track.FlagSuspect:
		return colorYellow
	case track.FlagMissing:
		return colorGray
	default:
		return colorGreen
	}
}

func (w *ColorStdoutWriter) printOverview() {
	if len(w.priority) == 0 {
		return
	}
	fmt.Fprintln(w.out, "Instrument priority:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Rank\tDevice\n")
	for i, id := range w.priority {
		fmt.Fprintf(tw, "%d\t%s%s%s\n", i+1, w.deviceColor(id), id, colorReset)
	}
	tw.Flush()
	fmt.Fprintln(w.out, strings.Repeat("-", 40))
}

// Write outputs a single row.
func (w *ColorStdoutWriter) Write(c track.Combined) error {
	w.once.Do(w.printOverview)
	_, err := fmt.Fprintf(w.out, "%s[%s]%s %s%-10s%s lat=%s%.6f%s lon=%s%.6f%s spd=%.2fkn %sflag=%s%s\n",
		colorGray, c.Time.UTC().Format(track.TimeLayout), colorReset,
		w.deviceColor(c.DeviceID), c.DeviceID, colorReset,
		colorGreen, c.Latitude, colorReset,
		colorYellow, c.Longitude, colorReset,
		c.Speed,
		flagColor(c.Overall), c.Overall, colorReset,
	)
	return err
}
