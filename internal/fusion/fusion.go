// Package fusion merges flagged instrument streams into one combined track.
package fusion

import (
	"sort"

	"cruisetrack/internal/track"
)

// Fuse concatenates the streams in argument order and stable-sorts the
// result by time, so fixes with equal timestamps keep stream order. Per-axis
// flags are dropped; no fixes are removed.
func Fuse(streams ...[]track.Fix) []track.Combined {
	n := 0
	for _, s := range streams {
		n += len(s)
	}
	out := make([]track.Combined, 0, n)
	for _, s := range streams {
		for _, f := range s {
			out = append(out, f.Combine())
		}
	}
	Sort(out)
	return out
}

// Sort stable-sorts combined fixes by time.
func Sort(rows []track.Combined) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Time.Before(rows[j].Time) })
}
