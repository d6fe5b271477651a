package pipeline

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"cruisetrack/internal/flagger"
	"cruisetrack/internal/prioritize"
	"cruisetrack/internal/track"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// CrossTab returns one row per (axis, flag) with a count column per device
// and a total, matching the order of devices in tallies.
func CrossTab(tallies []flagger.Tally) (header []string, rows [][]string) {
	header = []string{"axis", "flag"}
	for _, t := range tallies {
		header = append(header, t.DeviceID)
	}
	header = append(header, "all")
	for _, axis := range flagger.Axes {
		for _, f := range track.AllFlags {
			total := 0
			row := []string{string(axis), fmt.Sprintf("%d %s", int(f), f)}
			for _, t := range tallies {
				n := t.Count(axis, f)
				total += n
				row = append(row, strconv.Itoa(n))
			}
			if total == 0 {
				continue
			}
			row = append(row, strconv.Itoa(total))
			rows = append(rows, row)
		}
	}
	return header, rows
}

// RenderSummary formats the flag cross-tabulation and the prioritization
// statistics as terminal tables.
func RenderSummary(tallies []flagger.Tally, st prioritize.Stats) string {
	header, rows := CrossTab(tallies)
	flags := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(header...).
		Rows(rows...)

	bounds := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("device", "fixes", "speed bound (kn)", "selected seconds")
	for _, t := range tallies {
		bounds.Row(t.DeviceID, strconv.Itoa(t.Fixes), fmt.Sprintf("%.2f", t.Bound), strconv.Itoa(st.ByDevice[t.DeviceID]))
	}

	totals := fmt.Sprintf("input %d  seconds %d  written %d  gaps %d  empty seconds %d",
		st.Input, st.Buckets, st.Written, st.Gaps, st.EmptySeconds)
	return lipgloss.JoinVertical(lipgloss.Left, flags.Render(), bounds.Render(), totals)
}
