package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cruisetrack/internal/exclusion"
	"cruisetrack/internal/flagger"
	"cruisetrack/internal/ingest"
	"cruisetrack/internal/output"
	"cruisetrack/internal/prioritize"
	"cruisetrack/internal/track"
)

var rowOpts = cmp.Options{cmpopts.EquateApprox(0, 1e-9), cmpopts.EquateNaNs()}

func readRows(t *testing.T, r io.Reader) []track.Combined {
	t.Helper()
	cr, err := ingest.NewCombinedReader(context.Background(), r, "rows")
	require.NoError(t, err)
	var rows []track.Combined
	for {
		c, err := cr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		rows = append(rows, c)
	}
	require.Zero(t, cr.Skipped)
	return rows
}

func scenario(t *testing.T) Options {
	t.Helper()
	windows, err := exclusion.Load(context.Background(), filepath.Join("testdata", "exclusions.csv"))
	require.NoError(t, err)
	return Options{
		Instruments: []Instrument{
			{ID: "gpsB", Files: []string{filepath.Join("testdata", "gps_b.csv")}, Format: FormatCSV},
			{ID: "gpsA", Files: []string{filepath.Join("testdata", "gps_a.csv")}, Format: FormatCSV},
		},
		Policy:     prioritize.Policy{Priority: []string{"gpsA", "gpsB"}},
		Thresholds: flagger.DefaultThresholds(),
		Exclusions: windows,
	}
}

func TestRunMatchesGolden(t *testing.T) {
	var buf bytes.Buffer
	w, err := output.NewCSVWriter(&buf)
	require.NoError(t, err)

	res, err := Run(context.Background(), scenario(t), w)
	require.NoError(t, err)
	require.NoError(t, w.Flush())

	golden, err := os.ReadFile(filepath.Join("testdata", "expected_prioritized.csv"))
	require.NoError(t, err)

	gotLines := strings.Split(buf.String(), "\n")
	wantLines := strings.Split(string(golden), "\n")
	assert.Equal(t, wantLines[0], gotLines[0])

	want := readRows(t, bytes.NewReader(golden))
	got := readRows(t, bytes.NewReader(buf.Bytes()))
	if diff := cmp.Diff(want, got, rowOpts); diff != "" {
		t.Fatalf("prioritized track mismatch (-want +got):\n%s", diff)
	}

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 10, res.Stats.Buckets)
	assert.Equal(t, 8, res.Stats.Written)
	assert.Equal(t, 2, res.Stats.Gaps)
	assert.Equal(t, 5, res.Stats.ByDevice["gpsA"])
	assert.Equal(t, 3, res.Stats.ByDevice["gpsB"])

	require.Len(t, res.Streams, 2)
	a := res.Streams[1]
	assert.Equal(t, "gpsA", a.Device)
	assert.Equal(t, 1, a.Skipped)
	assert.Equal(t, 2, a.Tally.Count(flagger.AxisSpeed, track.FlagBad))
	assert.Equal(t, 1, a.Tally.Count(flagger.AxisVisual, track.FlagBad))
}

func TestReprioritizeIsIdempotent(t *testing.T) {
	golden, err := os.ReadFile(filepath.Join("testdata", "expected_prioritized.csv"))
	require.NoError(t, err)
	rows := readRows(t, bytes.NewReader(golden))

	var out prioritize.Collect
	st, err := Reprioritize(context.Background(), rows, prioritize.Policy{Priority: []string{"gpsA", "gpsB"}}, &out)
	require.NoError(t, err)
	assert.Zero(t, st.Gaps)
	if diff := cmp.Diff(readRows(t, bytes.NewReader(golden)), out.Rows, rowOpts); diff != "" {
		t.Fatalf("second pass changed the track (-first +second):\n%s", diff)
	}
}

func TestExcludedSecondIsGap(t *testing.T) {
	var out prioritize.Collect
	_, err := Run(context.Background(), scenario(t), &out)
	require.NoError(t, err)
	for _, r := range out.Rows {
		assert.NotEqual(t, 7, r.Time.Second(), "second 7 lies in the exclusion window")
		assert.Equal(t, track.FlagOK, r.Overall)
	}
}

type flaggedCollector struct{ fixes []track.Fix }

func (f *flaggedCollector) WriteFlagged(fix track.Fix) error {
	f.fixes = append(f.fixes, fix)
	return nil
}

func TestRunWritesFlaggedFixes(t *testing.T) {
	opts := scenario(t)
	fc := &flaggedCollector{}
	opts.Flagged = fc
	var out prioritize.Collect
	_, err := Run(context.Background(), opts, &out)
	require.NoError(t, err)
	require.Len(t, fc.fixes, 20)
	assert.Equal(t, track.FlagPristine, fc.fixes[0].Flags.Speed)
}

func TestRunMissingFile(t *testing.T) {
	opts := scenario(t)
	opts.Instruments[0].Files = []string{filepath.Join(t.TempDir(), "missing.csv")}
	var out prioritize.Collect
	_, err := Run(context.Background(), opts, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gpsB")
}

func TestRenderSummary(t *testing.T) {
	var out prioritize.Collect
	res, err := Run(context.Background(), scenario(t), &out)
	require.NoError(t, err)

	header, rows := CrossTab(res.Tallies())
	assert.Equal(t, []string{"axis", "flag", "gpsB", "gpsA", "all"}, header)
	require.NotEmpty(t, rows)
	assert.Equal(t, []string{"speed", "1 pristine", "1", "1", "2"}, rows[0])

	s := RenderSummary(res.Tallies(), res.Stats)
	assert.Contains(t, s, "gpsA")
	assert.Contains(t, s, "written 8")
}
