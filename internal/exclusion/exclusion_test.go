package exclusion

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cruisetrack/internal/track"
)

func at(sec int) time.Time { return time.Date(2017, 1, 1, 0, 0, sec, 0, time.UTC) }

func TestApplyInclusiveBounds(t *testing.T) {
	set := NewSet(Window{Start: at(2), End: at(4), Reason: "harbour"})
	fixes := make([]track.Fix, 6)
	for i := range fixes {
		fixes[i].Time = at(i)
	}
	n := set.Apply(fixes)
	assert.Equal(t, 3, n)
	want := []track.Flag{track.FlagOK, track.FlagOK, track.FlagBad, track.FlagBad, track.FlagBad, track.FlagOK}
	for i, f := range fixes {
		assert.Equal(t, want[i], f.Flags.Visual, "fix %d", i)
	}
}

func TestApplyOverlapsAndOrder(t *testing.T) {
	a := Window{Start: at(3), End: at(5)}
	b := Window{Start: at(1), End: at(3)}
	fixes := []track.Fix{{Time: at(0)}, {Time: at(3)}, {Time: at(5)}}
	NewSet(a, b).Apply(fixes)
	first := []track.Flag{fixes[0].Flags.Visual, fixes[1].Flags.Visual, fixes[2].Flags.Visual}
	NewSet(b, a).Apply(fixes)
	second := []track.Flag{fixes[0].Flags.Visual, fixes[1].Flags.Visual, fixes[2].Flags.Visual}
	assert.Equal(t, first, second)
	assert.Equal(t, []track.Flag{track.FlagOK, track.FlagBad, track.FlagBad}, first)
}

func TestApplyNoWindows(t *testing.T) {
	fixes := []track.Fix{{Time: at(0)}, {Time: at(1)}}
	var set *Set
	assert.Zero(t, set.Apply(fixes))
	for _, f := range fixes {
		assert.Equal(t, track.FlagOK, f.Flags.Visual)
	}
}

func TestReadSkipsBadRows(t *testing.T) {
	in := `start,end,reason
2017-01-01 00:00:02,2017-01-01 00:00:04,in port
yesterday,2017-01-01 00:00:04,bad
2017-01-01 00:00:09,2017-01-01 00:00:08,inverted
2017-01-01T00:01:00Z,2017-01-01T00:02:00Z
`
	set, err := Read(context.Background(), strings.NewReader(in), "windows.csv")
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
	w := set.Windows()[0]
	assert.Equal(t, "in port", w.Reason)
	assert.Equal(t, at(2), w.Start)
}

func TestLoadMissingFile(t *testing.T) {
	set, err := Load(context.Background(), filepath.Join(t.TempDir(), "none.csv"))
	require.NoError(t, err)
	assert.Zero(t, set.Len())

	set, err = Load(context.Background(), "")
	require.NoError(t, err)
	assert.Zero(t, set.Len())
}

func TestLoadFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "w.csv")
	require.NoError(t, os.WriteFile(p, []byte("start,end,reason\n2017-01-01 00:00:00,2017-01-01 01:00:00,dock\n"), 0o644))
	set, err := Load(context.Background(), p)
	require.NoError(t, err)
	_, ok := set.Excluded(time.Date(2017, 1, 1, 0, 30, 0, 0, time.UTC))
	assert.True(t, ok)
}
