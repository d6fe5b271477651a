// Package prioritize reduces a combined, time-ordered track to at most one
// fix per second, choosing between instruments by a declared priority.
package prioritize

import (
	"context"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"cruisetrack/internal/logging"
	"cruisetrack/internal/track"
)

// ErrUnsorted is returned when the input goes back in time.
var ErrUnsorted = eris.New("prioritize: input is not sorted by time")

// Source yields combined fixes in time order and io.EOF when exhausted.
type Source interface {
	Next() (track.Combined, error)
}

// Writer receives the selected fix of each second.
type Writer interface {
	Write(track.Combined) error
}

// Policy declares how candidates within one second are ranked.
type Policy struct {
	// Priority lists device ids from most to least preferred. Devices not
	// listed rank after all listed ones, in arrival order.
	Priority []string
	// SeedFirstBucket lets the first non-empty second of the stream fall back
	// to a suspect or pristine fix when no candidate is ok.
	SeedFirstBucket bool
}

// Stats summarises a prioritization run.
type Stats struct {
	Input   int
	Buckets int
	Written int
	// Gaps counts seconds that had fixes but no acceptable candidate.
	Gaps int
	// EmptySeconds counts whole seconds between buckets with no fixes at all.
	EmptySeconds int
	Seeded       bool
	ByDevice     map[string]int
}

// Prioritizer streams buckets of one second and keeps only the current one.
type Prioritizer struct {
	policy Policy
	rank   map[string]int
}

// New returns a Prioritizer for policy.
func New(policy Policy) *Prioritizer {
	rank := make(map[string]int, len(policy.Priority))
	for i, id := range policy.Priority {
		if _, dup := rank[id]; !dup {
			rank[id] = i
		}
	}
	return &Prioritizer{policy: policy, rank: rank}
}

// Run consumes src and writes one fix per resolvable second to sink. Each
// bucket is resolved as soon as the next second starts, so memory is bounded
// by the fixes of a single second.
func (p *Prioritizer) Run(ctx context.Context, src Source, sink Writer) (Stats, error) {
	log := logging.FromContext(ctx)
	st := Stats{ByDevice: make(map[string]int)}
	var (
		bucket  []track.Combined
		key     time.Time
		last    time.Time
		prevKey time.Time
		started bool
	)
	flush := func() error {
		if len(bucket) == 0 {
			return nil
		}
		if !prevKey.IsZero() {
			if missing := int(key.Sub(prevKey)/time.Second) - 1; missing > 0 {
				st.EmptySeconds += missing
			}
		}
		first := !started
		started = true
		prevKey = key
		st.Buckets++
		winner, ok := p.choose(bucket, first && p.policy.SeedFirstBucket)
		bucket = bucket[:0]
		if !ok {
			st.Gaps++
			log.Debug("no acceptable fix", "second", key)
			return nil
		}
		if first && winner.Overall != track.FlagOK {
			st.Seeded = true
			log.Info("seeded first second with non-ok fix", "second", key, "device_id", winner.DeviceID, "flag", winner.Overall)
		}
		if err := sink.Write(winner); err != nil {
			return eris.Wrap(err, "prioritize: write")
		}
		st.Written++
		st.ByDevice[winner.DeviceID]++
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		c, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return st, eris.Wrap(err, "prioritize: read")
		}
		st.Input++
		if st.Input > 1 && c.Time.Before(last) {
			return st, eris.Wrapf(ErrUnsorted, "fix at %s follows %s", c.Time.Format(track.TimeLayout), last.Format(track.TimeLayout))
		}
		last = c.Time
		k := c.Second()
		if len(bucket) > 0 && !k.Equal(key) {
			if err := flush(); err != nil {
				return st, err
			}
		}
		key = k
		bucket = append(bucket, c)
	}
	if err := flush(); err != nil {
		return st, err
	}
	log.Info("prioritized track",
		"input", st.Input, "seconds", st.Buckets, "written", st.Written,
		"gaps", st.Gaps, "empty_seconds", st.EmptySeconds)
	return st, nil
}

// Candidates returns the fixes of one bucket in selection order: listed
// devices by priority, then unlisted devices by arrival. Only the first fix of
// each device takes part.
func (p *Prioritizer) Candidates(bucket []track.Combined) []track.Combined {
	seen := make(map[string]struct{}, len(bucket))
	var listed, unlisted []track.Combined
	for _, c := range bucket {
		if _, ok := seen[c.DeviceID]; ok {
			continue
		}
		seen[c.DeviceID] = struct{}{}
		if _, ok := p.rank[c.DeviceID]; ok {
			listed = append(listed, c)
		} else {
			unlisted = append(unlisted, c)
		}
	}
	sort.SliceStable(listed, func(i, j int) bool { return p.rank[listed[i].DeviceID] < p.rank[listed[j].DeviceID] })
	return append(listed, unlisted...)
}

func (p *Prioritizer) choose(bucket []track.Combined, seed bool) (track.Combined, bool) {
	cands := p.Candidates(bucket)
	for _, c := range cands {
		if c.Overall == track.FlagOK {
			return c, true
		}
	}
	if seed {
		for _, c := range cands {
			if c.Overall == track.FlagSuspect || c.Overall == track.FlagPristine {
				return c, true
			}
		}
	}
	return track.Combined{}, false
}

// SliceSource adapts a slice to Source.
type SliceSource struct {
	rows []track.Combined
	i    int
}

// NewSliceSource returns a Source over rows.
func NewSliceSource(rows []track.Combined) *SliceSource { return &SliceSource{rows: rows} }

func (s *SliceSource) Next() (track.Combined, error) {
	if s.i >= len(s.rows) {
		return track.Combined{}, io.EOF
	}
	c := s.rows[s.i]
	s.i++
	return c, nil
}

// Collect is a Writer that keeps every row in memory.
type Collect struct {
	Rows []track.Combined
}

func (c *Collect) Write(row track.Combined) error {
	c.Rows = append(c.Rows, row)
	return nil
}
