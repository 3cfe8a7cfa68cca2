package gamma

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// MinutesPerDay is the length of the circular timeline
const MinutesPerDay = 24 * 60

// ErrEmptyTable is returned when an anchor source holds no directives
var ErrEmptyTable = errors.New("anchor table is empty")

// Gamma holds per-channel multipliers applied to the display output
type Gamma struct {
	Red   float64 `json:"red"`
	Green float64 `json:"green"`
	Blue  float64 `json:"blue"`
}

func (g Gamma) String() string {
	return fmt.Sprintf("%.3f:%.3f:%.3f", g.Red, g.Green, g.Blue)
}

// Anchor is one knot of the daily schedule
type Anchor struct {
	Minute int
	Gamma  Gamma
}

// Table is an immutable, non-empty list of anchors sorted by minute of day.
// It is safe for concurrent reads.
type Table struct {
	anchors []Anchor
}

// NewTable copies and stably sorts the given anchors
func NewTable(anchors []Anchor) (*Table, error) {
	if len(anchors) == 0 {
		return nil, ErrEmptyTable
	}

	sorted := make([]Anchor, len(anchors))
	copy(sorted, anchors)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Minute < sorted[j].Minute
	})

	return &Table{anchors: sorted}, nil
}

// Len returns the number of anchors
func (t *Table) Len() int {
	return len(t.anchors)
}

// Anchors returns a copy of the sorted anchors
func (t *Table) Anchors() []Anchor {
	out := make([]Anchor, len(t.anchors))
	copy(out, t.anchors)
	return out
}

// At returns the gamma for an instant given in minutes since local midnight.
// Values between two anchors are blended linearly; the segment from the last
// anchor to the first wraps across midnight.
func (t *Table) At(instant float64) Gamma {
	n := len(t.anchors)

	next := sort.Search(n, func(i int) bool {
		return float64(t.anchors[i].Minute) >= instant
	})
	if next == n {
		next = 0
	}
	prev := next - 1
	if prev < 0 {
		prev = n - 1
	}

	p, q := t.anchors[prev], t.anchors[next]
	prevMinute := float64(p.Minute)
	nextMinute := float64(q.Minute)
	x := instant

	if nextMinute < prevMinute {
		nextMinute += MinutesPerDay
		if x < prevMinute {
			x += MinutesPerDay
		}
	}

	factor := 0.0
	if span := nextMinute - prevMinute; span != 0 {
		factor = (x - prevMinute) / span
	}

	return Gamma{
		Red:   blend(p.Gamma.Red, q.Gamma.Red, factor),
		Green: blend(p.Gamma.Green, q.Gamma.Green, factor),
		Blue:  blend(p.Gamma.Blue, q.Gamma.Blue, factor),
	}
}

// blend is exact at both ends: factor 0 yields from, factor 1 yields to
func blend(from, to, factor float64) float64 {
	return from*(1-factor) + to*factor
}

// Instant converts a wall clock time to fractional minutes since midnight
// in the time's own location
func Instant(t time.Time) float64 {
	return float64(t.Hour()*60+t.Minute()) + float64(t.Second())/60
}
