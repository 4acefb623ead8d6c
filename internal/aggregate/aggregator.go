// Package aggregate accumulates per-group polarity statistics for one
// evaluation pass.
package aggregate

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/newthinker/pulse/internal/core"
)

const averagePlaces = 3

type stats struct {
	sum   float64
	count int
}

// Aggregator is the sole writer of GroupSummary values. Safe for concurrent
// use.
type Aggregator struct {
	mu     sync.Mutex
	groups map[string]*stats
	now    func() time.Time
}

// New creates an empty aggregator.
func New() *Aggregator {
	return &Aggregator{
		groups: make(map[string]*stats),
		now:    time.Now,
	}
}

// Fold adds one polarity to group.
func (a *Aggregator) Fold(group string, polarity float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.groups[group]
	if !ok {
		s = &stats{}
		a.groups[group] = s
	}
	s.sum += polarity
	s.count++
}

// Summarize returns the group's mean polarity rounded to 3 places. A group
// with no folds summarizes to zero.
func (a *Aggregator) Summarize(group string) core.GroupSummary {
	a.mu.Lock()
	defer a.mu.Unlock()

	summary := core.GroupSummary{Group: group, AsOf: a.now().UTC()}
	s, ok := a.groups[group]
	if !ok || s.count == 0 {
		return summary
	}

	summary.SampleCount = s.count
	summary.AveragePolarity = Round(s.sum / float64(s.count))
	return summary
}

// Groups returns every group that received at least one fold, sorted.
func (a *Aggregator) Groups() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	groups := make([]string, 0, len(a.groups))
	for g := range a.groups {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// Round rounds v half away from zero to 3 decimal places. The tie is
// judged on v's shortest decimal form, so 0.1235 rounds to 0.124 even
// though its binary value sits just below the midpoint. Half-to-even
// rounding of the binary value would give 0.123.
func Round(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(averagePlaces).Float64()
	return f
}
