// Package summary rolls classified subjects up into group summaries.
package summary

import (
	"sort"

	"github.com/okian/egrainsight/internal/domain/threshold"
)

const defaultOutlierDistance = 1

// Option applies a configuration option to a summary pass.
type Option func(*options)

type options struct {
	outlierDistance int
}

// WithOutlierDistance sets how many bands a subject may sit from the mode
// before it is reported as an outlier.
func WithOutlierDistance(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.outlierDistance = n
		}
	}
}

// Entry is one subject of a group. Missing entries count as excluded.
type Entry struct {
	Subject  string             `json:"subject"`
	Group    string             `json:"group,omitempty"`
	Category threshold.Category `json:"category,omitempty"`
	Missing  bool               `json:"missing,omitempty"`
}

// Count is the tally of one band.
type Count struct {
	Category threshold.Category `json:"category"`
	Count    int                `json:"count"`
	Percent  float64            `json:"percent"`
}

// GroupSummary aggregates the categories of one group.
type GroupSummary struct {
	Group string        `json:"group"`
	Key   threshold.Key `json:"key"`
	// Total counts non-missing entries.
	Total    int `json:"total"`
	Excluded int `json:"excluded"`
	// Counts lists every band of the threshold spec from worst to best.
	Counts           []Count            `json:"counts"`
	Mode             threshold.Category `json:"mode,omitempty"`
	Worst            threshold.Category `json:"worst,omitempty"`
	InsufficientData bool               `json:"insufficient_data"`
	Outliers         []string           `json:"outliers"`
}

// Count returns the tally of c.
func (g GroupSummary) Count(c threshold.Category) Count {
	for _, n := range g.Counts {
		if n.Category == c {
			return n
		}
	}
	return Count{Category: c}
}

// Summarize computes counts, percentages, mode and outliers over entries.
// An empty or all-missing input yields InsufficientData rather than an error.
func Summarize(spec threshold.Spec, entries []Entry, opts ...Option) (GroupSummary, error) {
	o := options{outlierDistance: defaultOutlierDistance}
	for _, opt := range opts {
		opt(&o)
	}

	cats := spec.Categories()
	tally := make([]int, len(cats))
	ranks := make([]int, len(entries))
	g := GroupSummary{Key: spec.Key(), Outliers: []string{}}
	if len(entries) > 0 {
		g.Group = entries[0].Group
	}

	for i, e := range entries {
		if e.Missing {
			g.Excluded++
			ranks[i] = -1
			continue
		}
		r, err := spec.Rank(e.Category)
		if err != nil {
			return GroupSummary{}, err
		}
		ranks[i] = r
		tally[r]++
		g.Total++
	}

	g.Counts = make([]Count, len(cats))
	for r, c := range cats {
		g.Counts[r] = Count{Category: c, Count: tally[r]}
	}
	if g.Total == 0 {
		g.InsufficientData = true
		return g, nil
	}

	mode, worst := -1, -1
	for r, n := range tally {
		g.Counts[r].Percent = float64(n) / float64(g.Total) * 100
		if n == 0 {
			continue
		}
		if worst < 0 {
			worst = r
		}
		// strict comparison keeps the worse band on ties
		if mode < 0 || n > tally[mode] {
			mode = r
		}
	}
	g.Mode = cats[mode]
	g.Worst = cats[worst]

	for i, r := range ranks {
		if r < 0 {
			continue
		}
		d := r - mode
		if d < 0 {
			d = -d
		}
		if d > o.outlierDistance {
			g.Outliers = append(g.Outliers, entries[i].Subject)
		}
	}
	return g, nil
}

// GroupBy summarizes entries per Group, sorted by group key.
func GroupBy(spec threshold.Spec, entries []Entry, opts ...Option) ([]GroupSummary, error) {
	groups := map[string][]Entry{}
	for _, e := range entries {
		groups[e.Group] = append(groups[e.Group], e)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]GroupSummary, 0, len(keys))
	for _, k := range keys {
		g, err := Summarize(spec, groups[k], opts...)
		if err != nil {
			return nil, err
		}
		g.Group = k
		out = append(out, g)
	}
	return out, nil
}
