// Package threshold defines the versioned cut point table that maps an
// indicator value onto ordinal status bands.
package threshold

import (
	"fmt"
	"math"
)

// Direction tells which end of the value axis is good.
type Direction string

const (
	// Ascending means higher values are better.
	Ascending Direction = "ascending"
	// Descending means higher values are worse.
	Descending Direction = "descending"
)

// Analysis is one interpretation context. Each has its own vocabulary.
type Analysis string

const (
	Mastery       Analysis = "mastery"
	ZeroScore     Analysis = "zero_score"
	Benchmark     Analysis = "benchmark"
	International Analysis = "international"
	Reliability   Analysis = "reliability"
	EffectSize    Analysis = "effect_size"
	Correlation   Analysis = "correlation"
	ScoreRange    Analysis = "score_range"
	Significance  Analysis = "significance"
	GroupMean     Analysis = "group_mean"
)

// Category is an ordinal status label.
type Category string

const (
	Emerging   Category = "emerging"
	Developing Category = "developing"
	Mastered   Category = "mastery"

	Critical     Category = "critical"
	Concerning   Category = "concerning"
	Watch        Category = "watch"
	Satisfactory Category = "satisfactory"
	Approaching  Category = "approaching"
	Meeting      Category = "meeting"

	Unacceptable Category = "unacceptable"
	Poor         Category = "poor"
	Questionable Category = "questionable"
	Acceptable   Category = "acceptable"
	Good         Category = "good"
	Excellent    Category = "excellent"

	Negligible Category = "negligible"
	Small      Category = "small"
	Medium     Category = "medium"
	Large      Category = "large"

	Weak     Category = "weak"
	Moderate Category = "moderate"
	Strong   Category = "strong"

	VeryLow Category = "very_low"
	Low     Category = "low"
	Average Category = "average"

	NotSignificant Category = "not_significant"
	High           Category = "high"
)

type analysisInfo struct {
	vocabulary []Category // worst to best
	direction  Direction
	magnitude  bool
}

var analyses = map[Analysis]analysisInfo{
	Mastery:       {vocabulary: []Category{Emerging, Developing, Mastered}, direction: Ascending},
	ZeroScore:     {vocabulary: []Category{Critical, Concerning, Watch, Satisfactory}, direction: Descending},
	Benchmark:     {vocabulary: []Category{Critical, Concerning, Approaching, Meeting}, direction: Ascending},
	International: {vocabulary: []Category{Critical, Concerning, Approaching, Meeting}, direction: Ascending},
	Reliability: {
		vocabulary: []Category{Unacceptable, Poor, Questionable, Acceptable, Good, Excellent},
		direction:  Ascending,
	},
	EffectSize:  {vocabulary: []Category{Negligible, Small, Medium, Large}, direction: Ascending, magnitude: true},
	Correlation: {vocabulary: []Category{Weak, Moderate, Strong}, direction: Ascending, magnitude: true},
	ScoreRange:  {vocabulary: []Category{VeryLow, Low, Average, Good, Excellent}, direction: Ascending},
	// Significance is read on a p-value and ranked by strength of evidence.
	Significance: {vocabulary: []Category{NotSignificant, Moderate, High}, direction: Descending},
	GroupMean:    {vocabulary: []Category{Low, Average, Good}, direction: Ascending},
}

// Analyses lists every supported analysis type.
func Analyses() []Analysis {
	return []Analysis{
		Mastery, ZeroScore, Benchmark, International, Reliability, EffectSize, Correlation,
		ScoreRange, Significance, GroupMean,
	}
}

// ParseAnalysis validates a raw analysis name.
func ParseAnalysis(s string) (Analysis, error) {
	a := Analysis(s)
	if _, ok := analyses[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAnalysis, s)
	}
	return a, nil
}

// Vocabulary returns the categories of an analysis from worst to best.
func Vocabulary(a Analysis) ([]Category, error) {
	info, ok := analyses[a]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAnalysis, a)
	}
	return append([]Category(nil), info.vocabulary...), nil
}

// Key identifies one spec in a table.
type Key struct {
	Analysis  Analysis `json:"analysis"`
	Indicator string   `json:"indicator"`
}

func (k Key) String() string { return string(k.Analysis) + "/" + k.Indicator }

// Spec partitions the real line into named bands.
//
// Bands are listed along the value axis from the lowest value to the highest:
// band 0 is (-inf, Cuts[0]), band i is [Cuts[i-1], Cuts[i]) and the last band
// is [Cuts[n-1], +inf).
type Spec struct {
	Analysis  Analysis   `json:"analysis" yaml:"analysis"`
	Indicator string     `json:"indicator" yaml:"indicator"`
	Cuts      []float64  `json:"cuts" yaml:"cuts"`
	Bands     []Category `json:"bands" yaml:"bands"`
	Direction Direction  `json:"direction" yaml:"direction"`
	// Magnitude classifies |v| instead of v.
	Magnitude bool   `json:"magnitude,omitempty" yaml:"magnitude"`
	Version   string `json:"version" yaml:"version"`
}

// Key returns the table key of s.
func (s Spec) Key() Key { return Key{Analysis: s.Analysis, Indicator: s.Indicator} }

// Validate checks the partition invariants of s.
func (s Spec) Validate() error {
	k := s.Key()
	info, ok := analyses[s.Analysis]
	if !ok {
		return fmt.Errorf("%w %s: %w", ErrInvalidSpec, k, fmt.Errorf("%w: %q", ErrUnknownAnalysis, s.Analysis))
	}
	if s.Indicator == "" {
		return invalid(k, "empty indicator")
	}
	if s.Direction != Ascending && s.Direction != Descending {
		return invalid(k, "direction %q", s.Direction)
	}
	if len(s.Cuts) == 0 {
		return invalid(k, "no cut points")
	}
	if len(s.Bands) != len(s.Cuts)+1 {
		return invalid(k, "%d cut points need %d bands, got %d", len(s.Cuts), len(s.Cuts)+1, len(s.Bands))
	}
	for i, c := range s.Cuts {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return invalid(k, "cut point %d is not finite", i)
		}
		if i > 0 && c <= s.Cuts[i-1] {
			return invalid(k, "cut points not strictly increasing at %d", i)
		}
	}
	if s.Magnitude && s.Cuts[0] < 0 {
		return invalid(k, "magnitude cut points must be non-negative")
	}

	prev := -1
	for i, b := range s.Bands {
		r := vocabRank(info.vocabulary, b)
		if r < 0 {
			return invalid(k, "band %q not in %s vocabulary", b, s.Analysis)
		}
		if s.Direction == Descending {
			r = len(info.vocabulary) - 1 - r
		}
		// worst to best along the axis when ascending, the reverse otherwise
		if i > 0 && r <= prev {
			return invalid(k, "band %q out of order for %s direction", b, s.Direction)
		}
		prev = r
	}
	return nil
}

func vocabRank(vocab []Category, c Category) int {
	for i, v := range vocab {
		if v == c {
			return i
		}
	}
	return -1
}

// Band returns the band index of c along the value axis.
func (s Spec) Band(c Category) (int, error) {
	for i, b := range s.Bands {
		if b == c {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q is not a band of %s", ErrInvalidCategory, c, s.Key())
}

// Rank returns the goodness rank of c within s: 0 is the worst band.
func (s Spec) Rank(c Category) (int, error) {
	band, err := s.Band(c)
	if err != nil {
		return 0, err
	}
	return s.RankOf(band), nil
}

// RankOf converts a band index into a goodness rank.
func (s Spec) RankOf(band int) int {
	if s.Direction == Descending {
		return len(s.Bands) - 1 - band
	}
	return band
}

// Categories returns the bands of s from worst to best.
func (s Spec) Categories() []Category {
	out := make([]Category, len(s.Bands))
	for i, b := range s.Bands {
		out[s.RankOf(i)] = b
	}
	return out
}

// Distance returns the number of bands between a and b.
func (s Spec) Distance(a, b Category) (int, error) {
	ra, err := s.Rank(a)
	if err != nil {
		return 0, err
	}
	rb, err := s.Rank(b)
	if err != nil {
		return 0, err
	}
	if ra > rb {
		return ra - rb, nil
	}
	return rb - ra, nil
}

// Worse returns the worse of a and b.
func (s Spec) Worse(a, b Category) (Category, error) {
	ra, err := s.Rank(a)
	if err != nil {
		return "", err
	}
	rb, err := s.Rank(b)
	if err != nil {
		return "", err
	}
	if rb < ra {
		return b, nil
	}
	return a, nil
}

// Clone returns a deep copy of s.
func (s Spec) Clone() Spec {
	s.Cuts = append([]float64(nil), s.Cuts...)
	s.Bands = append([]Category(nil), s.Bands...)
	return s
}

// withDefaults fills direction, magnitude and bands from the analysis when
// a spec omits them.
func (s Spec) withDefaults(version string) Spec {
	info, ok := analyses[s.Analysis]
	if !ok {
		return s
	}
	if s.Direction == "" {
		s.Direction = info.direction
	}
	// Effect sizes and correlations are always read on |v|.
	if info.magnitude {
		s.Magnitude = true
	}
	if len(s.Bands) == 0 && len(s.Cuts)+1 == len(info.vocabulary) {
		s.Bands = axisOrder(info.vocabulary, s.Direction)
	}
	if s.Version == "" {
		s.Version = version
	}
	return s
}

func axisOrder(vocab []Category, d Direction) []Category {
	out := append([]Category(nil), vocab...)
	if d == Descending {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}
