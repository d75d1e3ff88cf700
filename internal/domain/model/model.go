// Package model contains the records passed between the engine layers.
package model

import (
	"bytes"
	"encoding/json"
	"math"
	"time"

	"github.com/okian/egrainsight/internal/domain/summary"
	"github.com/okian/egrainsight/internal/domain/threshold"
)

// Value is an indicator value with an explicit missing marker.
// It encodes as a JSON number, or null when missing.
type Value struct {
	V       float64
	Missing bool
}

// Of returns a present value.
func Of(v float64) Value { return Value{V: v} }

// MissingValue returns the missing marker.
func MissingValue() Value { return Value{Missing: true} }

// IsMissing reports whether the value cannot be classified.
func (v Value) IsMissing() bool { return v.Missing || math.IsNaN(v.V) }

// Float returns the value and whether it is present.
func (v Value) Float() (float64, bool) {
	if v.IsMissing() {
		return 0, false
	}
	return v.V, true
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsMissing() || math.IsInf(v.V, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v.V)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*v = MissingValue()
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*v = Of(f)
	return nil
}

// Observation is one (subject, indicator, value) triple. Groups holds the
// grouping keys of the subject, such as school or class.
type Observation struct {
	Subject   string            `json:"subject"`
	Indicator string            `json:"indicator"`
	Value     Value             `json:"value"`
	Groups    map[string]string `json:"groups,omitempty"`
}

// UnmarshalJSON treats an absent value as missing.
func (o *Observation) UnmarshalJSON(b []byte) error {
	type plain Observation
	p := plain{Value: MissingValue()}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*o = Observation(p)
	return nil
}

// Batch is one interpretation request.
type Batch struct {
	Analysis string `json:"analysis"`
	Language string `json:"language"`
	// GroupBy names the Observation.Groups key to summarize by. Empty means
	// one summary over the whole batch.
	GroupBy string `json:"group_by"`
	// RawScores marks international values as raw indicator scores. They
	// are converted to a percentage of the indicator benchmark first.
	RawScores    bool          `json:"raw_scores,omitempty"`
	Observations []Observation `json:"observations"`
}

// BenchmarkGap places a raw score against the international benchmark.
type BenchmarkGap struct {
	Standard float64 `json:"standard"`
	Percent  Value   `json:"percent"`
	// Gap is the score minus the standard, in points.
	Gap Value `json:"gap"`
}

// Record is the interpretation of one observation.
type Record struct {
	Subject        string             `json:"subject"`
	Indicator      string             `json:"indicator"`
	Label          string             `json:"label"`
	Value          Value              `json:"value"`
	Category       threshold.Category `json:"category"`
	Band           int                `json:"band"`
	Rank           int                `json:"rank"`
	Benchmark      *BenchmarkGap      `json:"benchmark,omitempty"`
	Interpretation string             `json:"interpretation"`
	Recommendation string             `json:"recommendation"`
	Warning        string             `json:"warning,omitempty"`
}

// GroupRecord is the interpretation of one group summary.
type GroupRecord struct {
	Indicator      string               `json:"indicator"`
	Label          string               `json:"label"`
	Summary        summary.GroupSummary `json:"summary"`
	Interpretation string               `json:"interpretation"`
	Recommendation string               `json:"recommendation"`
	Warning        string               `json:"warning,omitempty"`
}

// Failure attributes an error to one indicator of a batch.
type Failure struct {
	Indicator string `json:"indicator"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// Report is the outcome of one interpretation batch.
type Report struct {
	ID           string             `json:"id"`
	Analysis     threshold.Analysis `json:"analysis"`
	Language     string             `json:"language"`
	TableVersion string             `json:"table_version"`
	CreatedAt    time.Time          `json:"created_at"`
	Records      []Record           `json:"records"`
	Groups       []GroupRecord      `json:"groups"`
	// Excluded counts observations with a missing value, per indicator.
	Excluded map[string]int `json:"excluded"`
	Failures []Failure      `json:"failures"`
}
