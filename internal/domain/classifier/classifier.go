// Package classifier maps a value onto exactly one band of a threshold spec.
package classifier

import (
	"fmt"
	"math"

	"github.com/okian/egrainsight/internal/domain/model"
	"github.com/okian/egrainsight/internal/domain/threshold"
)

// Result is one classified value. It is derived on demand and never cached.
// An infinite value encodes as null.
type Result struct {
	Key      threshold.Key      `json:"key"`
	Value    model.Value        `json:"value"`
	Category threshold.Category `json:"category"`
	Band     int                `json:"band"`
	Rank     int                `json:"rank"`
}

// Classify returns the band of value under spec.
//
// The band index is the number of cut points c with v >= c, so a boundary
// value enters the band above it on the value axis: the better band for
// ascending specs and the worse one for descending specs. Magnitude specs
// classify |value|.
func Classify(value float64, spec threshold.Spec) (Result, error) {
	if math.IsNaN(value) {
		return Result{}, fmt.Errorf("%w: %s value is NaN", ErrUndefinedCategory, spec.Key())
	}
	v := value
	if spec.Magnitude {
		v = math.Abs(v)
	}
	band := 0
	for _, c := range spec.Cuts {
		if v < c {
			break
		}
		band++
	}
	if band >= len(spec.Bands) {
		return Result{}, fmt.Errorf("%w: %s has %d bands for %d cut points",
			threshold.ErrInvalidSpec, spec.Key(), len(spec.Bands), len(spec.Cuts))
	}
	return Result{
		Key:      spec.Key(),
		Value:    model.Of(value),
		Category: spec.Bands[band],
		Band:     band,
		Rank:     spec.RankOf(band),
	}, nil
}

// ClassifyValue classifies an optional value. A missing value fails with
// ErrUndefinedCategory.
func ClassifyValue(v model.Value, spec threshold.Spec) (Result, error) {
	f, ok := v.Float()
	if !ok {
		return Result{}, fmt.Errorf("%w: %s value is missing", ErrUndefinedCategory, spec.Key())
	}
	return Classify(f, spec)
}
