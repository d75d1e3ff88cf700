package service

import "github.com/okian/egrainsight/internal/domain/model"

var (
	// ErrEmptyBatch is returned for a batch without observations.
	ErrEmptyBatch = model.ErrEmptyBatch
	// ErrBatchTooLarge is returned when a batch exceeds the configured size.
	ErrBatchTooLarge = model.ErrBatchTooLarge
	// ErrRawScores is returned when raw scores are sent for another analysis.
	ErrRawScores = model.ErrRawScores
)

// Failure codes attached to per-indicator failures of a report.
const (
	CodeUnknownIndicator = "unknown_indicator"
	CodeInvalidCategory  = "invalid_category"
	CodeNoBenchmark      = "no_benchmark"
	CodeInternal         = "internal_error"
)
