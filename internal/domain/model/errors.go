package model

import "errors"

var (
	// ErrEmptyBatch is returned for a batch without observations.
	ErrEmptyBatch = errors.New("empty batch")
	// ErrBatchTooLarge is returned when a batch exceeds the configured size.
	ErrBatchTooLarge = errors.New("batch too large")
	// ErrRawScores is returned for raw scores outside the international analysis.
	ErrRawScores = errors.New("raw scores need the international analysis")
)
