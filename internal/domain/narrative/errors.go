package narrative

import (
	"errors"
	"fmt"

	"github.com/okian/egrainsight/internal/domain/threshold"
)

var (
	// ErrMissingTranslation is returned when no template exists for a
	// (category, language) pair. It is never resolved by switching language.
	ErrMissingTranslation = errors.New("missing translation")
	// ErrInvalidCatalog is returned for a malformed template document.
	ErrInvalidCatalog = errors.New("invalid template catalog")
	// ErrInvalidRequest is returned when a request lacks the data its scope needs.
	ErrInvalidRequest = errors.New("invalid narrative request")
	// ErrRender is returned when a template fails to execute.
	ErrRender = errors.New("render narrative")
)

// MissingTranslationError names the lookup that found no template.
type MissingTranslationError struct {
	Analysis  threshold.Analysis
	Scope     Scope
	Category  threshold.Category
	Language  string
	Indicator string
}

func (e *MissingTranslationError) Error() string {
	return fmt.Sprintf("%s: no %s/%s/%s template for language %q",
		ErrMissingTranslation, e.Analysis, e.Scope, e.Category, e.Language)
}

func (e *MissingTranslationError) Unwrap() error { return ErrMissingTranslation }
