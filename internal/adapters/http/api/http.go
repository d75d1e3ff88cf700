// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/egrainsight/internal/domain/classifier"
	"github.com/okian/egrainsight/internal/domain/indicator"
	"github.com/okian/egrainsight/internal/domain/model"
	"github.com/okian/egrainsight/internal/domain/narrative"
	"github.com/okian/egrainsight/internal/domain/threshold"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 8 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ThresholdDependencies
	IndicatorDependencies
	ClassifyDependencies
	NarrateDependencies
	SummarizeDependencies
	InterpretDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	thresholdsHandler *ThresholdsHandler
	indicatorsHandler *IndicatorsHandler
	classifyHandler   *ClassifyHandler
	narrateHandler    *NarrateHandler
	summarizeHandler  *SummarizeHandler
	interpretHandler  *InterpretHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		thresholdsHandler: NewThresholdsHandler(deps),
		indicatorsHandler: NewIndicatorsHandler(deps),
		classifyHandler:   NewClassifyHandler(deps),
		narrateHandler:    NewNarrateHandler(deps),
		summarizeHandler:  NewSummarizeHandler(deps),
		interpretHandler:  NewInterpretHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("/thresholds", MetricsMiddleware(s.thresholdsHandler.HandleGetThresholds, "thresholds"))
	mux.HandleFunc("/indicators", MetricsMiddleware(s.indicatorsHandler.HandleGetIndicators, "indicators"))
	mux.HandleFunc("/classify", MetricsMiddleware(s.classifyHandler.HandlePostClassify, "classify"))
	mux.HandleFunc("/narrate", MetricsMiddleware(s.narrateHandler.HandlePostNarrate, "narrate"))
	mux.HandleFunc("/summarize", MetricsMiddleware(s.summarizeHandler.HandlePostSummarize, "summarize"))
	mux.HandleFunc("/interpret", MetricsMiddleware(s.interpretHandler.HandlePostInterpret, "interpret"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps err onto a status code and error code.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}

// statusFor translates engine error kinds to HTTP semantics.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed, "method_not_allowed"
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, threshold.ErrUnknownIndicator):
		return http.StatusNotFound, "unknown_indicator"
	case errors.Is(err, threshold.ErrUnknownAnalysis):
		return http.StatusBadRequest, "unknown_analysis"
	case errors.Is(err, threshold.ErrInvalidCategory):
		return http.StatusUnprocessableEntity, "invalid_category"
	case errors.Is(err, classifier.ErrUndefinedCategory):
		return http.StatusUnprocessableEntity, "undefined_category"
	case errors.Is(err, narrative.ErrMissingTranslation):
		return http.StatusUnprocessableEntity, "missing_translation"
	case errors.Is(err, narrative.ErrInvalidRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, model.ErrEmptyBatch):
		return http.StatusBadRequest, "empty_batch"
	case errors.Is(err, model.ErrRawScores):
		return http.StatusBadRequest, "raw_scores_unsupported"
	case errors.Is(err, indicator.ErrUnknownDomain):
		return http.StatusBadRequest, "unknown_domain"
	case errors.Is(err, model.ErrBatchTooLarge):
		return http.StatusRequestEntityTooLarge, "batch_too_large"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decode reads a JSON body into v, rejecting unknown fields.
func decode(w http.ResponseWriter, r *http.Request, op string, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}

func requireMethod(r *http.Request, op, method string) error {
	if r.Method != method {
		return NewKind(op, ErrMethodNotAllowed)
	}
	return nil
}
