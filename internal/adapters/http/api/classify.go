package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/egrainsight/internal/domain/classifier"
	"github.com/okian/egrainsight/internal/domain/model"
)

// ClassifyDependencies defines the interface for single classifications.
type ClassifyDependencies interface {
	Classify(ctx context.Context, analysis, indicator string, v model.Value) (classifier.Result, error)
}

// ClassifyHandler handles classification requests.
type ClassifyHandler struct {
	deps ClassifyDependencies
}

// NewClassifyHandler creates a new classify handler.
func NewClassifyHandler(deps ClassifyDependencies) *ClassifyHandler {
	return &ClassifyHandler{deps: deps}
}

// classifyRequest mirrors the OpenAPI schema for POST /classify.
type classifyRequest struct {
	Analysis  string      `json:"analysis"`
	Indicator string      `json:"indicator"`
	Value     model.Value `json:"value"`
}

func (c classifyRequest) validate() error {
	switch {
	case strings.TrimSpace(c.Analysis) == "":
		return errors.New("missing analysis")
	case strings.TrimSpace(c.Indicator) == "":
		return errors.New("missing indicator")
	}
	return nil
}

// HandlePostClassify handles POST /classify requests.
func (h *ClassifyHandler) HandlePostClassify(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_classify"
	if err := requireMethod(r, op, http.MethodPost); err != nil {
		writeFailure(w, err)
		return
	}
	// an absent value is missing, never zero
	req := classifyRequest{Value: model.MissingValue()}
	if err := decode(w, r, op, &req); err != nil {
		writeFailure(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.Classify(r.Context(), req.Analysis, req.Indicator, req.Value)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
