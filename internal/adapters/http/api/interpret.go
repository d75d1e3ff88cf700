package api

import (
	"context"
	"net/http"

	"github.com/okian/egrainsight/internal/domain/model"
)

// InterpretDependencies defines the interface for batch interpretation.
type InterpretDependencies interface {
	Interpret(ctx context.Context, b model.Batch) (model.Report, error)
}

// InterpretHandler handles batch interpretation requests.
type InterpretHandler struct {
	deps InterpretDependencies
}

// NewInterpretHandler creates a new interpret handler.
func NewInterpretHandler(deps InterpretDependencies) *InterpretHandler {
	return &InterpretHandler{deps: deps}
}

// HandlePostInterpret handles POST /interpret requests. Per-indicator
// failures are part of a 200 report; only an invalid batch fails the call.
func (h *InterpretHandler) HandlePostInterpret(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_interpret"
	if err := requireMethod(r, op, http.MethodPost); err != nil {
		writeFailure(w, err)
		return
	}
	var b model.Batch
	if err := decode(w, r, op, &b); err != nil {
		writeFailure(w, err)
		return
	}
	rep, err := h.deps.Interpret(r.Context(), b)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
