package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/egrainsight/internal/domain/narrative"
	"github.com/okian/egrainsight/internal/domain/threshold"
)

// NarrateDependencies defines the interface for narrative generation.
type NarrateDependencies interface {
	Narrate(ctx context.Context, req narrative.Request) (narrative.Narrative, error)
}

// NarrateHandler handles narrative requests.
type NarrateHandler struct {
	deps NarrateDependencies
}

// NewNarrateHandler creates a new narrate handler.
func NewNarrateHandler(deps NarrateDependencies) *NarrateHandler {
	return &NarrateHandler{deps: deps}
}

// narrateRequest mirrors the OpenAPI schema for POST /narrate.
type narrateRequest struct {
	Analysis string            `json:"analysis"`
	Category string            `json:"category"`
	Language string            `json:"language"`
	Scope    string            `json:"scope"`
	Context  narrative.Context `json:"context"`
}

func (n narrateRequest) toRequest() (narrative.Request, error) {
	switch {
	case strings.TrimSpace(n.Analysis) == "":
		return narrative.Request{}, errors.New("missing analysis")
	case strings.TrimSpace(n.Category) == "":
		return narrative.Request{}, errors.New("missing category")
	}
	a, err := threshold.ParseAnalysis(n.Analysis)
	if err != nil {
		return narrative.Request{}, err
	}
	scope, err := narrative.ParseScope(n.Scope)
	if err != nil {
		return narrative.Request{}, err
	}
	return narrative.Request{
		Analysis: a,
		Category: threshold.Category(n.Category),
		Language: n.Language,
		Scope:    scope,
		Context:  n.Context,
	}, nil
}

// HandlePostNarrate handles POST /narrate requests.
func (h *NarrateHandler) HandlePostNarrate(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_narrate"
	if err := requireMethod(r, op, http.MethodPost); err != nil {
		writeFailure(w, err)
		return
	}
	var body narrateRequest
	if err := decode(w, r, op, &body); err != nil {
		writeFailure(w, err)
		return
	}
	req, err := body.toRequest()
	if err != nil {
		if !errors.Is(err, threshold.ErrUnknownAnalysis) && !errors.Is(err, narrative.ErrInvalidRequest) {
			err = WrapKind(op, ErrBadRequest, err)
		}
		writeFailure(w, err)
		return
	}
	n, err := h.deps.Narrate(r.Context(), req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}
