package api

import (
	"context"
	"net/http"

	"github.com/okian/egrainsight/internal/domain/indicator"
)

// IndicatorDependencies defines the interface for indicator catalog reads.
type IndicatorDependencies interface {
	Indicators(ctx context.Context, domain string) ([]indicator.Indicator, error)
}

// IndicatorsHandler handles indicator catalog requests.
type IndicatorsHandler struct {
	deps IndicatorDependencies
}

// NewIndicatorsHandler creates a new indicators handler.
func NewIndicatorsHandler(deps IndicatorDependencies) *IndicatorsHandler {
	return &IndicatorsHandler{deps: deps}
}

type indicatorsResponse struct {
	Indicators []indicator.Indicator `json:"indicators"`
}

// HandleGetIndicators handles GET /indicators?domain=reading|math requests.
func (h *IndicatorsHandler) HandleGetIndicators(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_indicators"
	if err := requireMethod(r, op, http.MethodGet); err != nil {
		writeFailure(w, err)
		return
	}
	list, err := h.deps.Indicators(r.Context(), r.URL.Query().Get("domain"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, indicatorsResponse{Indicators: list})
}
