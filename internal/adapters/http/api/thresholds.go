package api

import (
	"context"
	"net/http"

	"github.com/okian/egrainsight/internal/domain/threshold"
)

// ThresholdDependencies defines the interface for threshold table reads.
type ThresholdDependencies interface {
	TableVersion() string
	Thresholds(ctx context.Context, analysis string) ([]threshold.Spec, error)
}

// ThresholdsHandler handles threshold table requests.
type ThresholdsHandler struct {
	deps ThresholdDependencies
}

// NewThresholdsHandler creates a new thresholds handler.
func NewThresholdsHandler(deps ThresholdDependencies) *ThresholdsHandler {
	return &ThresholdsHandler{deps: deps}
}

type thresholdsResponse struct {
	Version string           `json:"version"`
	Specs   []threshold.Spec `json:"specs"`
}

// HandleGetThresholds handles GET /thresholds?analysis=NAME requests.
func (h *ThresholdsHandler) HandleGetThresholds(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_thresholds"
	if err := requireMethod(r, op, http.MethodGet); err != nil {
		writeFailure(w, err)
		return
	}
	specs, err := h.deps.Thresholds(r.Context(), r.URL.Query().Get("analysis"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, thresholdsResponse{Version: h.deps.TableVersion(), Specs: specs})
}
