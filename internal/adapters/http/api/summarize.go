package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/egrainsight/internal/domain/summary"
	"github.com/okian/egrainsight/internal/domain/threshold"
)

// SummarizeDependencies defines the interface for group summaries.
type SummarizeDependencies interface {
	Summarize(ctx context.Context, analysis, indicator string, entries []summary.Entry) (summary.GroupSummary, error)
}

// SummarizeHandler handles summary requests.
type SummarizeHandler struct {
	deps SummarizeDependencies
}

// NewSummarizeHandler creates a new summarize handler.
func NewSummarizeHandler(deps SummarizeDependencies) *SummarizeHandler {
	return &SummarizeHandler{deps: deps}
}

// summarizeEntry carries a null category for an excluded subject.
type summarizeEntry struct {
	Subject  string  `json:"subject"`
	Category *string `json:"category"`
}

// summarizeRequest mirrors the OpenAPI schema for POST /summarize.
type summarizeRequest struct {
	Analysis  string           `json:"analysis"`
	Indicator string           `json:"indicator"`
	Group     string           `json:"group"`
	Entries   []summarizeEntry `json:"entries"`
}

func (s summarizeRequest) entries() ([]summary.Entry, error) {
	switch {
	case strings.TrimSpace(s.Analysis) == "":
		return nil, errors.New("missing analysis")
	case strings.TrimSpace(s.Indicator) == "":
		return nil, errors.New("missing indicator")
	}
	out := make([]summary.Entry, len(s.Entries))
	for i, e := range s.Entries {
		out[i] = summary.Entry{Subject: e.Subject, Group: s.Group}
		if e.Category == nil {
			out[i].Missing = true
			continue
		}
		out[i].Category = threshold.Category(*e.Category)
	}
	return out, nil
}

// HandlePostSummarize handles POST /summarize requests.
func (h *SummarizeHandler) HandlePostSummarize(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_summarize"
	if err := requireMethod(r, op, http.MethodPost); err != nil {
		writeFailure(w, err)
		return
	}
	var req summarizeRequest
	if err := decode(w, r, op, &req); err != nil {
		writeFailure(w, err)
		return
	}
	entries, err := req.entries()
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	g, err := h.deps.Summarize(r.Context(), req.Analysis, req.Indicator, entries)
	if err != nil {
		writeFailure(w, err)
		return
	}
	g.Group = req.Group
	writeJSON(w, http.StatusOK, g)
}
