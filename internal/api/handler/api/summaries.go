package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/pulse/internal/api/response"
	"github.com/newthinker/pulse/internal/core"
)

// SummarySource exposes the group summaries of the latest completed run.
type SummarySource interface {
	LatestSummaries() ([]core.GroupSummary, time.Time)
}

// SummariesHandler serves per-group sentiment aggregates.
type SummariesHandler struct {
	source SummarySource
}

// NewSummariesHandler creates a new summaries handler.
func NewSummariesHandler(source SummarySource) *SummariesHandler {
	return &SummariesHandler{source: source}
}

// List returns every group summary, optionally narrowed by ?group=.
func (h *SummariesHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, at := h.source.LatestSummaries()
	if at.IsZero() {
		response.Error(w, core.WrapError(core.ErrNoData, errors.New("no evaluation run has completed yet")))
		return
	}

	if group := r.URL.Query().Get("group"); group != "" {
		var filtered []core.GroupSummary
		for _, s := range summaries {
			if strings.EqualFold(s.Group, group) {
				filtered = append(filtered, s)
			}
		}
		if len(filtered) == 0 {
			response.Error(w, core.WrapError(core.ErrNotFound, errors.New(group)))
			return
		}
		summaries = filtered
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"summaries": summaries,
		"run_at":    at,
	})
}
