// Package api holds the JSON handlers of the read-only HTTP surface.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/pulse/internal/api/response"
	"github.com/newthinker/pulse/internal/core"
	"github.com/newthinker/pulse/internal/storage/signal"
)

// DefaultLimit caps list responses when no limit is given.
const DefaultLimit = 50

// SignalsHandler handles event history requests.
type SignalsHandler struct {
	store signal.Store
}

// NewSignalsHandler creates a new signals handler.
func NewSignalsHandler(store signal.Store) *SignalsHandler {
	return &SignalsHandler{store: store}
}

// List returns recent events matching query parameters, newest first.
// Supported parameters: symbol (or subject), kind, source, from, to, limit, offset.
func (h *SignalsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := signal.ListFilter{
		Subject: q.Get("symbol"),
		Source:  q.Get("source"),
		Limit:   DefaultLimit,
	}
	if filter.Subject == "" {
		filter.Subject = q.Get("subject")
	}

	if kind := q.Get("kind"); kind != "" {
		k := core.Kind(strings.ToUpper(kind))
		if !k.IsPrice() && !k.IsText() {
			response.Error(w, core.WrapError(core.ErrInvalidRequest,
				errors.New("kind must be LONG, SHORT, POSITIVE or NEGATIVE")))
			return
		}
		filter.Kind = k
	}

	var err error
	if filter.From, err = parseTime(q.Get("from")); err != nil {
		response.Error(w, core.WrapError(core.ErrInvalidRequest, err))
		return
	}
	if filter.To, err = parseTime(q.Get("to")); err != nil {
		response.Error(w, core.WrapError(core.ErrInvalidRequest, err))
		return
	}

	if limit := q.Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if offset := q.Get("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil && n > 0 {
			filter.Offset = n
		}
	}

	events, err := h.store.List(r.Context(), filter)
	if err != nil {
		response.Error(w, err)
		return
	}

	count, _ := h.store.Count(r.Context(), filter)

	response.JSON(w, http.StatusOK, map[string]any{
		"signals": events,
		"total":   count,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})
}

// GetByID returns a single event by ID.
func (h *SignalsHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ev, err := h.store.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, ev)
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
