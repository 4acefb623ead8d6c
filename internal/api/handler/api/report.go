package api

import (
	"context"
	"net/http"

	"github.com/newthinker/pulse/internal/api/response"
	"github.com/newthinker/pulse/internal/report"
)

// ReportReader loads the most recent stored report.
type ReportReader interface {
	Latest(ctx context.Context) (report.Document, error)
}

// ReportHandler serves the latest sentiment report document.
type ReportHandler struct {
	reader ReportReader
}

// NewReportHandler creates a new report handler.
func NewReportHandler(reader ReportReader) *ReportHandler {
	return &ReportHandler{reader: reader}
}

// Latest returns the stored report.
func (h *ReportHandler) Latest(w http.ResponseWriter, r *http.Request) {
	doc, err := h.reader.Latest(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, doc)
}
