// Package response writes the JSON envelope shared by every API handler.
package response

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/newthinker/pulse/internal/core"
)

// Meta contains response metadata.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
}

// SuccessResponse is the standard success response format.
type SuccessResponse struct {
	Data any  `json:"data"`
	Meta Meta `json:"meta"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// statusByCode maps core error codes to HTTP status. Codes not listed
// are server errors.
var statusByCode = map[string]int{
	core.ErrInvalidRequest.Code:  http.StatusBadRequest,
	core.ErrConfigInvalid.Code:   http.StatusBadRequest,
	core.ErrConfigMissing.Code:   http.StatusBadRequest,
	core.ErrNotFound.Code:        http.StatusNotFound,
	core.ErrNoData.Code:          http.StatusServiceUnavailable,
	core.ErrCollectorFailed.Code: http.StatusBadGateway,
	core.ErrNotifierFailed.Code:  http.StatusBadGateway,
}

// StatusOf returns the HTTP status for err.
func StatusOf(err error) int {
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		if status, ok := statusByCode[coreErr.Code]; ok {
			return status
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// JSON writes a success response with data.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, SuccessResponse{
		Data: data,
		Meta: Meta{Timestamp: time.Now().UTC()},
	})
}

// Error writes err with the status StatusOf picks. Errors outside the core
// taxonomy are reported without their text.
func Error(w http.ResponseWriter, err error) {
	detail := ErrorDetail{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
	}

	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		detail.Code = coreErr.Code
		detail.Message = coreErr.Message
		if coreErr.Cause != nil {
			detail.Cause = coreErr.Cause.Error()
		}
	}

	write(w, StatusOf(err), ErrorResponse{Error: detail})
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
