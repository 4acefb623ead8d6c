package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/pulse/internal/core"
)

func TestJSON_Envelope(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusOK, map[string]string{"group": "BITCOIN"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, map[string]any{"group": "BITCOIN"}, resp.Data)
	assert.False(t, resp.Meta.Timestamp.IsZero())
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid request", core.WrapError(core.ErrInvalidRequest, errors.New("bad kind")), http.StatusBadRequest},
		{"config invalid", core.ErrConfigInvalid, http.StatusBadRequest},
		{"not found", core.WrapError(core.ErrNotFound, errors.New("event x")), http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("lookup: %w", core.ErrNotFound), http.StatusNotFound},
		{"no data", core.ErrNoData, http.StatusServiceUnavailable},
		{"collector failed", core.ErrCollectorFailed, http.StatusBadGateway},
		{"store failed", core.ErrStoreFailed, http.StatusInternalServerError},
		{"deadline", fmt.Errorf("read: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.err))
		})
	}
}

func TestError_CoreError(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, core.WrapError(core.ErrNotFound, errors.New("event abc")))

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "not found", resp.Error.Message)
	assert.Equal(t, "event abc", resp.Error.Cause)
}

func TestError_ConfigInvalidIsBadRequest(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, core.ErrConfigInvalid)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "CONFIG_INVALID", resp.Error.Code)
	assert.Empty(t, resp.Error.Cause)
}

func TestError_HidesUnknownErrors(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, errors.New("dial tcp 10.0.0.3:6379: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.3")
}
