package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requestLabels returns the label sets recorded on http_requests_total,
// with their counts.
func requestLabels(t *testing.T, reg *Registry) map[[3]string]float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)

	out := map[[3]string]float64{}
	for _, mf := range mfs {
		if mf.GetName() != "http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			out[labelTriple(m)] = m.GetCounter().GetValue()
		}
	}
	return out
}

func labelTriple(m *dto.Metric) [3]string {
	var key [3]string
	for _, l := range m.GetLabel() {
		switch l.GetName() {
		case "method":
			key[0] = l.GetValue()
		case "path":
			key[1] = l.GetValue()
		case "status":
			key[2] = l.GetValue()
		}
	}
	return key
}

func gaugeValue(t *testing.T, reg *Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return -1
}

// apiMux mirrors the routes the server registers.
func apiMux(reg *Registry) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/signals/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("{}"))
	})
	mux.HandleFunc("GET /api/summaries", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	return HTTPMiddleware(reg)(mux)
}

func TestHTTPMiddleware_LabelsByRoutePattern(t *testing.T) {
	reg := NewRegistry()
	h := apiMux(reg)

	for _, id := range []string{"a1", "b2", "c3"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("GET", "/api/signals/"+id, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	labels := requestLabels(t, reg)
	assert.Equal(t, 3.0, labels[[3]string{"GET", "/api/signals/{id}", "2xx"}])
	assert.Len(t, labels, 1, "ids must not become label values")
}

func TestHTTPMiddleware_StatusClasses(t *testing.T) {
	reg := NewRegistry()
	h := apiMux(reg)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/signals/missing", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/summaries", nil))

	labels := requestLabels(t, reg)
	assert.Equal(t, 1.0, labels[[3]string{"GET", "/api/signals/{id}", "4xx"}])
	assert.Equal(t, 1.0, labels[[3]string{"GET", "/api/summaries", "5xx"}])
}

func TestHTTPMiddleware_UnmatchedUsesPath(t *testing.T) {
	reg := NewRegistry()
	h := HTTPMiddleware(reg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/hooks/raw", nil))

	labels := requestLabels(t, reg)
	assert.Equal(t, 1.0, labels[[3]string{"POST", "/hooks/raw", "2xx"}])
}

func TestHTTPMiddleware_InFlight(t *testing.T) {
	reg := NewRegistry()

	during := -1.0
	h := HTTPMiddleware(reg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		during = gaugeValue(t, reg, "http_requests_in_flight")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/healthz", nil))

	assert.Equal(t, 1.0, during)
	assert.Equal(t, 0.0, gaugeValue(t, reg, "http_requests_in_flight"))
}
