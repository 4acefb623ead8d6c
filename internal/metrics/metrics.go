package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	signalsGenerated  *prometheus.CounterVec
	signalsSuppressed *prometheus.CounterVec
	signalsRouted     *prometheus.CounterVec
	samplesRejected   *prometheus.CounterVec
	fetchFailures     *prometheus.CounterVec
	scoringFailures   *prometheus.CounterVec
	evaluationCycles  *prometheus.CounterVec
	evaluationTime    prometheus.Histogram
	groupPolarity     *prometheus.GaugeVec
	trackedSymbols    prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Business metrics
	r.signalsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_signals_generated_total",
			Help: "Total number of admitted signal events",
		},
		[]string{"source", "kind"},
	)
	r.signalsSuppressed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_signals_suppressed_total",
			Help: "Total number of signals suppressed as duplicates",
		},
		[]string{"kind"},
	)
	r.signalsRouted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_signals_routed_total",
			Help: "Total number of signal deliveries by notifier",
		},
		[]string{"notifier", "status"},
	)
	r.samplesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_samples_rejected_total",
			Help: "Total number of samples rejected by series buffers",
		},
		[]string{"symbol", "reason"},
	)
	r.fetchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_fetch_failures_total",
			Help: "Total number of failed market or feed fetches",
		},
		[]string{"kind", "source"},
	)
	r.scoringFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_scoring_failures_total",
			Help: "Total number of texts that could not be scored",
		},
		[]string{"scorer"},
	)
	r.evaluationCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_evaluation_cycles_total",
			Help: "Total number of evaluation passes by outcome",
		},
		[]string{"status"},
	)
	r.evaluationTime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pulse_evaluation_duration_seconds",
			Help:    "Evaluation pass duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
	)
	r.groupPolarity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pulse_group_average_polarity",
			Help: "Average text polarity of the latest pass by group",
		},
		[]string{"group"},
	)
	r.trackedSymbols = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pulse_tracked_symbols",
			Help: "Number of instruments with a sample window",
		},
	)

	reg.MustRegister(r.signalsGenerated)
	reg.MustRegister(r.signalsSuppressed)
	reg.MustRegister(r.signalsRouted)
	reg.MustRegister(r.samplesRejected)
	reg.MustRegister(r.fetchFailures)
	reg.MustRegister(r.scoringFailures)
	reg.MustRegister(r.evaluationCycles)
	reg.MustRegister(r.evaluationTime)
	reg.MustRegister(r.groupPolarity)
	reg.MustRegister(r.trackedSymbols)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordSignal records an admitted signal event.
func (r *Registry) RecordSignal(source, kind string) {
	r.signalsGenerated.WithLabelValues(source, kind).Inc()
}

// RecordSignalSuppressed records a duplicate signal.
func (r *Registry) RecordSignalSuppressed(kind string) {
	r.signalsSuppressed.WithLabelValues(kind).Inc()
}

// RecordSignalRouted records a routed signal.
func (r *Registry) RecordSignalRouted(notifier, status string) {
	r.signalsRouted.WithLabelValues(notifier, status).Inc()
}

// RecordSampleRejected records a sample refused by a series buffer.
func (r *Registry) RecordSampleRejected(symbol, reason string) {
	r.samplesRejected.WithLabelValues(symbol, reason).Inc()
}

// RecordFetchFailure records a failed fetch; kind is "market" or "news".
func (r *Registry) RecordFetchFailure(kind, source string) {
	r.fetchFailures.WithLabelValues(kind, source).Inc()
}

// RecordScoringFailure records a text the scorer could not process.
func (r *Registry) RecordScoringFailure(scorer string) {
	r.scoringFailures.WithLabelValues(scorer).Inc()
}

// RecordEvaluationCycle records a pass; status is "ok" or "skipped".
func (r *Registry) RecordEvaluationCycle(status string, duration float64) {
	r.evaluationCycles.WithLabelValues(status).Inc()
	if status == "ok" {
		r.evaluationTime.Observe(duration)
	}
}

// SetGroupPolarity publishes a group's latest average polarity.
func (r *Registry) SetGroupPolarity(group string, avg float64) {
	r.groupPolarity.WithLabelValues(group).Set(avg)
}

// SetTrackedSymbols sets the number of instruments with a window.
func (r *Registry) SetTrackedSymbols(n int) {
	r.trackedSymbols.Set(float64(n))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{Registry: r.Registry})
}
