package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aquasens"

// Failure reasons recorded on PredictionFailures.
const (
	ReasonInvalidInput       = "invalid_input"
	ReasonScoringUnavailable = "scoring_unavailable"
	ReasonScoringRejected    = "scoring_rejected"
	ReasonScoringMalformed   = "scoring_malformed"
	ReasonStorage            = "storage"
)

// Metrics holds the Prometheus collectors for the prediction pipeline.
type Metrics struct {
	PredictionsCreated prometheus.Counter
	PredictionFailures *prometheus.CounterVec // labels: reason

	// Scoring client metrics.
	ScoringDuration    *prometheus.HistogramVec // labels: outcome={success,unavailable,rejected,malformed}
	ScoringBreakerOpen prometheus.Gauge

	HTTPRequests *prometheus.CounterVec // labels: method, route, status
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		PredictionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_created_total",
			Help:      help("Total prediction records persisted."),
		}),
		PredictionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_failures_total",
			Help:      help("Prediction submissions that produced no record, by reason."),
		}, []string{"reason"}),
		ScoringDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scoring_request_duration_seconds",
			Help:      help("Scoring service request duration in seconds."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"outcome"}),
		ScoringBreakerOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scoring_breaker_open",
			Help:      help("1 while the scoring circuit breaker is open, 0 otherwise."),
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      help("HTTP requests by method, route pattern and status."),
		}, []string{"method", "route", "status"}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.PredictionsCreated,
		m.PredictionFailures,
		m.ScoringDuration,
		m.ScoringBreakerOpen,
		m.HTTPRequests,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as
// many as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}
