package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/epi-console/internal/core/domain"
)

const namespace = "epi_console"

// ConsoleMetrics observes polling, submissions and calls to the decision
// service.
type ConsoleMetrics struct {
	service string

	pollTotal       *prometheus.CounterVec
	pollDuration    *prometheus.HistogramVec
	lastSuccess     *prometheus.GaugeVec
	submitTotal     *prometheus.CounterVec
	submitDuration  prometheus.Histogram
	backendTotal    *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	breakerState    *prometheus.GaugeVec
	nudgesTotal     prometheus.Counter
}

func NewConsoleMetrics(service string, registerer prometheus.Registerer) *ConsoleMetrics {
	serviceLabel := prometheus.Labels{"service": service}

	pollTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "poll",
			Name:        "total",
			Help:        "Poll fetches by resource and outcome.",
			ConstLabels: serviceLabel,
		},
		[]string{"resource", "status"},
	)
	pollDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "poll",
			Name:        "duration_seconds",
			Help:        "Poll fetch duration in seconds.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			ConstLabels: serviceLabel,
		},
		[]string{"resource"},
	)
	lastSuccess := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "poll",
			Name:        "last_success_timestamp_seconds",
			Help:        "Unix time of the last successful fetch per resource.",
			ConstLabels: serviceLabel,
		},
		[]string{"resource"},
	)
	submitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "submission",
			Name:        "total",
			Help:        "Submission attempts by outcome.",
			ConstLabels: serviceLabel,
		},
		[]string{"outcome"},
	)
	submitDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "submission",
			Name:        "duration_seconds",
			Help:        "Round trip of transmitted submissions in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: serviceLabel,
		},
	)
	backendTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "backend",
			Name:        "requests_total",
			Help:        "Orchestration API calls by operation and failure kind.",
			ConstLabels: serviceLabel,
		},
		[]string{"operation", "result"},
	)
	backendDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "backend",
			Name:        "request_duration_seconds",
			Help:        "Orchestration API call duration including retries.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: serviceLabel,
		},
		[]string{"operation"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "backend",
			Name:        "circuit_state",
			Help:        "Circuit breaker state per operation (0 closed, 1 half-open, 2 open).",
			ConstLabels: serviceLabel,
		},
		[]string{"operation"},
	)
	nudgesTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "feed",
			Name:        "nudges_total",
			Help:        "Refreshes triggered by decision push nudges.",
			ConstLabels: serviceLabel,
		},
	)

	registerer.MustRegister(
		pollTotal, pollDuration, lastSuccess,
		submitTotal, submitDuration,
		backendTotal, backendDuration, breakerState,
		nudgesTotal,
	)

	return &ConsoleMetrics{
		service:         service,
		pollTotal:       pollTotal,
		pollDuration:    pollDuration,
		lastSuccess:     lastSuccess,
		submitTotal:     submitTotal,
		submitDuration:  submitDuration,
		backendTotal:    backendTotal,
		backendDuration: backendDuration,
		breakerState:    breakerState,
		nudgesTotal:     nudgesTotal,
	}
}

func (m *ConsoleMetrics) ObservePoll(resource, status string, duration time.Duration) {
	m.pollTotal.WithLabelValues(resource, status).Inc()
	switch status {
	case "skipped":
		return
	case "success":
		m.lastSuccess.WithLabelValues(resource).SetToCurrentTime()
	}
	m.pollDuration.WithLabelValues(resource).Observe(duration.Seconds())
}

func (m *ConsoleMetrics) ObserveSubmission(outcome string, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.submitTotal.WithLabelValues(outcome).Inc()
	if duration > 0 {
		m.submitDuration.Observe(duration.Seconds())
	}
}

func (m *ConsoleMetrics) ObserveBackendRequest(operation string, kind domain.FailureKind, duration time.Duration) {
	result := string(kind)
	if kind == domain.FailureNone {
		result = "success"
	}
	m.backendTotal.WithLabelValues(operation, result).Inc()
	if duration > 0 {
		m.backendDuration.WithLabelValues(operation).Observe(duration.Seconds())
	}
}

// ObserveBreaker matches resilience.StateObserver.
func (m *ConsoleMetrics) ObserveBreaker(operation string, _, to gobreaker.State) {
	m.breakerState.WithLabelValues(operation).Set(float64(to))
}

func (m *ConsoleMetrics) RecordNudge() {
	m.nudgesTotal.Inc()
}
