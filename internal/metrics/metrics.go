// Package metrics exposes Prometheus counters and histograms for the studio.
// Collectors are registered on the default registry and served at /metrics.
package metrics

import (
	"time"

	"github.com/fpang/prompt-studio/internal/apperr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "prompt_studio"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	// GenerationTotal counts calls to the generative providers by capability
	// (chat, suggestion, synthesis, image, video) and result.
	GenerationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "calls_total",
			Help:      "Total number of generative provider calls",
		},
		[]string{"capability", "result"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "call_duration_seconds",
			Help:      "Generative provider call duration in seconds",
			Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 30, 60, 300, 1200},
		},
		[]string{"capability"},
	)

	EnhanceOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enhance",
			Name:      "operations_total",
			Help:      "Total number of enhancement session operations",
		},
		[]string{"operation", "result"},
	)

	KeyValidationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "key_validations_total",
			Help:      "Total number of API key validations",
		},
		[]string{"result"},
	)

	LedgerWriteFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "write_failures_total",
			Help:      "Total number of failed usage ledger writes",
		},
	)

	VideoJobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "video",
			Name:      "jobs_active",
			Help:      "Number of video generation jobs currently polling",
		},
	)
)

// Result maps an error to a low-cardinality label value.
func Result(err error) string {
	if err == nil {
		return "success"
	}
	if t, ok := apperr.TypeOf(err); ok {
		return t.String()
	}
	return "error"
}

// Timer measures one provider call.
//
//	t := metrics.StartCall("image")
//	url, err := ...
//	t.Done(err)
type Timer struct {
	capability string
	start      time.Time
}

// StartCall begins timing a call for the given capability.
func StartCall(capability string) *Timer {
	return &Timer{capability: capability, start: time.Now()}
}

// Done records the call's result and duration and returns the elapsed time.
func (t *Timer) Done(err error) time.Duration {
	elapsed := time.Since(t.start)
	GenerationTotal.WithLabelValues(t.capability, Result(err)).Inc()
	GenerationDuration.WithLabelValues(t.capability).Observe(elapsed.Seconds())
	return elapsed
}

// EnhanceOp records one engine operation outcome.
func EnhanceOp(operation string, err error) {
	EnhanceOperationsTotal.WithLabelValues(operation, Result(err)).Inc()
}
