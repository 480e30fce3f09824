package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	providerCalls *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	authEvents    *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

var (
	recorder     *Recorder
	recorderOnce sync.Once
)

// New returns the process-wide Prometheus metrics recorder.
// Collectors register with the default registry once, so repeated calls share them.
func New() *Recorder {
	recorderOnce.Do(func() {
		recorder = &Recorder{
			providerCalls: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "copilot_provider_calls_total",
					Help: "Total number of calls made to upstream data providers",
				},
				[]string{"provider", "outcome"},
			),
			errorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "copilot_errors_total",
					Help: "Total number of errors encountered",
				},
				[]string{"type"},
			),
			authEvents: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "copilot_auth_events_total",
					Help: "Authentication events by kind and outcome",
				},
				[]string{"event", "outcome"},
			),
			latency: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "copilot_operation_duration_seconds",
					Help:    "Duration of operations in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"operation"},
			),
		}
	})
	return recorder
}

// RecordProviderCall counts one upstream call; ok selects the outcome label.
func (r *Recorder) RecordProviderCall(provider string, ok bool) {
	r.providerCalls.WithLabelValues(provider, outcome(ok)).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordAuthEvent counts a registration, login, refresh or reset attempt.
func (r *Recorder) RecordAuthEvent(event string, ok bool) {
	r.authEvents.WithLabelValues(event, outcome(ok)).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
