package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ResolverLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "copilot",
			Subsystem: "graphql",
			Name:      "resolver_latency_seconds",
			Help:      "Latency of GraphQL query resolvers",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"field"},
	)

	ResolverFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "copilot",
			Subsystem: "graphql",
			Name:      "resolver_failures_total",
			Help:      "Resolver calls that returned success=false or a query error",
		},
		[]string{"field", "reason"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(ResolverLatency, ResolverFailures)
	})
}
