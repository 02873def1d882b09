// ABOUTME: Prometheus collectors describing heap walks
// ABOUTME: Registered once per process through promauto

// Package metrics exposes walk counters and histograms.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the walk collectors.
type Metrics struct {
	WalksTotal       *prometheus.CounterVec
	ClosuresVisited  prometheus.Counter
	ClosuresAccepted prometheus.Counter
	StackHighWater   prometheus.Gauge
	ChunksInUse      prometheus.Gauge
	WalkDuration     prometheus.Histogram
}

// Walk outcomes used as the "result" label.
const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultRefused = "refused"
)

// New returns the process-wide collectors, registering them on first use.
//
// Metrics:
//   - heaptrav_walks_total{result} - walks by outcome
//   - heaptrav_closures_visited_total - visit callbacks made
//   - heaptrav_closures_accepted_total - closures descended into
//   - heaptrav_stack_high_water - deepest work stack of the last walk
//   - heaptrav_stack_chunks - chunks held after the last walk
//   - heaptrav_walk_duration_seconds - wall time per walk
func New() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			WalksTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "heaptrav_walks_total",
					Help: "Total number of heap walks by result",
				},
				[]string{"result"},
			),
			ClosuresVisited: promauto.NewCounter(prometheus.CounterOpts{
				Name: "heaptrav_closures_visited_total",
				Help: "Total number of closures offered to the visit callback",
			}),
			ClosuresAccepted: promauto.NewCounter(prometheus.CounterOpts{
				Name: "heaptrav_closures_accepted_total",
				Help: "Total number of closures the walk descended into",
			}),
			StackHighWater: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "heaptrav_stack_high_water",
				Help: "Largest number of pending work items during the last walk",
			}),
			ChunksInUse: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "heaptrav_stack_chunks",
				Help: "Stack chunks held by the walk session after the last walk",
			}),
			WalkDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "heaptrav_walk_duration_seconds",
				Help:    "Duration of heap walks in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			}),
		}
	})
	return globalMetrics
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
