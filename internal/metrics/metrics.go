// Package metrics declares the Prometheus collectors shared by the handler
// and the synchronizer. Collectors register with the default registry.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GitSyncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cvserve_git_sync_total",
			Help: "Total number of git sync operations by outcome",
		},
		[]string{"outcome"},
	)

	GitSyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cvserve_git_sync_duration_seconds",
			Help:    "Git sync duration in seconds",
			Buckets: []float64{0.1, 0.2, 0.5, 1, 1.5, 2, 5, 10, 30, 60},
		},
		[]string{"outcome"},
	)

	GitPullRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cvserve_git_pull_retries_total",
			Help: "Incremental updates retried after a transient network error",
		},
	)

	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cvserve_requests_total",
			Help: "HTTP requests served by format and status code",
		},
		[]string{"format", "code"},
	)

	RenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cvserve_render_duration_seconds",
			Help:    "Document rendering duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"format"},
	)
)

// GitSync records one synchronizer run.
func GitSync(outcome string, start time.Time) {
	GitSyncTotal.WithLabelValues(outcome).Inc()
	GitSyncDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

// Request records a finished request.
func Request(format string, code int) {
	RequestsTotal.WithLabelValues(format, strconv.Itoa(code)).Inc()
}

// Render records how long producing a document took.
func Render(format string, start time.Time) {
	RenderDuration.WithLabelValues(format).Observe(time.Since(start).Seconds())
}
