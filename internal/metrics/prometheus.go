package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "phaselab_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "status"},
	)

	RequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "phaselab_http_requests_in_flight",
		Help: "Requests currently being served.",
	})

	ComputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "phaselab_compute_duration_seconds",
			Help:    "Time spent in one engine operation.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"op"},
	)

	ComputeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phaselab_compute_errors_total",
			Help: "Engine operations that failed, by op and error class.",
		},
		[]string{"op", "class"},
	)

	DivergedRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phaselab_diverged_runs_total",
			Help: "Trajectories whose state left the divergence threshold.",
		},
		[]string{"kind"},
	)

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "phaselab_rate_limited_total",
		Help: "Requests rejected by the rate limiter.",
	})
)
