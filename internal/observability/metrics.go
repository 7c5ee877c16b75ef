package observability

import "github.com/prometheus/client_golang/prometheus"

// HTTP-level metrics. Domain metrics live in domain_metrics.go.
var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "costnav_http_requests_total",
			Help: "HTTP requests served, by method, path and status code.",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "costnav_http_request_duration_seconds",
			Help:    "Wall-clock request latency in seconds.",
			Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)
	httpInFlightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "costnav_http_in_flight_requests",
			Help: "Requests currently being served.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDurationSeconds, httpInFlightRequests)
}
