// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EnrichmentJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichment_jobs_total",
			Help: "Total number of enrichment jobs by terminal status",
		},
		[]string{"status"},
	)

	EnrichmentJobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "enrichment_jobs_active",
			Help: "Number of enrichment jobs currently running",
		},
	)

	EnrichmentJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enrichment_job_duration_seconds",
			Help:    "Duration of enrichment jobs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"status"},
	)

	EnrichmentProductsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichment_products_total",
			Help: "Products processed by enrichment jobs by outcome",
		},
		[]string{"outcome"},
	)

	AIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Completion requests sent to the AI service",
		},
		[]string{"mode", "outcome"},
	)

	AIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "Latency of AI completion requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
