// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_dispatch_total",
			Help: "Push dispatches by outcome",
		},
		[]string{"outcome"},
	)

	DispatchTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_dispatch_tokens_total",
			Help: "Device tokens reported back by dispatches, by result",
		},
		[]string{"result"},
	)

	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "push_dispatch_duration_seconds",
			Help: "Duration of the single submit call of a dispatch",
		},
	)

	DispatchRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_dispatch_rejected_total",
			Help: "Dispatches blocked before submission, by error code",
		},
		[]string{"error_code"},
	)

	AudienceSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "push_audience_size",
			Help:    "Number of customers in resolved audiences",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)
