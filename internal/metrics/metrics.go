package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var latencyBuckets = []float64{
	0.001, // 1ms
	0.005, // 5ms
	0.01,  // 10ms
	0.025, // 25ms
	0.05,  // 50ms
	0.1,   // 100ms
	0.25,  // 250ms
	0.5,   // 500ms
	1.0,   // 1s
	2.5,   // 2.5s
	5.0,   // 5s
	10.0,  // 10s
}

var (
	// AdminRequestDuration tracks the latency of admin page requests
	AdminRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quizgift_admin_request_duration_seconds",
			Help:    "Duration of admin HTTP requests in seconds",
			Buckets: latencyBuckets,
		},
		[]string{"method", "route", "code"},
	)

	// GiftAssignDuration tracks the latency of gift assignment transactions
	GiftAssignDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quizgift_gift_assign_duration_seconds",
			Help:    "Duration of gift assignment in seconds",
			Buckets: latencyBuckets,
		},
		[]string{"status"}, // success, none or failure
	)

	// MigrationSteps counts migration step outcomes
	MigrationSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizgift_migration_steps_total",
			Help: "Migration step results by step and status",
		},
		[]string{"step", "status"},
	)

	// SchedulerRuns counts scheduled job executions
	SchedulerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizgift_scheduler_runs_total",
			Help: "Scheduled job runs by job and status",
		},
		[]string{"job", "status"},
	)
)

// RecordAdminRequest records the duration of an admin request
func RecordAdminRequest(method, route, code string, duration float64) {
	AdminRequestDuration.WithLabelValues(method, route, code).Observe(duration)
}

// RecordGiftAssignDuration records the duration of a gift assignment
func RecordGiftAssignDuration(status string, duration float64) {
	GiftAssignDuration.WithLabelValues(status).Observe(duration)
}

// RecordMigrationStep counts one migration step result
func RecordMigrationStep(step, status string) {
	MigrationSteps.WithLabelValues(step, status).Inc()
}

// RecordSchedulerRun counts one scheduled job run
func RecordSchedulerRun(job, status string) {
	SchedulerRuns.WithLabelValues(job, status).Inc()
}
