package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Schedule stages
const (
	StageDue          = "due"
	StageSuppressed   = "suppressed"
	StageClaimed      = "claimed_elsewhere"
	StageNoRecipients = "no_recipients"
	StageStoreError   = "store_error"
	StageDispatched   = "dispatched"
)

var (
	// Completed cycles by result (ok, error)
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_cycles_total",
			Help: "Total number of dispatch cycles run",
		},
		[]string{"result"},
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reminder_cycle_duration_seconds",
			Help:    "Dispatch cycle duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
	)

	SchedulesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_schedules_total",
			Help: "Schedules seen by dispatch cycles, by the stage they ended at",
		},
		[]string{"stage"},
	)

	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_deliveries_total",
			Help: "Push delivery attempts by status",
		},
		[]string{"status"}, // status: delivered, failed
	)

	DeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reminder_delivery_duration_seconds",
			Help:    "Push delivery latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"status"},
	)
)

// RecordCycle records a finished cycle.
func RecordCycle(err error, duration time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	CyclesTotal.WithLabelValues(result).Inc()
	CycleDuration.Observe(duration.Seconds())
}

// RecordSchedules adds n schedules to a stage.
func RecordSchedules(stage string, n int) {
	if n <= 0 {
		return
	}
	SchedulesTotal.WithLabelValues(stage).Add(float64(n))
}

// RecordDelivery records one delivery attempt.
func RecordDelivery(status string, duration time.Duration) {
	DeliveriesTotal.WithLabelValues(status).Inc()
	DeliveryDuration.WithLabelValues(status).Observe(duration.Seconds())
}
