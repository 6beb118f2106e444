package model

import (
	"time"
)

// NotificationTypeMedicationReminder is sent in the data payload so clients can route taps.
const NotificationTypeMedicationReminder = "medication_reminder"

// Notification is the payload delivered to one endpoint.
type Notification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Icon  string            `json:"icon,omitempty"`
	Data  map[string]string `json:"data,omitempty"`
}

// Delivery statuses
const (
	DeliveryDelivered = "delivered"
	DeliveryFailed    = "failed"
)

// DispatchOutcome is the result of one delivery attempt. It only lives for one cycle.
type DispatchOutcome struct {
	ScheduleID string        `json:"schedule_id"`
	Endpoint   string        `json:"-"`
	Status     string        `json:"status"`
	Reason     string        `json:"reason,omitempty"`
	Err        error         `json:"-"`
	Duration   time.Duration `json:"-"`
}

// Delivered reports whether the transport accepted the notification.
func (o DispatchOutcome) Delivered() bool {
	return o.Status == DeliveryDelivered
}

// CycleReport summarises one orchestrator run.
type CycleReport struct {
	RunID        string            `json:"run_id"`
	Bucket       string            `json:"bucket"`
	DayKey       string            `json:"day_key"`
	StartedAt    time.Time         `json:"started_at"`
	Duration     time.Duration     `json:"duration_ns"`
	Due          int               `json:"due"`
	Suppressed   int               `json:"suppressed"`
	Claimed      int               `json:"claimed_elsewhere"`
	NoRecipients int               `json:"no_recipients"`
	StoreErrors  int               `json:"store_errors"`
	Dispatched   int               `json:"dispatched"`
	Outcomes     []DispatchOutcome `json:"-"`
}

// Delivered counts successful deliveries in the cycle.
func (r *CycleReport) Delivered() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Delivered() {
			n++
		}
	}
	return n
}

// Failed counts failed deliveries in the cycle.
func (r *CycleReport) Failed() int {
	return len(r.Outcomes) - r.Delivered()
}
