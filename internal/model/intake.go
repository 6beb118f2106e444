package model

import (
	"time"
)

// IntakeRecord is the user's confirmation that a schedule was taken on a given day.
type IntakeRecord struct {
	ID          int64     `db:"id" json:"id"`
	ScheduleID  string    `db:"schedule_id" json:"schedule_id"`
	OwnerUserID string    `db:"user_id" json:"user_id"`
	DayKey      string    `db:"day_key" json:"day_key"`
	RecordedAt  time.Time `db:"recorded_at" json:"recorded_at"`
}

// Day is a zone-local calendar day. Start is local midnight and End is the
// following local midnight, so [Start, End) covers the day even across DST shifts.
type Day struct {
	Key   string
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the day.
func (d Day) Contains(t time.Time) bool {
	return !t.Before(d.Start) && t.Before(d.End)
}

// TimeWindow is the resolved view of "now" used by one dispatch cycle.
type TimeWindow struct {
	Bucket string // zone-local "HH:MM"
	Day    Day
}
