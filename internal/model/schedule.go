package model

import (
	"errors"
)

// Schedule is a medication a user wants to be reminded about once a day.
// TimeOfDay is a zone-local "HH:MM" string.
type Schedule struct {
	ID          string `db:"id" json:"id" firestore:"-"`
	DisplayName string `db:"name" json:"name" firestore:"name"`
	DosageLabel string `db:"dosage" json:"dosage" firestore:"dosage"`
	TimeOfDay   string `db:"time_of_day" json:"time" firestore:"time"`
	OwnerUserID string `db:"user_id" json:"user_id" firestore:"userId"`
}

var (
	ErrInvalidTimeOfDay     = errors.New("time of day must be a 24-hour HH:MM string")
	ErrScheduleWithoutOwner = errors.New("schedule has no owner")
)

// ValidTimeOfDay reports whether s is a zero-padded 24-hour "HH:MM" string.
func ValidTimeOfDay(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	return h < 24 && m < 60
}

// Validate checks the fields the dispatcher depends on.
func (s Schedule) Validate() error {
	if !ValidTimeOfDay(s.TimeOfDay) {
		return ErrInvalidTimeOfDay
	}
	if s.OwnerUserID == "" {
		return ErrScheduleWithoutOwner
	}
	return nil
}
