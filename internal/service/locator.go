package service

import (
	"context"
	"fmt"

	"medreminder/internal/model"
	"medreminder/internal/repository"
)

// DueScheduleLocator finds the schedules configured for the current minute bucket.
type DueScheduleLocator struct {
	repo repository.ScheduleRepository
}

func NewDueScheduleLocator(repo repository.ScheduleRepository) *DueScheduleLocator {
	return &DueScheduleLocator{repo: repo}
}

// Locate returns schedules whose TimeOfDay equals bucket. Anything the store
// returns that does not match exactly is dropped; there is no catch-up for
// buckets a missed tick skipped.
func (l *DueScheduleLocator) Locate(ctx context.Context, bucket string) ([]model.Schedule, error) {
	schedules, err := l.repo.FindByTimeOfDay(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("locate due schedules: %w", err)
	}

	due := make([]model.Schedule, 0, len(schedules))
	for _, s := range schedules {
		if s.TimeOfDay == bucket {
			due = append(due, s)
		}
	}
	return due, nil
}
