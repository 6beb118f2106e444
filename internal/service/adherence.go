package service

import (
	"context"
	"fmt"

	"medreminder/internal/model"
	"medreminder/internal/repository"
)

// AdherenceFilter suppresses schedules the user already confirmed today.
type AdherenceFilter struct {
	repo repository.IntakeRepository
}

func NewAdherenceFilter(repo repository.IntakeRepository) *AdherenceFilter {
	return &AdherenceFilter{repo: repo}
}

// Suppress returns true iff an intake record exists for (schedule, day).
func (f *AdherenceFilter) Suppress(ctx context.Context, s model.Schedule, day model.Day) (bool, error) {
	taken, err := f.repo.ExistsForDay(ctx, s.ID, day)
	if err != nil {
		return false, fmt.Errorf("check adherence for schedule %s: %w", s.ID, err)
	}
	return taken, nil
}
