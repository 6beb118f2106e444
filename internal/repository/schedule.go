package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"medreminder/internal/model"
)

type scheduleRepository struct {
	db *sqlx.DB
}

func NewScheduleRepository(db *sqlx.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

// FindByTimeOfDay matches time_of_day by equality only; there is no catch-up window.
func (r *scheduleRepository) FindByTimeOfDay(ctx context.Context, bucket string) ([]model.Schedule, error) {
	query := `
		SELECT id, name, dosage, time_of_day, user_id
		FROM medication_schedules
		WHERE time_of_day = $1
		ORDER BY id
	`
	var schedules []model.Schedule
	err := r.db.SelectContext(ctx, &schedules, query, bucket)
	if err != nil {
		return nil, fmt.Errorf("find schedules by time of day: %w", err)
	}
	return schedules, nil
}
