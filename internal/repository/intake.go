package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"medreminder/internal/model"
)

type intakeRepository struct {
	db *sqlx.DB
}

func NewIntakeRepository(db *sqlx.DB) IntakeRepository {
	return &intakeRepository{db: db}
}

// ExistsForDay only needs one row; EXISTS stops at the first match.
func (r *intakeRepository) ExistsForDay(ctx context.Context, scheduleID string, day model.Day) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM intake_records WHERE schedule_id = $1 AND day_key = $2)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, scheduleID, day.Key)
	if err != nil {
		return false, fmt.Errorf("check intake record: %w", err)
	}
	return exists, nil
}
