package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"medreminder/internal/model"
)

type deviceTokenRepository struct {
	db *sqlx.DB
}

func NewDeviceTokenRepository(db *sqlx.DB) DeviceTokenRepository {
	return &deviceTokenRepository{db: db}
}

// GetByUserID returns all device tokens for a user, most recently refreshed first.
func (r *deviceTokenRepository) GetByUserID(ctx context.Context, userID string) ([]model.DeviceToken, error) {
	query := `
		SELECT id, user_id, token, platform, created_at, updated_at
		FROM device_tokens
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`
	var tokens []model.DeviceToken
	err := r.db.SelectContext(ctx, &tokens, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get device tokens: %w", err)
	}
	return tokens, nil
}

// Delete removes a device token.
func (r *deviceTokenRepository) Delete(ctx context.Context, token string) error {
	query := `DELETE FROM device_tokens WHERE token = $1`
	_, err := r.db.ExecContext(ctx, query, token)
	if err != nil {
		return fmt.Errorf("delete device token: %w", err)
	}
	return nil
}

func (r *deviceTokenRepository) Name() string {
	return "device_tokens"
}

// EndpointsForUser exposes the device_tokens table as an endpoint source.
func (r *deviceTokenRepository) EndpointsForUser(ctx context.Context, userID string) ([]string, error) {
	tokens, err := r.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, t.Token)
	}
	return out, nil
}
