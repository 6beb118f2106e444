package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// legacyTokenRepository reads the single fcm_token column kept on users from
// before device_tokens existed.
type legacyTokenRepository struct {
	db *sqlx.DB
}

func NewLegacyTokenRepository(db *sqlx.DB) *legacyTokenRepository {
	return &legacyTokenRepository{db: db}
}

func (r *legacyTokenRepository) Name() string {
	return "users.fcm_token"
}

// EndpointsForUser returns zero or one token. A missing user is not an error.
func (r *legacyTokenRepository) EndpointsForUser(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT fcm_token FROM users WHERE id = $1`

	var token sql.NullString
	err := r.db.GetContext(ctx, &token, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get legacy token: %w", err)
	}

	if !token.Valid || token.String == "" {
		return nil, nil
	}
	return []string{token.String}, nil
}

// Clear drops the legacy token if it still matches.
func (r *legacyTokenRepository) Clear(ctx context.Context, userID, token string) error {
	query := `UPDATE users SET fcm_token = NULL WHERE id = $1 AND fcm_token = $2`
	_, err := r.db.ExecContext(ctx, query, userID, token)
	if err != nil {
		return fmt.Errorf("clear legacy token: %w", err)
	}
	return nil
}

// postgresPruner removes a token from every Postgres endpoint source.
type postgresPruner struct {
	tokens DeviceTokenRepository
	legacy *legacyTokenRepository
}

func NewPostgresPruner(tokens DeviceTokenRepository, legacy *legacyTokenRepository) EndpointPruner {
	return &postgresPruner{tokens: tokens, legacy: legacy}
}

func (p *postgresPruner) RemoveEndpoint(ctx context.Context, userID, token string) error {
	if err := p.tokens.Delete(ctx, token); err != nil {
		return err
	}
	return p.legacy.Clear(ctx, userID, token)
}
