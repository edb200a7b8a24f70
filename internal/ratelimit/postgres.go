package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps one counter row per (identifier, action_kind). The
// unique constraint on that pair makes the conditional upsert the atomic
// check-then-record step.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed rate limit store
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Take implements Store. The single upsert either starts a fresh window,
// increments a live one below its threshold, or matches no row at all; the
// last case is a rejection and leaves the record untouched.
func (s *PostgresStore) Take(ctx context.Context, identifier string, kind ActionKind, rule Rule, now time.Time) (bool, error) {
	cutoff := now.Add(-rule.Window)

	query := `
		INSERT INTO rate_limits (identifier, action_kind, window_start, last_action_at, count)
		VALUES ($1, $2, $3, $3, 1)
		ON CONFLICT (identifier, action_kind) DO UPDATE
		SET count = CASE WHEN rate_limits.last_action_at < $4 THEN 1 ELSE rate_limits.count + 1 END,
		    window_start = CASE WHEN rate_limits.last_action_at < $4 THEN excluded.window_start ELSE rate_limits.window_start END,
		    last_action_at = excluded.last_action_at
		WHERE rate_limits.last_action_at < $4 OR rate_limits.count < $5
		RETURNING count
	`

	var count int
	err := s.pool.QueryRow(ctx, query, identifier, string(kind), now, cutoff, rule.Threshold).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		// The window is live and full: rejected without recording.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to take rate limit slot: %w", err)
	}

	return true, nil
}
