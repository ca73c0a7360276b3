package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"wp-quiz-service/internal/domain"
)

// ProfileStore persists violation counters and block state in the profiles
// table, with blocked_users as the append-only audit trail.
type ProfileStore struct {
	pool *pgxpool.Pool
}

func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

// Profile reads the user's row. A user with no row yet reads as a
// zero-valued profile; writes upsert.
func (s *ProfileStore) Profile(ctx context.Context, userID string) (domain.Profile, error) {
	p := domain.Profile{UserID: userID}
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(display_name, ''), COALESCE(email, ''), violation_count, is_blocked,
		        COALESCE(blocked_reason, ''), blocked_at
		 FROM profiles WHERE user_id=$1`,
		userID,
	).Scan(&p.DisplayName, &p.Email, &p.ViolationCount, &p.IsBlocked, &p.BlockedReason, &p.BlockedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, nil
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("read profile: %w", err)
	}
	return p, nil
}

func (s *ProfileStore) UpdateViolationCount(ctx context.Context, userID string, count int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO profiles (user_id, violation_count) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET violation_count=$2`,
		userID, count)
	if err != nil {
		return fmt.Errorf("update violation count: %w", err)
	}
	return nil
}

// Block sets the block flag and appends the audit record in one transaction.
func (s *ProfileStore) Block(ctx context.Context, userID, reason string, kind domain.ViolationKind, at time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("block user: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO profiles (user_id, is_blocked, blocked_reason, blocked_at) VALUES ($1, TRUE, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET is_blocked=TRUE, blocked_reason=$2, blocked_at=$3`,
		userID, reason, at); err != nil {
		return fmt.Errorf("block user: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO blocked_users (id, user_id, reason, violation_type, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), userID, reason, string(kind), at); err != nil {
		return fmt.Errorf("record block: %w", err)
	}
	return tx.Commit(ctx)
}
