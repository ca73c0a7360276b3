package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"wp-quiz-service/internal/domain"
)

// ResultStore appends completed attempts to quiz_results.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) SaveResult(ctx context.Context, result domain.AttemptResult) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO quiz_results (id, user_id, quiz_type, difficulty, score, total_questions, time_taken_seconds, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		result.ID, result.UserID, string(result.QuizType), string(result.Difficulty),
		result.Score, result.TotalQuestions, result.TimeTakenSeconds, result.CompletedAt)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

// SettingsStore reads operator-tunable settings from quiz_settings.
type SettingsStore struct {
	pool     *pgxpool.Pool
	fallback time.Duration
}

func NewSettingsStore(pool *pgxpool.Pool, fallback time.Duration) *SettingsStore {
	return &SettingsStore{pool: pool, fallback: fallback}
}

// QuizDuration returns the configured attempt duration. A missing or
// malformed row yields the fallback without error.
func (s *SettingsStore) QuizDuration(ctx context.Context) (time.Duration, error) {
	var raw string
	err := s.pool.QueryRow(ctx,
		`SELECT setting_value FROM quiz_settings WHERE setting_key='quiz_duration_minutes'`,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return s.fallback, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read quiz duration: %w", err)
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes <= 0 {
		return s.fallback, nil
	}
	return time.Duration(minutes) * time.Minute, nil
}
