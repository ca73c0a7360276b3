package memory

import (
	"context"
	"sync"
	"time"

	"wp-quiz-service/internal/domain"
)

// ResultStore is an in-memory append-only implementation of app.ResultStore.
type ResultStore struct {
	mu      sync.RWMutex
	results []domain.AttemptResult
}

func NewResultStore() *ResultStore {
	return &ResultStore{}
}

func (s *ResultStore) SaveResult(_ context.Context, result domain.AttemptResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

// Results returns all recorded attempts, for tests and demos.
func (s *ResultStore) Results() []domain.AttemptResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AttemptResult, len(s.results))
	copy(out, s.results)
	return out
}

// StaticSettings serves a fixed quiz duration when no settings table is
// configured.
type StaticSettings struct {
	Duration time.Duration
}

func (s StaticSettings) QuizDuration(_ context.Context) (time.Duration, error) {
	return s.Duration, nil
}
