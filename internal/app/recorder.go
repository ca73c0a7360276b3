package app

import (
	"context"
	"log"
	"time"

	"wp-quiz-service/internal/domain"
)

// ResultStore is the append-only attempt-result collaborator.
type ResultStore interface {
	SaveResult(ctx context.Context, result domain.AttemptResult) error
}

// Recorder persists completed attempts. A single completed quiz produces at
// most one record: a failed write is logged and reported, never retried in
// the background where it could double-count.
type Recorder struct {
	results ResultStore
	timeout time.Duration
}

func NewRecorder(results ResultStore) *Recorder {
	return &Recorder{results: results, timeout: 10 * time.Second}
}

// Record writes the attempt result and reports whether it was saved. The
// session dispatches this after the results transition commits, so the user
// sees their score locally even when the write fails.
func (r *Recorder) Record(result domain.AttemptResult) bool {
	if r == nil || r.results == nil {
		log.Printf("result recorder: store not configured, result for %s kept local only", result.UserID)
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.results.SaveResult(ctx, result); err != nil {
		log.Printf("result recorder: save attempt %s for %s: %v", result.ID, result.UserID, err)
		return false
	}
	return true
}
