package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"wp-quiz-service/internal/domain"
)

// ProfileStore is an in-memory implementation of app.ProfileStore. Missing
// users read as a zero-valued profile, matching the upsert semantics of the
// Postgres store.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]domain.Profile
	blocks   []domain.BlockRecord
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{profiles: make(map[string]domain.Profile)}
}

// Seed installs a profile directly, for tests and demos.
func (s *ProfileStore) Seed(profile domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = profile
}

func (s *ProfileStore) Profile(_ context.Context, userID string) (domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if profile, ok := s.profiles[userID]; ok {
		return profile, nil
	}
	return domain.Profile{UserID: userID}, nil
}

func (s *ProfileStore) UpdateViolationCount(_ context.Context, userID string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile := s.profiles[userID]
	profile.UserID = userID
	profile.ViolationCount = count
	s.profiles[userID] = profile
	return nil
}

func (s *ProfileStore) Block(_ context.Context, userID, reason string, kind domain.ViolationKind, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile := s.profiles[userID]
	profile.UserID = userID
	profile.IsBlocked = true
	profile.BlockedReason = reason
	profile.BlockedAt = &at
	s.profiles[userID] = profile
	s.blocks = append(s.blocks, domain.BlockRecord{
		ID:            uuid.NewString(),
		UserID:        userID,
		Reason:        reason,
		ViolationKind: kind,
		CreatedAt:     at,
	})
	return nil
}

// BlockRecords returns the audit rows appended so far.
func (s *ProfileStore) BlockRecords() []domain.BlockRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.BlockRecord, len(s.blocks))
	copy(out, s.blocks)
	return out
}
