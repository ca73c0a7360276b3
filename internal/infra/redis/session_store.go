package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"wp-quiz-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions themselves stay in a local in-process map: the state machine's
//     monitor latch and timer are live objects, not snapshots.
//   - Redis marks session liveness per user (and could be extended to route
//     cross-instance violation signals through pub/sub).
type SessionStore struct {
	client     *redis.Client
	ttl        time.Duration
	newSession func(userID string) *app.Session

	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration, newSession func(userID string) *app.Session) *SessionStore {
	return &SessionStore{
		client:     client,
		ttl:        ttl,
		newSession: newSession,
		sessions:   make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(userID string) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[userID]; ok {
		return session
	}
	session := s.newSession(userID)
	s.sessions[userID] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(userID), "1", s.ttl).Err()
	return session
}

func (s *SessionStore) Get(userID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[userID]
	return session, ok
}

func (s *SessionStore) DeleteIfIdle(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[userID]
	if !ok {
		return
	}
	if session.Idle() {
		delete(s.sessions, userID)
		_ = s.client.Del(context.Background(), s.key(userID)).Err()
	}
}

func (s *SessionStore) key(userID string) string {
	return "quiz:session:" + userID
}
