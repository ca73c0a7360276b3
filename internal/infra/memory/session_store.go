package memory

import (
	"sync"

	"wp-quiz-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository,
// keyed by user ID.
type SessionStore struct {
	newSession func(userID string) *app.Session

	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(newSession func(userID string) *app.Session) *SessionStore {
	return &SessionStore{
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
	}
}
