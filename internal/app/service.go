package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"wp-quiz-service/internal/domain"
)

// SessionRepository abstracts how per-user sessions are tracked (in-memory,
// Redis-marked, etc).
type SessionRepository interface {
	GetOrCreate(userID string) *Session
	Get(userID string) (*Session, bool)
	DeleteIfIdle(userID string)
}

// QuestionSource provides the ordered question bank for a quiz selection.
type QuestionSource interface {
	Questions(ctx context.Context, quizType domain.QuizType, difficulty domain.DifficultyLevel) ([]domain.Question, error)
}

// SettingsStore exposes operator-tunable quiz settings.
type SettingsStore interface {
	QuizDuration(ctx context.Context) (time.Duration, error)
}

// DefaultQuizDuration applies when the settings collaborator is absent or
// unreachable.
const DefaultQuizDuration = 20 * time.Minute

// minBankSize is the smallest stored bank the service will serve as-is;
// anything smaller falls back to the bundled questions.
const minBankSize = 5

// SessionService wires the quiz session use cases: start gating, question
// loading with fallback, and the per-user session registry.
type SessionService struct {
	sessions SessionRepository
	primary  QuestionSource
	fallback QuestionSource
	profiles ProfileStore
	settings SettingsStore
}

func NewSessionService(sessions SessionRepository, primary, fallback QuestionSource, profiles ProfileStore, settings SettingsStore) *SessionService {
	return &SessionService{
		sessions: sessions,
		primary:  primary,
		fallback: fallback,
		profiles: profiles,
		settings: settings,
	}
}

// Start handles landing → quiz. It refuses anonymous callers and blocked
// accounts, loads the question bank (stored bank first, bundled fallback
// when the store comes up short), and begins a fresh attempt.
func (s *SessionService) Start(ctx context.Context, ident Identity, quizType domain.QuizType, difficulty domain.DifficultyLevel) (Snapshot, error) {
	if !ident.Authenticated || ident.ID == "" {
		return Snapshot{State: StateLanding}, domain.ErrNotAuthenticated
	}
	if err := validateSelection(quizType, difficulty); err != nil {
		return Snapshot{State: StateLanding}, err
	}
	if err := s.blockedGate(ctx, ident.ID); err != nil {
		return Snapshot{State: StateLanding}, err
	}

	questions, err := s.loadQuestions(ctx, quizType, difficulty)
	if err != nil {
		return Snapshot{State: StateLanding}, err
	}

	session := s.sessions.GetOrCreate(ident.ID)
	return session.Begin(quizType, difficulty, questions, s.quizDuration(ctx))
}

// SelectAnswer records an answer for the current question.
func (s *SessionService) SelectAnswer(userID string, option int) (Snapshot, error) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	return session.SelectAnswer(option)
}

// Advance moves to the next question or finishes the attempt.
func (s *SessionService) Advance(userID string) (Snapshot, error) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	return session.Advance()
}

// ReportViolation routes one raw integrity signal to the user's session.
func (s *SessionService) ReportViolation(ctx context.Context, userID string, kind domain.ViolationKind) (Snapshot, error) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	return session.ReportViolation(ctx, kind)
}

// Deterrent reports a suppressed browser action; never a violation.
func (s *SessionService) Deterrent(userID, kind string) (string, bool) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return "", false
	}
	return session.Deterrent(kind)
}

// Acknowledge dismisses a warning or block view.
func (s *SessionService) Acknowledge(userID string) (Snapshot, error) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	return session.Acknowledge()
}

// Restart leaves the results view.
func (s *SessionService) Restart(userID string) (Snapshot, error) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	return session.Restart()
}

// Subscribe returns a channel of session events for the user, creating the
// session if needed. The caller must invoke cancel to avoid leaks.
func (s *SessionService) Subscribe(userID string) (<-chan Event, func()) {
	session := s.sessions.GetOrCreate(userID)
	return session.Subscribe()
}

// Release drops the user's session if it holds no state worth keeping.
func (s *SessionService) Release(userID string) {
	s.sessions.DeleteIfIdle(userID)
}

// blockedGate refuses blocked accounts. An unreachable profile store fails
// open, consistent with the policy layer's degraded mode.
func (s *SessionService) blockedGate(ctx context.Context, userID string) error {
	if s.profiles == nil {
		return nil
	}
	profile, err := s.profiles.Profile(ctx, userID)
	if err != nil {
		log.Printf("session service: blocked check for %s: %v", userID, err)
		return nil
	}
	if profile.IsBlocked {
		return domain.ErrUserBlocked
	}
	return nil
}

// loadQuestions serves the stored bank when it is big enough, otherwise the
// bundled fallback set for the quiz type.
func (s *SessionService) loadQuestions(ctx context.Context, quizType domain.QuizType, difficulty domain.DifficultyLevel) ([]domain.Question, error) {
	var stored []domain.Question
	if s.primary != nil {
		var err error
		stored, err = s.primary.Questions(ctx, quizType, difficulty)
		if err != nil {
			log.Printf("session service: load %s/%s bank: %v", quizType, difficulty, err)
			stored = nil
		}
	}
	if len(stored) >= minBankSize {
		return stored, nil
	}

	if s.fallback == nil {
		if len(stored) > 0 {
			return stored, nil
		}
		return nil, domain.ErrNoQuestions
	}
	bundled, err := s.fallback.Questions(ctx, quizType, difficulty)
	if err != nil || len(bundled) == 0 {
		if len(stored) > 0 {
			return stored, nil
		}
		return nil, domain.ErrNoQuestions
	}
	if len(stored) > 0 {
		log.Printf("session service: %s/%s bank has %d stored questions, using bundled set", quizType, difficulty, len(stored))
	}
	return bundled, nil
}

func (s *SessionService) quizDuration(ctx context.Context) time.Duration {
	if s.settings == nil {
		return DefaultQuizDuration
	}
	d, err := s.settings.QuizDuration(ctx)
	if err != nil || d <= 0 {
		if err != nil {
			log.Printf("session service: quiz duration setting: %v", err)
		}
		return DefaultQuizDuration
	}
	return d
}

func validateSelection(quizType domain.QuizType, difficulty domain.DifficultyLevel) error {
	switch quizType {
	case domain.QuizTypePlugin, domain.QuizTypeTheme:
	default:
		return fmt.Errorf("unknown quiz type %q", quizType)
	}
	switch difficulty {
	case domain.DifficultyBeginner, domain.DifficultyIntermediate, domain.DifficultyAdvanced:
	default:
		return fmt.Errorf("unknown difficulty %q", difficulty)
	}
	return nil
}
