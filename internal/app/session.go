package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"wp-quiz-service/internal/domain"
)

// State is the quiz session lifecycle state.
type State string

const (
	StateLanding   State = "landing"
	StateQuiz      State = "quiz"
	StateWarning   State = "warning"
	StateViolation State = "violation"
	StateResults   State = "results"
)

// Identity is what the auth collaborator supplies about the caller.
type Identity struct {
	ID            string
	Authenticated bool
}

// QuestionView is the client-facing projection of a question. The correct
// option index never leaves the server while an attempt is running.
type QuestionView struct {
	Prompt  string   `json:"prompt"`
	Code    string   `json:"code,omitempty"`
	Options []string `json:"options"`
}

// QuestionReview is the per-question breakdown shown on the results screen.
type QuestionReview struct {
	Prompt        string   `json:"prompt"`
	Code          string   `json:"code,omitempty"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
	Selected      int      `json:"selected"`
	Explanation   string   `json:"explanation"`
}

// ResultSummary is the locally-computed outcome of a finished attempt. It is
// shown to the user regardless of whether remote persistence succeeds.
type ResultSummary struct {
	QuizType         domain.QuizType        `json:"quizType"`
	Difficulty       domain.DifficultyLevel `json:"difficulty"`
	Score            int                    `json:"score"`
	TotalQuestions   int                    `json:"totalQuestions"`
	TimeTakenSeconds int                    `json:"timeTakenSeconds"`
	CompletedAt      time.Time              `json:"completedAt"`
	Review           []QuestionReview       `json:"review"`
}

// Snapshot is the full client-facing view of a session.
type Snapshot struct {
	State            State                  `json:"state"`
	QuizType         domain.QuizType        `json:"quizType,omitempty"`
	Difficulty       domain.DifficultyLevel `json:"difficulty,omitempty"`
	QuestionIndex    int                    `json:"questionIndex"`
	TotalQuestions   int                    `json:"totalQuestions"`
	Question         *QuestionView          `json:"question,omitempty"`
	Selected         int                    `json:"selected"`
	RemainingSeconds int                    `json:"remainingSeconds"`
	WarningCount     int                    `json:"warningCount,omitempty"`
	ViolationKind    domain.ViolationKind   `json:"violationKind,omitempty"`
	BlockedReason    string                 `json:"blockedReason,omitempty"`
	Results          *ResultSummary         `json:"results,omitempty"`
}

// Event is pushed to session subscribers on every transition, plus notices
// for fire-and-forget outcomes (e.g. whether the score reached the store).
type Event struct {
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Notice   string    `json:"notice,omitempty"`
}

const unanswered = -1

// Session is the finite-state controller for one user's quiz lifecycle. All
// in-progress attempt state lives here and is discarded entirely on any
// violation, completion, or restart, never partially carried over.
type Session struct {
	userID   string
	policy   *Policy
	recorder *Recorder
	monitor  *Monitor
	timer    *Timer
	now      func() time.Time

	mu            sync.Mutex
	state         State
	quizType      domain.QuizType
	difficulty    domain.DifficultyLevel
	questions     []domain.Question
	answers       []int
	current       int
	startedAt     time.Time
	finished      bool
	warningCount  int
	violationKind domain.ViolationKind
	blockedReason string
	results       *ResultSummary
	subscribers   map[chan Event]struct{}
}

func NewSession(userID string, policy *Policy, recorder *Recorder) *Session {
	return NewSessionWithClock(userID, policy, recorder, time.Now)
}

// NewSessionWithClock allows deterministic timestamps in tests.
func NewSessionWithClock(userID string, policy *Policy, recorder *Recorder, now func() time.Time) *Session {
	s := &Session{
		userID:      userID,
		policy:      policy,
		recorder:    recorder,
		monitor:     NewMonitor(),
		now:         now,
		state:       StateLanding,
		subscribers: make(map[chan Event]struct{}),
	}
	s.timer = NewTimer(s.handleTimerExpiry)
	return s
}

// Begin moves landing → quiz with a fresh attempt. The caller has already
// authenticated the user, applied the blocked gate, and loaded the bank.
func (s *Session) Begin(quizType domain.QuizType, difficulty domain.DifficultyLevel, questions []domain.Question, duration time.Duration) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateQuiz {
		return s.snapshotLocked(), domain.ErrAttemptInProgress
	}
	if s.state != StateLanding {
		return s.snapshotLocked(), domain.ErrInvalidTransition
	}
	if len(questions) == 0 {
		return s.snapshotLocked(), domain.ErrNoQuestions
	}

	s.quizType = quizType
	s.difficulty = difficulty
	s.questions = questions
	s.answers = make([]int, len(questions))
	for i := range s.answers {
		s.answers[i] = unanswered
	}
	s.current = 0
	s.startedAt = s.now()
	s.finished = false
	s.results = nil
	s.violationKind = ""
	s.blockedReason = ""
	s.state = StateQuiz

	s.monitor.Arm()
	s.timer.Start(duration)

	return s.broadcastLocked(), nil
}

// SelectAnswer records the option for the current question without advancing.
// Re-selecting overwrites the prior choice.
func (s *Session) SelectAnswer(option int) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateQuiz {
		return s.snapshotLocked(), domain.ErrNoActiveAttempt
	}
	if option < 0 || option >= len(s.questions[s.current].Options) {
		return s.snapshotLocked(), domain.ErrOptionOutOfRange
	}
	s.answers[s.current] = option
	return s.broadcastLocked(), nil
}

// Advance moves to the next question, or finishes the attempt when invoked
// at the last one.
func (s *Session) Advance() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateQuiz {
		return s.snapshotLocked(), domain.ErrNoActiveAttempt
	}
	if s.current < len(s.questions)-1 {
		s.current++
		return s.broadcastLocked(), nil
	}
	return s.finishLocked(), nil
}

// ReportViolation feeds one raw integrity signal through the monitor latch
// and, if accepted, classifies it and transitions the session. Signals
// outside the quiz state or after the latch has fired are no-ops.
// Classification completes before the transition so the warning dialog never
// shows a stale count.
func (s *Session) ReportViolation(ctx context.Context, kind domain.ViolationKind) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateQuiz {
		return s.snapshotLocked(), nil
	}
	if !s.monitor.Signal(kind) {
		return s.snapshotLocked(), nil
	}

	verdict := s.policy.ClassifyAndRecord(ctx, s.userID, kind)

	s.resetAttemptLocked()
	s.violationKind = kind
	if verdict.Classification == ClassBlock {
		s.blockedReason = verdict.Reason
		s.state = StateViolation
	} else {
		s.warningCount = verdict.Count
		s.state = StateWarning
	}
	return s.broadcastLocked(), nil
}

// Deterrent handles suppressed browser actions (context menu, copy, cut,
// select, drag). These are deterrents, not violations: they never touch the
// counter. The returned notice, if any, is shown to the user.
func (s *Session) Deterrent(kind string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateQuiz {
		return "", false
	}
	if kind == "copy" {
		return "Copying is disabled during the quiz", true
	}
	return "", true
}

// Acknowledge dismisses the warning or terminal block view and returns to
// landing. A blocked account stays blocked at the data layer; the next start
// request is refused by the blocked gate.
func (s *Session) Acknowledge() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateWarning && s.state != StateViolation {
		return s.snapshotLocked(), domain.ErrInvalidTransition
	}
	s.state = StateLanding
	s.violationKind = ""
	s.blockedReason = ""
	s.warningCount = 0
	return s.broadcastLocked(), nil
}

// Restart leaves the results view. Nothing carries forward.
func (s *Session) Restart() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateResults {
		return s.snapshotLocked(), domain.ErrInvalidTransition
	}
	s.state = StateLanding
	s.results = nil
	s.quizType = ""
	s.difficulty = ""
	return s.broadcastLocked(), nil
}

// Snapshot returns the current client-facing view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Idle reports whether the session holds nothing worth keeping: back at
// landing with no subscribers attached.
func (s *Session) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateLanding && len(s.subscribers) == 0
}

// handleTimerExpiry is the Timer callback. Expiry and last-question Advance
// are mutually exclusive triggers into results; whichever fires second finds
// the session out of the quiz state and does nothing.
func (s *Session) handleTimerExpiry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateQuiz || s.finished {
		return
	}
	s.finishLocked()
}

// finishLocked computes the score, transitions to results, and dispatches the
// recorder after the transition commits. Runs at most once per attempt.
func (s *Session) finishLocked() Snapshot {
	if s.finished {
		return s.snapshotLocked()
	}
	s.finished = true
	s.timer.Stop()
	s.monitor.Disarm()

	score := 0
	review := make([]QuestionReview, len(s.questions))
	for i, q := range s.questions {
		if s.answers[i] == q.CorrectOption {
			score++
		}
		review[i] = QuestionReview{
			Prompt:        q.Prompt,
			Code:          q.Code,
			Options:       q.Options,
			CorrectOption: q.CorrectOption,
			Selected:      s.answers[i],
			Explanation:   q.Explanation,
		}
	}

	completedAt := s.now()
	summary := &ResultSummary{
		QuizType:         s.quizType,
		Difficulty:       s.difficulty,
		Score:            score,
		TotalQuestions:   len(s.questions),
		TimeTakenSeconds: int(completedAt.Sub(s.startedAt) / time.Second),
		CompletedAt:      completedAt,
		Review:           review,
	}

	result := domain.AttemptResult{
		ID:               uuid.NewString(),
		UserID:           s.userID,
		QuizType:         s.quizType,
		Difficulty:       s.difficulty,
		Score:            score,
		TotalQuestions:   len(s.questions),
		TimeTakenSeconds: summary.TimeTakenSeconds,
		CompletedAt:      completedAt,
	}

	s.questions = nil
	s.answers = nil
	s.current = 0
	s.results = summary
	s.state = StateResults
	snap := s.broadcastLocked()

	recorder := s.recorder
	go func() {
		if recorder.Record(result) {
			s.notify("Score saved to leaderboard!")
		} else {
			s.notify("Score could not be saved")
		}
	}()
	return snap
}

// resetAttemptLocked discards the in-progress attempt entirely and cancels
// its timer and monitor. Used on every violation, warning or block tier.
func (s *Session) resetAttemptLocked() {
	s.finished = true
	s.timer.Stop()
	s.monitor.Disarm()
	s.questions = nil
	s.answers = nil
	s.current = 0
	s.startedAt = time.Time{}
	s.results = nil
}

// Subscribe returns a channel receiving session events, primed with the
// current snapshot. The caller must invoke cancel to avoid leaks.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	// Enqueued under the lock so a transition cannot slip a newer snapshot
	// in ahead of the initial one. The fresh buffered channel cannot block.
	ch <- Event{Snapshot: &initial}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) notify(notice string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendLocked(Event{Notice: notice})
}

func (s *Session) broadcastLocked() Snapshot {
	snap := s.snapshotLocked()
	s.sendLocked(Event{Snapshot: &snap})
	return snap
}

func (s *Session) sendLocked(ev Event) {
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// Drop the oldest pending event so a slow client never blocks
			// the state machine.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:          s.state,
		QuizType:       s.quizType,
		Difficulty:     s.difficulty,
		QuestionIndex:  s.current,
		TotalQuestions: len(s.questions),
		Selected:       unanswered,
		WarningCount:   s.warningCount,
		ViolationKind:  s.violationKind,
		BlockedReason:  s.blockedReason,
		Results:        s.results,
	}
	if s.state == StateQuiz && s.current < len(s.questions) {
		q := s.questions[s.current]
		snap.Question = &QuestionView{Prompt: q.Prompt, Code: q.Code, Options: q.Options}
		snap.Selected = s.answers[s.current]
		snap.RemainingSeconds = int(s.timer.Remaining() / time.Second)
	}
	return snap
}
