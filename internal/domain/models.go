package domain

import "time"

// QuizType selects which developer track a quiz covers.
type QuizType string

const (
	QuizTypePlugin QuizType = "plugin"
	QuizTypeTheme  QuizType = "theme"
)

// DifficultyLevel grades a question bank.
type DifficultyLevel string

const (
	DifficultyBeginner     DifficultyLevel = "beginner"
	DifficultyIntermediate DifficultyLevel = "intermediate"
	DifficultyAdvanced     DifficultyLevel = "advanced"
)

// ViolationKind identifies the browser signal that triggered a violation.
type ViolationKind string

const (
	ViolationTabSwitch  ViolationKind = "tab_switch"
	ViolationWindowBlur ViolationKind = "window_blur"
	ViolationPageHide   ViolationKind = "page_hide"
	ViolationDevTools   ViolationKind = "devtools_attempt"
	ViolationViewSource ViolationKind = "view_source_attempt"
)

// Valid reports whether the kind is one of the recognized violation signals.
func (k ViolationKind) Valid() bool {
	switch k {
	case ViolationTabSwitch, ViolationWindowBlur, ViolationPageHide,
		ViolationDevTools, ViolationViewSource:
		return true
	}
	return false
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"prompt"`
	Code          string   `json:"code,omitempty"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
	Explanation   string   `json:"explanation"`
}

// Profile carries the per-user violation counter and block state. It is the
// one piece of cross-session shared mutable state in the system.
type Profile struct {
	UserID         string
	DisplayName    string
	Email          string
	ViolationCount int
	IsBlocked      bool
	BlockedReason  string
	BlockedAt      *time.Time
}

// AttemptResult is the immutable record of a completed quiz attempt.
type AttemptResult struct {
	ID               string          `json:"id"`
	UserID           string          `json:"userId"`
	QuizType         QuizType        `json:"quizType"`
	Difficulty       DifficultyLevel `json:"difficulty"`
	Score            int             `json:"score"`
	TotalQuestions   int             `json:"totalQuestions"`
	TimeTakenSeconds int             `json:"timeTakenSeconds"`
	CompletedAt      time.Time       `json:"completedAt"`
}

// BlockRecord is the audit row written when an account is blocked.
type BlockRecord struct {
	ID            string
	UserID        string
	Reason        string
	ViolationKind ViolationKind
	CreatedAt     time.Time
}
