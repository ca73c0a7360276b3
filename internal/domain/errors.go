package domain

import "errors"

var (
	// ErrNotAuthenticated is returned when an anonymous user tries to start a quiz.
	ErrNotAuthenticated = errors.New("authentication required to start a quiz")
	// ErrUserBlocked is returned when a blocked account tries to start a quiz.
	ErrUserBlocked = errors.New("user account is blocked")
	// ErrNoQuestions indicates no question bank could be loaded for the request.
	ErrNoQuestions = errors.New("no questions available")
	// ErrNoActiveAttempt is returned for answer/next requests outside the quiz state.
	ErrNoActiveAttempt = errors.New("no quiz attempt in progress")
	// ErrAttemptInProgress is returned when a start request arrives mid-attempt.
	ErrAttemptInProgress = errors.New("quiz attempt already in progress")
	// ErrOptionOutOfRange indicates a selected option index outside the question's options.
	ErrOptionOutOfRange = errors.New("selected option out of range")
	// ErrSessionNotFound is returned when a session has not been initialized.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrInvalidTransition is returned for acknowledgments that do not match the session state.
	ErrInvalidTransition = errors.New("invalid session state for request")
)
