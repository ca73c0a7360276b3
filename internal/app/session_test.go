package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"wp-quiz-service/internal/app"
	"wp-quiz-service/internal/domain"
	"wp-quiz-service/internal/infra/memory"
	"wp-quiz-service/internal/questionbank"
)

var ident = app.Identity{ID: "u1", Authenticated: true}

func TestStartRequiresAuthentication(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	_, err := env.svc.Start(context.Background(), app.Identity{ID: "u1"}, domain.QuizTypePlugin, domain.DifficultyAdvanced)
	if !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	_, err = env.svc.Start(context.Background(), app.Identity{Authenticated: true}, domain.QuizTypePlugin, domain.DifficultyAdvanced)
	if !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated for empty user id, got %v", err)
	}
}

func TestStartRefusedWhenBlocked(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	env.profiles.Seed(domain.Profile{UserID: "u1", IsBlocked: true, BlockedReason: "blocked by admin"})

	_, err := env.svc.Start(context.Background(), ident, domain.QuizTypePlugin, domain.DifficultyAdvanced)
	if !errors.Is(err, domain.ErrUserBlocked) {
		t.Fatalf("expected ErrUserBlocked, got %v", err)
	}
}

func TestStartRejectsUnknownSelection(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	if _, err := env.svc.Start(context.Background(), ident, domain.QuizType("gutenberg"), domain.DifficultyAdvanced); err == nil {
		t.Fatalf("expected error for unknown quiz type")
	}
	if _, err := env.svc.Start(context.Background(), ident, domain.QuizTypePlugin, domain.DifficultyLevel("impossible")); err == nil {
		t.Fatalf("expected error for unknown difficulty")
	}
}

func TestStartFallsBackToBundledBank(t *testing.T) {
	profiles := memory.NewProfileStore()
	svc := app.NewSessionService(
		newMemorySessions(profiles, memory.NewResultStore(), nil),
		nil, // no stored bank at all
		questionbank.NewLoader(),
		profiles,
		memory.StaticSettings{Duration: time.Minute},
	)

	snap, err := svc.Start(context.Background(), ident, domain.QuizTypeTheme, domain.DifficultyBeginner)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap.State != app.StateQuiz {
		t.Fatalf("expected quiz state, got %s", snap.State)
	}
	if snap.TotalQuestions == 0 {
		t.Fatalf("expected bundled questions, got none")
	}
}

func TestSelectAnswerOverwritesWithoutAdvancing(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	mustStart(t, env)

	if _, err := env.svc.SelectAnswer("u1", 0); err != nil {
		t.Fatalf("select: %v", err)
	}
	snap, err := env.svc.SelectAnswer("u1", 2)
	if err != nil {
		t.Fatalf("re-select: %v", err)
	}
	if snap.Selected != 2 {
		t.Fatalf("expected selection overwritten to 2, got %d", snap.Selected)
	}
	if snap.QuestionIndex != 0 {
		t.Fatalf("expected position unchanged, got %d", snap.QuestionIndex)
	}

	if _, err := env.svc.SelectAnswer("u1", 9); !errors.Is(err, domain.ErrOptionOutOfRange) {
		t.Fatalf("expected ErrOptionOutOfRange, got %v", err)
	}
}

func TestFullyAnsweredQuizScores(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	mustStart(t, env)

	// Correct answers for the sample bank are 1, 0, 2.
	answerAndNext(t, env, 1)
	answerAndNext(t, env, 0)
	if _, err := env.svc.SelectAnswer("u1", 1); err != nil { // wrong on purpose
		t.Fatalf("select: %v", err)
	}
	snap, err := env.svc.Advance("u1")
	if err != nil {
		t.Fatalf("final advance: %v", err)
	}

	if snap.State != app.StateResults {
		t.Fatalf("expected results state, got %s", snap.State)
	}
	if snap.Results == nil || snap.Results.Score != 2 || snap.Results.TotalQuestions != 3 {
		t.Fatalf("expected score 2/3, got %+v", snap.Results)
	}

	waitFor(t, func() bool { return len(env.results.Results()) == 1 })
	saved := env.results.Results()[0]
	if saved.Score != 2 || saved.UserID != "u1" || saved.QuizType != domain.QuizTypePlugin {
		t.Fatalf("unexpected persisted result %+v", saved)
	}
}

func TestCompletionRecordsExactlyOnce(t *testing.T) {
	env := newTestEnv(t, 40*time.Millisecond)
	mustStart(t, env)

	answerAndNext(t, env, 1)
	answerAndNext(t, env, 0)
	if _, err := env.svc.Advance("u1"); err != nil {
		t.Fatalf("final advance: %v", err)
	}

	// The countdown from this attempt must not fire a second completion.
	time.Sleep(100 * time.Millisecond)
	if got := len(env.results.Results()); got != 1 {
		t.Fatalf("expected exactly 1 result, got %d", got)
	}

	if _, err := env.svc.Advance("u1"); !errors.Is(err, domain.ErrNoActiveAttempt) {
		t.Fatalf("expected ErrNoActiveAttempt after completion, got %v", err)
	}
}

func TestTimerExpiryScoresAnsweredQuestions(t *testing.T) {
	env := newTestEnv(t, 30*time.Millisecond)
	events, cancel := env.svc.Subscribe("u1")
	defer cancel()
	mustStart(t, env)

	if _, err := env.svc.SelectAnswer("u1", 1); err != nil { // correct for q1
		t.Fatalf("select: %v", err)
	}

	snap := waitForState(t, events, app.StateResults)
	if snap.Results.Score != 1 || snap.Results.TotalQuestions != 3 {
		t.Fatalf("expected score 1/3 at expiry, got %+v", snap.Results)
	}
}

func TestTimerExpiryAllBlankScoresZero(t *testing.T) {
	env := newTestEnv(t, 30*time.Millisecond)
	events, cancel := env.svc.Subscribe("u1")
	defer cancel()
	mustStart(t, env)

	snap := waitForState(t, events, app.StateResults)
	if snap.Results.Score != 0 {
		t.Fatalf("expected score 0 for blank submission, got %d", snap.Results.Score)
	}
	waitFor(t, func() bool { return len(env.results.Results()) == 1 })
}

func TestWarningResetsAttempt(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	env.profiles.Seed(domain.Profile{UserID: "u1", ViolationCount: 2})
	mustStart(t, env)
	answerAndNext(t, env, 1)

	snap, err := env.svc.ReportViolation(context.Background(), "u1", domain.ViolationTabSwitch)
	if err != nil {
		t.Fatalf("violation: %v", err)
	}
	if snap.State != app.StateWarning {
		t.Fatalf("expected warning state, got %s", snap.State)
	}
	if snap.WarningCount != 3 {
		t.Fatalf("expected warning count 3, got %d", snap.WarningCount)
	}
	if snap.TotalQuestions != 0 || snap.Question != nil {
		t.Fatalf("expected attempt discarded, got %+v", snap)
	}

	profile, _ := env.profiles.Profile(context.Background(), "u1")
	if profile.ViolationCount != 3 || profile.IsBlocked {
		t.Fatalf("expected count 3 and unblocked, got %+v", profile)
	}

	snap, err = env.svc.Acknowledge("u1")
	if err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if snap.State != app.StateLanding {
		t.Fatalf("expected landing after acknowledgment, got %s", snap.State)
	}

	// Nothing carries over into the next attempt.
	started := mustStart(t, env)
	if started.QuestionIndex != 0 || started.Selected != -1 {
		t.Fatalf("expected fresh attempt, got %+v", started)
	}
	if got := len(env.results.Results()); got != 0 {
		t.Fatalf("violation must not produce a result record, got %d", got)
	}
}

func TestFourthViolationBlocksAndGatesRestart(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	env.profiles.Seed(domain.Profile{UserID: "u1", Email: "u1@example.com", ViolationCount: 3})
	mustStart(t, env)

	snap, err := env.svc.ReportViolation(context.Background(), "u1", domain.ViolationWindowBlur)
	if err != nil {
		t.Fatalf("violation: %v", err)
	}
	if snap.State != app.StateViolation {
		t.Fatalf("expected violation state, got %s", snap.State)
	}
	if snap.BlockedReason == "" {
		t.Fatalf("expected blocked reason surfaced")
	}

	profile, _ := env.profiles.Profile(context.Background(), "u1")
	if !profile.IsBlocked || profile.ViolationCount != 4 {
		t.Fatalf("expected blocked profile at count 4, got %+v", profile)
	}

	select {
	case email := <-env.notifier.sent:
		if email != "u1@example.com" {
			t.Fatalf("expected notice to u1@example.com, got %s", email)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected blocked notice dispatched")
	}

	if _, err := env.svc.Acknowledge("u1"); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	// The account stays blocked at the data layer.
	if _, err := env.svc.Start(context.Background(), ident, domain.QuizTypePlugin, domain.DifficultyAdvanced); !errors.Is(err, domain.ErrUserBlocked) {
		t.Fatalf("expected ErrUserBlocked on restart, got %v", err)
	}
}

func TestViolationIgnoredOutsideQuiz(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	_, cancel := env.svc.Subscribe("u1") // materialize the session at landing
	defer cancel()

	snap, err := env.svc.ReportViolation(context.Background(), "u1", domain.ViolationTabSwitch)
	if err != nil {
		t.Fatalf("violation: %v", err)
	}
	if snap.State != app.StateLanding {
		t.Fatalf("expected landing unchanged, got %s", snap.State)
	}
	profile, _ := env.profiles.Profile(context.Background(), "u1")
	if profile.ViolationCount != 0 {
		t.Fatalf("expected counter untouched, got %d", profile.ViolationCount)
	}
}

func TestRepeatedSignalsClassifyOnce(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	mustStart(t, env)

	if _, err := env.svc.ReportViolation(context.Background(), "u1", domain.ViolationWindowBlur); err != nil {
		t.Fatalf("violation: %v", err)
	}
	if _, err := env.svc.ReportViolation(context.Background(), "u1", domain.ViolationTabSwitch); err != nil {
		t.Fatalf("violation: %v", err)
	}

	profile, _ := env.profiles.Profile(context.Background(), "u1")
	if profile.ViolationCount != 1 {
		t.Fatalf("expected a single classification, got count %d", profile.ViolationCount)
	}
}

func TestRestartLeavesResults(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	mustStart(t, env)
	answerAndNext(t, env, 1)
	answerAndNext(t, env, 0)
	if _, err := env.svc.Advance("u1"); err != nil {
		t.Fatalf("final advance: %v", err)
	}

	snap, err := env.svc.Restart("u1")
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if snap.State != app.StateLanding || snap.Results != nil {
		t.Fatalf("expected clean landing, got %+v", snap)
	}

	if _, err := env.svc.Restart("u1"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestResultSaveFailureStillShowsScore(t *testing.T) {
	profiles := memory.NewProfileStore()
	svc := app.NewSessionService(
		newMemorySessions(profiles, failingResults{}, nil),
		memory.NewQuestionRepository(memory.NewStaticQuestionLoader(sampleBanks()), time.Minute),
		nil,
		profiles,
		memory.StaticSettings{Duration: time.Minute},
	)
	events, cancel := svc.Subscribe("u1")
	defer cancel()

	if _, err := svc.Start(context.Background(), ident, domain.QuizTypePlugin, domain.DifficultyAdvanced); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := svc.Advance("u1"); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	snap, err := svc.Advance("u1")
	if err != nil {
		t.Fatalf("final advance: %v", err)
	}
	if snap.State != app.StateResults || snap.Results == nil {
		t.Fatalf("expected local results despite save failure, got %+v", snap)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Notice == "Score could not be saved" {
				return
			}
		case <-deadline:
			t.Fatalf("expected save-failure notice")
		}
	}
}

func TestDeterrentNeverTouchesCounter(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	mustStart(t, env)

	notice, handled := env.svc.Deterrent("u1", "copy")
	if !handled || notice == "" {
		t.Fatalf("expected copy deterrent notice, got handled=%v notice=%q", handled, notice)
	}
	if _, handled := env.svc.Deterrent("u1", "contextmenu"); !handled {
		t.Fatalf("expected context menu suppressed during quiz")
	}

	profile, _ := env.profiles.Profile(context.Background(), "u1")
	if profile.ViolationCount != 0 {
		t.Fatalf("deterrents must not count as violations, got %d", profile.ViolationCount)
	}
	snap, _ := env.svc.SelectAnswer("u1", 0)
	if snap.State != app.StateQuiz {
		t.Fatalf("expected quiz uninterrupted, got %s", snap.State)
	}
}

func TestSubscribeInitialSnapshotOrdering(t *testing.T) {
	bank := sampleBanks()["plugin:advanced"]
	for i := 0; i < 100; i++ {
		session := app.NewSession("u1",
			app.NewPolicy(memory.NewProfileStore(), nil),
			app.NewRecorder(memory.NewResultStore()))

		done := make(chan struct{})
		go func() {
			defer close(done)
			if _, err := session.Begin(domain.QuizTypePlugin, domain.DifficultyAdvanced, bank, time.Minute); err != nil {
				t.Errorf("begin: %v", err)
			}
		}()
		events, cancel := session.Subscribe()
		<-done

		// Both the initial snapshot and the begin broadcast are enqueued by
		// now; whatever arrives last must be the newest state.
		last := app.State("")
	drain:
		for {
			select {
			case ev := <-events:
				if ev.Snapshot != nil {
					last = ev.Snapshot.State
				}
			default:
				break drain
			}
		}
		cancel()
		if last != app.StateQuiz {
			t.Fatalf("iteration %d: stale snapshot delivered last, got %s", i, last)
		}
	}
}

// --- helpers ---

type testEnv struct {
	svc      *app.SessionService
	profiles *memory.ProfileStore
	results  *memory.ResultStore
	notifier *captureNotifier
}

func newTestEnv(t *testing.T, duration time.Duration) *testEnv {
	t.Helper()
	profiles := memory.NewProfileStore()
	results := memory.NewResultStore()
	notifier := &captureNotifier{sent: make(chan string, 4)}
	svc := app.NewSessionService(
		newMemorySessions(profiles, results, notifier),
		memory.NewQuestionRepository(memory.NewStaticQuestionLoader(sampleBanks()), time.Minute),
		nil, // small banks are served as-is without a fallback source
		profiles,
		memory.StaticSettings{Duration: duration},
	)
	return &testEnv{svc: svc, profiles: profiles, results: results, notifier: notifier}
}

func newMemorySessions(profiles app.ProfileStore, results app.ResultStore, notifier app.Notifier) *memory.SessionStore {
	policy := app.NewPolicy(profiles, notifier)
	recorder := app.NewRecorder(results)
	return memory.NewSessionStore(func(userID string) *app.Session {
		return app.NewSession(userID, policy, recorder)
	})
}

func mustStart(t *testing.T, env *testEnv) app.Snapshot {
	t.Helper()
	snap, err := env.svc.Start(context.Background(), ident, domain.QuizTypePlugin, domain.DifficultyAdvanced)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap.State != app.StateQuiz {
		t.Fatalf("expected quiz state, got %s", snap.State)
	}
	return snap
}

func answerAndNext(t *testing.T, env *testEnv, option int) {
	t.Helper()
	if _, err := env.svc.SelectAnswer("u1", option); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := env.svc.Advance("u1"); err != nil {
		t.Fatalf("advance: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

func waitForState(t *testing.T, events <-chan app.Event, want app.State) app.Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Snapshot != nil && ev.Snapshot.State == want {
				return *ev.Snapshot
			}
		case <-deadline:
			t.Fatalf("did not reach state %s", want)
		}
	}
}

type failingResults struct{}

func (failingResults) SaveResult(context.Context, domain.AttemptResult) error {
	return errors.New("results store unreachable")
}

func sampleBanks() map[string][]domain.Question {
	return map[string][]domain.Question{
		"plugin:advanced": {
			{
				ID:            "q1",
				Prompt:        "Which hook runs after WordPress finishes loading?",
				Options:       []string{"wp_head", "wp_loaded", "shutdown"},
				CorrectOption: 1,
				Explanation:   "wp_loaded fires once WordPress is fully loaded.",
			},
			{
				ID:            "q2",
				Prompt:        "Which function escapes HTML output?",
				Options:       []string{"esc_html()", "strip_tags()", "wp_kses_data()"},
				CorrectOption: 0,
				Explanation:   "esc_html() escapes a string for safe HTML output.",
			},
			{
				ID:            "q3",
				Prompt:        "Where do custom rewrite rules get registered?",
				Options:       []string{"wp-config.php", ".htaccess only", "init hook via add_rewrite_rule()"},
				CorrectOption: 2,
				Explanation:   "add_rewrite_rule() on init registers custom rewrite rules.",
			},
		},
	}
}
