package app_test

import (
	"sync/atomic"
	"testing"
	"time"

	"wp-quiz-service/internal/app"
)

func TestTimerFiresExactlyOnce(t *testing.T) {
	var fired atomic.Int32
	timer := app.NewTimer(func() { fired.Add(1) })

	timer.Start(20 * time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	if got := fired.Load(); got != 1 {
		t.Fatalf("expected 1 expiry, got %d", got)
	}
}

func TestTimerStopCancelsExpiry(t *testing.T) {
	var fired atomic.Int32
	timer := app.NewTimer(func() { fired.Add(1) })

	timer.Start(20 * time.Millisecond)
	timer.Stop()
	time.Sleep(60 * time.Millisecond)

	if got := fired.Load(); got != 0 {
		t.Fatalf("expected no expiry after stop, got %d", got)
	}
}

func TestTimerRestartDoesNotDoubleFire(t *testing.T) {
	var fired atomic.Int32
	timer := app.NewTimer(func() { fired.Add(1) })

	// Stop-and-restart across attempts must not leak the first countdown.
	timer.Start(20 * time.Millisecond)
	timer.Stop()
	timer.Start(40 * time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Fatalf("stale countdown fired, got %d", got)
	}
	time.Sleep(50 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("expected exactly 1 expiry, got %d", got)
	}
}

func TestTimerSetDurationWhileStopped(t *testing.T) {
	timer := app.NewTimer(nil)

	timer.SetDuration(5 * time.Minute)
	if got := timer.Remaining(); got != 5*time.Minute {
		t.Fatalf("expected 5m remaining while stopped, got %v", got)
	}

	timer.Start(time.Hour)
	timer.SetDuration(time.Minute) // ignored while running
	if got := timer.Remaining(); got < 59*time.Minute {
		t.Fatalf("expected running countdown unaffected, got %v", got)
	}
	timer.Stop()
}
