package app

import (
	"sync"
	"time"
)

// Timer is a one-shot countdown for a quiz attempt. Expiry fires exactly
// once per Start; stopping and restarting across attempts never lets a stale
// countdown fire into a later attempt (each Start bumps a generation and the
// scheduled callback checks it before delivering).
type Timer struct {
	onExpire func()
	now      func() time.Time

	mu       sync.Mutex
	duration time.Duration
	deadline time.Time
	running  bool
	gen      uint64
	pending  *time.Timer
}

func NewTimer(onExpire func()) *Timer {
	return &Timer{onExpire: onExpire, now: time.Now}
}

// Start begins the countdown. A running countdown is replaced.
func (t *Timer) Start(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending != nil {
		t.pending.Stop()
	}
	t.gen++
	t.duration = d
	t.deadline = t.now().Add(d)
	t.running = true
	gen := t.gen
	t.pending = time.AfterFunc(d, func() { t.fire(gen) })
}

// Stop cancels a pending expiry. Safe to call when not running.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	t.running = false
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}

// SetDuration reconfigures the displayed remaining time while stopped.
// It does not start the clock.
func (t *Timer) SetDuration(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.duration = d
}

// Remaining returns the time left on the countdown, or the configured
// duration when stopped. Never negative.
func (t *Timer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return t.duration
	}
	left := t.deadline.Sub(t.now())
	if left < 0 {
		return 0
	}
	return left
}

func (t *Timer) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	t.pending = nil
	t.mu.Unlock()

	if t.onExpire != nil {
		t.onExpire()
	}
}
