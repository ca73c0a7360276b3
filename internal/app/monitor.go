package app

import (
	"sync"

	"wp-quiz-service/internal/domain"
)

// Monitor latches integrity signals for a single quiz attempt. Clients report
// raw browser events (visibility loss, blur, page hide, blocked shortcuts);
// the monitor accepts at most one of them per armed period so the policy
// layer sees exactly one violation even when several signals arrive in the
// same tick (a blur immediately followed by a visibility change is common).
type Monitor struct {
	mu      sync.Mutex
	armed   bool
	latched bool
}

func NewMonitor() *Monitor {
	return &Monitor{}
}

// Arm begins a monitoring period and clears the latch from any prior one.
func (m *Monitor) Arm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.armed = true
	m.latched = false
}

// Disarm stops the monitoring period. Signals are rejected until the next Arm.
func (m *Monitor) Disarm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.armed = false
}

// Signal reports a raw violation signal. It returns true only for the first
// signal of an armed period; everything after that is swallowed.
func (m *Monitor) Signal(kind domain.ViolationKind) bool {
	if !kind.Valid() {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.armed || m.latched {
		return false
	}
	m.latched = true
	return true
}

// Armed reports whether the monitor is currently accepting signals.
func (m *Monitor) Armed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.armed && !m.latched
}
