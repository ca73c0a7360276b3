package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"wp-quiz-service/internal/domain"
)

// BlockThreshold is the violation count at which an account is blocked.
// Counts 1 through 3 are warnings; the 4th violation blocks.
const BlockThreshold = 4

// ProfileStore abstracts the external profile record holding the violation
// counter and block state (Postgres in production, in-memory for tests).
type ProfileStore interface {
	Profile(ctx context.Context, userID string) (domain.Profile, error)
	UpdateViolationCount(ctx context.Context, userID string, count int) error
	// Block marks the account blocked and appends the audit record atomically
	// with the flag as far as the backing store allows.
	Block(ctx context.Context, userID, reason string, kind domain.ViolationKind, at time.Time) error
}

// Notifier delivers the off-band "account blocked" notice. Failures must not
// affect the blocking outcome.
type Notifier interface {
	NotifyBlocked(ctx context.Context, email, reason string) error
}

// Classification is the policy outcome for a single violation.
type Classification string

const (
	ClassWarning Classification = "warning"
	ClassBlock   Classification = "block"
)

// Verdict is the result of classifying one violation.
type Verdict struct {
	Classification Classification
	// Count is the violation count after this one, for display
	// ("warning 2 of 3"). In degraded mode it is the session-local count.
	Count int
	// Reason is set only for blocks.
	Reason string
	// Degraded is true when the remote counter was unreachable and only a
	// session-scoped counter was advanced.
	Degraded bool
	Kind     domain.ViolationKind
}

// Policy converts raw violation signals into warnings or blocks. The remote
// profile store is the source of truth for the counter; a client-held count
// is never trusted across reloads.
type Policy struct {
	profiles  ProfileStore
	notifier  Notifier
	now       func() time.Time
	notifyTTL time.Duration

	mu    sync.Mutex
	local map[string]int // session-scoped fallback counters
}

func NewPolicy(profiles ProfileStore, notifier Notifier) *Policy {
	return &Policy{
		profiles:  profiles,
		notifier:  notifier,
		now:       time.Now,
		notifyTTL: 15 * time.Second,
		local:     make(map[string]int),
	}
}

// NewPolicyWithClock is test-only for deterministic timestamps.
func NewPolicyWithClock(profiles ProfileStore, notifier Notifier, now func() time.Time) *Policy {
	p := NewPolicy(profiles, notifier)
	p.now = now
	return p
}

// ClassifyAndRecord increments the user's violation counter and decides
// warning vs block. It never returns an error: persistence failures degrade
// to a session-local counter and a warning rather than stalling the quiz
// flow. Authentication gating happens before the quiz starts, so an empty
// userID here means the profile collaborator is not configured at all.
func (p *Policy) ClassifyAndRecord(ctx context.Context, userID string, kind domain.ViolationKind) Verdict {
	if userID == "" || p.profiles == nil {
		return p.localVerdict(userID, kind)
	}

	profile, err := p.profiles.Profile(ctx, userID)
	if err != nil {
		log.Printf("violation policy: read profile %s: %v", userID, err)
		return p.localVerdict(userID, kind)
	}

	newCount := profile.ViolationCount + 1
	if err := p.profiles.UpdateViolationCount(ctx, userID, newCount); err != nil {
		// Favor availability: proceed as if the write landed, keep the audit
		// inconsistency in the log.
		log.Printf("violation policy: update count for %s to %d: %v", userID, newCount, err)
	}

	if newCount >= BlockThreshold {
		reason := fmt.Sprintf("Cheating detected: %s (Multiple violations)", kind)
		if err := p.profiles.Block(ctx, userID, reason, kind, p.now()); err != nil {
			log.Printf("violation policy: block %s: %v", userID, err)
		}
		p.dispatchNotice(profile.Email, reason)
		return Verdict{Classification: ClassBlock, Count: newCount, Reason: reason, Kind: kind}
	}
	return Verdict{Classification: ClassWarning, Count: newCount, Kind: kind}
}

// localVerdict advances the session-scoped counter. Degraded mode always
// classifies as a warning: without the remote count we cannot prove the user
// earned a block, but we never lose track of at least one local violation.
func (p *Policy) localVerdict(userID string, kind domain.ViolationKind) Verdict {
	key := userID
	if key == "" {
		key = "anonymous"
	}
	p.mu.Lock()
	p.local[key]++
	count := p.local[key]
	p.mu.Unlock()
	return Verdict{Classification: ClassWarning, Count: count, Degraded: true, Kind: kind}
}

// dispatchNotice fires the blocked email after the block is recorded. It is
// deliberately not awaited by the caller.
func (p *Policy) dispatchNotice(email, reason string) {
	if p.notifier == nil || email == "" {
		return
	}
	ttl := p.notifyTTL
	notifier := p.notifier
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), ttl)
		defer cancel()
		if err := notifier.NotifyBlocked(ctx, email, reason); err != nil {
			log.Printf("violation policy: blocked notice to %s: %v", email, err)
		}
	}()
}
