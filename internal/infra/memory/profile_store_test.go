package memory

import (
	"context"
	"testing"
	"time"

	"wp-quiz-service/internal/domain"
)

func TestProfileStoreUpsertSemantics(t *testing.T) {
	store := NewProfileStore()
	ctx := context.Background()

	// A user never seen before reads as a zero-valued profile.
	profile, err := store.Profile(ctx, "u1")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.ViolationCount != 0 || profile.IsBlocked {
		t.Fatalf("expected zero profile, got %+v", profile)
	}

	if err := store.UpdateViolationCount(ctx, "u1", 2); err != nil {
		t.Fatalf("update: %v", err)
	}
	profile, _ = store.Profile(ctx, "u1")
	if profile.ViolationCount != 2 {
		t.Fatalf("expected count 2, got %d", profile.ViolationCount)
	}
}

func TestProfileStoreBlockWritesAuditRow(t *testing.T) {
	store := NewProfileStore()
	ctx := context.Background()
	at := time.Now()

	if err := store.Block(ctx, "u1", "Cheating detected: tab_switch (Multiple violations)", domain.ViolationTabSwitch, at); err != nil {
		t.Fatalf("block: %v", err)
	}

	profile, _ := store.Profile(ctx, "u1")
	if !profile.IsBlocked || profile.BlockedAt == nil {
		t.Fatalf("expected blocked profile, got %+v", profile)
	}

	records := store.BlockRecords()
	if len(records) != 1 {
		t.Fatalf("expected 1 audit row, got %d", len(records))
	}
	if records[0].ViolationKind != domain.ViolationTabSwitch || records[0].ID == "" {
		t.Fatalf("unexpected audit row %+v", records[0])
	}
}
