package app

import (
	"context"
	"testing"

	"github.com/example/loopctl/internal/adapters/filesystem"
	"github.com/example/loopctl/internal/core/replan"
)

func TestAcknowledgeOpenTrigger(t *testing.T) {
	base := t.TempDir()
	triggers := filesystem.NewTriggerStore(base)
	svc := NewTriggerService(triggers, fixedClock())
	ctx := context.Background()

	if err := triggers.Write(ctx, "BRIK", &replan.Trigger{
		Status:          replan.StatusOpen,
		CreatedAt:       "2026-02-12T12:00:00Z",
		LastEvaluatedAt: "2026-02-12T12:00:00Z",
	}); err != nil {
		t.Fatal(err)
	}

	trigger, err := svc.Acknowledge(ctx, "BRIK")
	if err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if trigger.Status != replan.StatusAcknowledged {
		t.Fatalf("expected acknowledged, got %s", trigger.Status)
	}

	stored, err := triggers.Read(ctx, "BRIK")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if stored.Status != replan.StatusAcknowledged {
		t.Errorf("acknowledgement not persisted: %+v", stored)
	}
}

func TestAcknowledgeRejectsNonOpen(t *testing.T) {
	base := t.TempDir()
	triggers := filesystem.NewTriggerStore(base)
	svc := NewTriggerService(triggers, fixedClock())
	ctx := context.Background()

	if _, err := svc.Acknowledge(ctx, "BRIK"); err == nil {
		t.Fatal("expected error with no trigger")
	}

	if err := triggers.Write(ctx, "BRIK", &replan.Trigger{Status: replan.StatusResolved}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Acknowledge(ctx, "BRIK"); err == nil {
		t.Fatal("expected error for resolved trigger")
	}
}
