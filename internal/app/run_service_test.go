package app

import (
	"context"
	"testing"
	"time"

	"github.com/example/loopctl/internal/adapters/filesystem"
	"github.com/example/loopctl/internal/core/event"
	"github.com/example/loopctl/internal/core/loopspec"
	"github.com/example/loopctl/internal/core/recovery"
	"github.com/example/loopctl/internal/core/state"
	"github.com/example/loopctl/internal/ports/primary"
	"github.com/example/loopctl/internal/ports/secondary"
)

func fixedClock() secondary.Clock {
	return secondary.ClockFunc(func() time.Time {
		return time.Date(2026, 2, 13, 15, 0, 0, 0, time.UTC)
	})
}

func newRunFixture(t *testing.T) (*RunServiceImpl, *filesystem.EventLog, secondary.RunRef) {
	t.Helper()
	base := t.TempDir()
	events := filesystem.NewEventLog(base)
	svc := NewRunService(events, loopspec.Default(), fixedClock())
	return svc, events, secondary.RunRef{Business: "BRIK", RunID: "SFS-BRIK-20260213-1200"}
}

func appendEvent(t *testing.T, log *filesystem.EventLog, ref secondary.RunRef, e event.Event) {
	t.Helper()
	if err := log.Append(context.Background(), ref, e); err != nil {
		t.Fatalf("append event: %v", err)
	}
}

func TestDeriveStateSeedsAllStages(t *testing.T) {
	svc, _, ref := newRunFixture(t)

	derived, err := svc.DeriveState(context.Background(), primary.RunRequest{Business: ref.Business, RunID: ref.RunID})
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if len(derived.Stages) != 13 {
		t.Fatalf("expected 13 seeded stages, got %d", len(derived.Stages))
	}
	if derived.Stages["S3"].Status != state.StatusPending {
		t.Errorf("unstarted stage should be pending, got %s", derived.Stages["S3"].Status)
	}
}

func TestValidateEventsReportsDefects(t *testing.T) {
	svc, log, ref := newRunFixture(t)

	appendEvent(t, log, ref, event.Event{
		SchemaVersion: 2,
		Event:         "stage_exploded",
		RunID:         ref.RunID,
		Stage:         "S3",
		Timestamp:     "2026-02-13T12:00:00Z",
	})

	result, err := svc.ValidateEvents(context.Background(), primary.RunRequest{Business: ref.Business, RunID: ref.RunID})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.Valid {
		t.Fatal("expected invalid log")
	}
	if len(result.Errors) < 3 {
		t.Errorf("expected accumulated defects, got %v", result.Errors)
	}
}

func TestRecoverResumesBlockedStage(t *testing.T) {
	svc, log, ref := newRunFixture(t)
	ctx := context.Background()

	reason := "upstream dependencies missing"
	appendEvent(t, log, ref, event.Event{
		SchemaVersion: 1, Event: event.KindStageStarted, RunID: ref.RunID, Stage: "S4",
		Timestamp: "2026-02-13T12:00:00Z", LoopSpecVersion: "1.0.0",
	})
	appendEvent(t, log, ref, event.Event{
		SchemaVersion: 1, Event: event.KindStageBlocked, RunID: ref.RunID, Stage: "S4",
		Timestamp: "2026-02-13T12:05:00Z", LoopSpecVersion: "1.0.0", BlockingReason: &reason,
	})

	decision, err := svc.Recover(ctx, primary.RecoverRequest{Business: ref.Business, RunID: ref.RunID, TargetStage: "S4"})
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if decision.Action != recovery.ActionResume {
		t.Fatalf("expected resume, got %s", decision.Action)
	}

	derived, err := svc.DeriveState(ctx, primary.RunRequest{Business: ref.Business, RunID: ref.RunID})
	if err != nil {
		t.Fatalf("derive after recover: %v", err)
	}
	if derived.Stages["S4"].Status != state.StatusActive {
		t.Errorf("recovered stage should be active, got %s", derived.Stages["S4"].Status)
	}
	if derived.Stages["S4"].BlockingReason != nil {
		t.Error("resume must clear the blocking reason")
	}
}

func TestRecoverDryRunAppendsNothing(t *testing.T) {
	svc, log, ref := newRunFixture(t)
	ctx := context.Background()

	decision, err := svc.Recover(ctx, primary.RecoverRequest{Business: ref.Business, RunID: ref.RunID, TargetStage: "S4", DryRun: true})
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if decision.Action != recovery.ActionRestart {
		t.Fatalf("expected restart for pending stage, got %s", decision.Action)
	}

	events, err := log.Read(ctx, ref)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("dry run must not append, got %d events", len(events))
	}
}

func TestAbortRecordsOperator(t *testing.T) {
	svc, log, ref := newRunFixture(t)
	ctx := context.Background()

	appendEvent(t, log, ref, event.Event{
		SchemaVersion: 1, Event: event.KindStageStarted, RunID: ref.RunID, Stage: "S6",
		Timestamp: "2026-02-13T12:00:00Z", LoopSpecVersion: "1.0.0",
	})

	err := svc.Abort(ctx, primary.AbortRequest{Business: ref.Business, RunID: ref.RunID, Operator: "jo", Reason: "bad inputs"})
	if err != nil {
		t.Fatalf("abort: %v", err)
	}

	events, err := log.Read(ctx, ref)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	last := events[len(events)-1]
	if last.Event != event.KindRunAborted || last.Stage != event.WildcardStage {
		t.Fatalf("unexpected abort event: %+v", last)
	}
	if last.BlockingReason == nil || *last.BlockingReason != "aborted by jo: bad inputs" {
		t.Errorf("abort reason missing operator identity: %+v", last.BlockingReason)
	}

	derived, err := svc.DeriveState(ctx, primary.RunRequest{Business: ref.Business, RunID: ref.RunID})
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if derived.ActiveStage != nil {
		t.Error("abort must clear the active stage")
	}
	if derived.Stages["S6"].Status != state.StatusActive {
		t.Error("abort must not rewrite per-stage statuses")
	}
}

func TestAbortRequiresOperator(t *testing.T) {
	svc, _, ref := newRunFixture(t)

	if err := svc.Abort(context.Background(), primary.AbortRequest{Business: ref.Business, RunID: ref.RunID}); err == nil {
		t.Fatal("expected abort without operator to fail")
	}
}
