package state

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/example/loopctl/internal/core/event"
)

var testStages = []string{"S0", "S3", "S4"}

func strPtr(s string) *string { return &s }

func ev(kind event.Kind, stage, ts string) event.Event {
	return event.Event{
		SchemaVersion:   event.SchemaVersion,
		Event:           kind,
		RunID:           "SFS-TEST-20260213-1200",
		Stage:           stage,
		Timestamp:       ts,
		LoopSpecVersion: "1.0.0",
	}
}

func completed(stage, ts string, artifacts map[string]string) event.Event {
	e := ev(event.KindStageCompleted, stage, ts)
	e.Artifacts = artifacts
	return e
}

func blocked(stage, ts, reason string) event.Event {
	e := ev(event.KindStageBlocked, stage, ts)
	e.BlockingReason = strPtr(reason)
	return e
}

func testOpts() Options {
	return Options{Business: "TEST", RunID: "SFS-TEST-20260213-1200", LoopSpecVersion: "1.0.0"}
}

func TestDeriveSeedsAllStagesPending(t *testing.T) {
	derived := Derive(nil, testStages, testOpts())

	if len(derived.Stages) != len(testStages) {
		t.Fatalf("expected %d stages, got %d", len(testStages), len(derived.Stages))
	}
	for _, stage := range testStages {
		st := derived.Stages[stage]
		if st == nil || st.Status != StatusPending {
			t.Errorf("stage %s: expected pending seed, got %+v", stage, st)
		}
	}
	if derived.ActiveStage != nil {
		t.Errorf("expected no active stage, got %v", *derived.ActiveStage)
	}
}

func TestDeriveLifecycle(t *testing.T) {
	events := []event.Event{
		ev(event.KindStageStarted, "S0", "2026-02-13T10:00:00Z"),
		completed("S0", "2026-02-13T10:05:00Z", map[string]string{"x": "y"}),
		ev(event.KindStageStarted, "S4", "2026-02-13T10:10:00Z"),
		blocked("S4", "2026-02-13T10:15:00Z", "S3 not done"),
	}

	derived := Derive(events, testStages, testOpts())

	if derived.Stages["S0"].Status != StatusDone {
		t.Errorf("S0 status = %s, want done", derived.Stages["S0"].Status)
	}
	if got := derived.Stages["S0"].Artifacts; !reflect.DeepEqual(got, []string{"y"}) {
		t.Errorf("S0 artifacts = %v", got)
	}
	if derived.Stages["S4"].Status != StatusBlocked {
		t.Errorf("S4 status = %s, want blocked", derived.Stages["S4"].Status)
	}
	if derived.Stages["S4"].BlockingReason == nil || *derived.Stages["S4"].BlockingReason != "S3 not done" {
		t.Errorf("S4 blocking reason = %v", derived.Stages["S4"].BlockingReason)
	}
	if derived.ActiveStage == nil || *derived.ActiveStage != "S4" {
		t.Errorf("active stage = %v, want S4", derived.ActiveStage)
	}
}

func TestDeriveResumeClearsBlockingReason(t *testing.T) {
	events := []event.Event{
		ev(event.KindStageStarted, "S4", "2026-02-13T10:10:00Z"),
		blocked("S4", "2026-02-13T10:15:00Z", "S3 not done"),
		ev(event.KindStageStarted, "S4", "2026-02-13T10:30:00Z"),
	}

	derived := Derive(events, testStages, testOpts())

	st := derived.Stages["S4"]
	if st.Status != StatusActive {
		t.Errorf("status = %s, want active", st.Status)
	}
	if st.BlockingReason != nil {
		t.Errorf("blocking reason = %q, want nil", *st.BlockingReason)
	}
	if derived.ActiveStage == nil || *derived.ActiveStage != "S4" {
		t.Errorf("active stage = %v, want S4", derived.ActiveStage)
	}
}

func TestDeriveAbortClearsActiveStageOnly(t *testing.T) {
	abort := ev(event.KindRunAborted, event.WildcardStage, "2026-02-13T11:00:00Z")
	abort.BlockingReason = strPtr("operator=jo reason=stale data")

	events := []event.Event{
		ev(event.KindStageStarted, "S0", "2026-02-13T10:00:00Z"),
		completed("S0", "2026-02-13T10:05:00Z", map[string]string{"x": "y"}),
		ev(event.KindStageStarted, "S4", "2026-02-13T10:10:00Z"),
		abort,
	}

	derived := Derive(events, testStages, testOpts())

	if derived.ActiveStage != nil {
		t.Errorf("active stage = %v, want nil after abort", *derived.ActiveStage)
	}
	if derived.Stages["S0"].Status != StatusDone {
		t.Errorf("S0 status = %s, abort must not rewrite stage status", derived.Stages["S0"].Status)
	}
	if derived.Stages["S4"].Status != StatusActive {
		t.Errorf("S4 status = %s, abort must not rewrite stage status", derived.Stages["S4"].Status)
	}
}

func TestDeriveSkipsUnknownStages(t *testing.T) {
	events := []event.Event{
		ev(event.KindStageStarted, "S99", "2026-02-13T10:00:00Z"),
	}

	derived := Derive(events, testStages, testOpts())

	if _, ok := derived.Stages["S99"]; ok {
		t.Error("unknown stage must not be added to derived state")
	}
	if derived.ActiveStage != nil {
		t.Errorf("active stage = %v, want nil", *derived.ActiveStage)
	}
}

func TestDeriveArtifactsSorted(t *testing.T) {
	events := []event.Event{
		completed("S0", "2026-02-13T10:05:00Z", map[string]string{
			"c": "stages/S0/c.json",
			"a": "stages/S0/a.json",
			"b": "stages/S0/b.json",
		}),
	}

	derived := Derive(events, testStages, testOpts())

	want := []string{"stages/S0/a.json", "stages/S0/b.json", "stages/S0/c.json"}
	if got := derived.Stages["S0"].Artifacts; !reflect.DeepEqual(got, want) {
		t.Errorf("artifacts = %v, want %v", got, want)
	}
}

func TestDeriveDeterministicSerialization(t *testing.T) {
	events := []event.Event{
		ev(event.KindStageStarted, "S0", "2026-02-13T10:00:00Z"),
		completed("S0", "2026-02-13T10:05:00Z", map[string]string{"b": "2", "a": "1"}),
		blocked("S4", "2026-02-13T10:15:00Z", "S3 not done"),
	}

	first, err := json.Marshal(Derive(events, testStages, testOpts()))
	if err != nil {
		t.Fatal(err)
	}
	second, err := json.Marshal(Derive(events, testStages, testOpts()))
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Errorf("derivation not deterministic:\n%s\n%s", first, second)
	}
}
