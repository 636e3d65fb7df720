package app

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/example/loopctl/internal/adapters/cards"
	"github.com/example/loopctl/internal/adapters/filesystem"
	"github.com/example/loopctl/internal/core/loopspec"
	"github.com/example/loopctl/internal/core/stageresult"
	"github.com/example/loopctl/internal/ports/primary"
	"github.com/example/loopctl/internal/ports/secondary"
)

// flakyCards fails the stage-doc upsert a configurable number of times
// to exercise the partial-failure path.
type flakyCards struct {
	inner        secondary.CardClient
	stageDocFail int
}

func (f *flakyCards) UpsertCard(ctx context.Context, cardID, title, body string) error {
	return f.inner.UpsertCard(ctx, cardID, title, body)
}

func (f *flakyCards) UpsertStageDoc(ctx context.Context, cardID, stage, body string) error {
	if f.stageDocFail > 0 {
		f.stageDocFail--
		return fmt.Errorf("card backend unavailable")
	}
	return f.inner.UpsertStageDoc(ctx, cardID, stage, body)
}

func newMergeFixture(t *testing.T, cardClient secondary.CardClient) (*MergeServiceImpl, *filesystem.StageResultStore, secondary.RunRef) {
	t.Helper()
	base := t.TempDir()
	results := filesystem.NewStageResultStore(base)
	if cardClient == nil {
		cardClient = cards.NewStore(base)
	}
	svc := NewMergeService(results, cardClient, loopspec.Default(), fixedClock())
	return svc, results, secondary.RunRef{Business: "BRIK", RunID: "SFS-BRIK-20260213-1200"}
}

func writeDoneStage(t *testing.T, store *filesystem.StageResultStore, ref secondary.RunRef, stage, key, timestamp, body string) {
	t.Helper()
	ctx := context.Background()
	relPath := fmt.Sprintf("stages/%s/%s.md", stage, key)
	if err := store.WriteArtifact(ctx, ref, relPath, []byte(body)); err != nil {
		t.Fatal(err)
	}
	result := &stageresult.StageResult{
		SchemaVersion:   1,
		RunID:           ref.RunID,
		Stage:           stage,
		LoopSpecVersion: "1.0.0",
		Status:          stageresult.StatusDone,
		Timestamp:       timestamp,
		ProducedKeys:    []string{key},
		Artifacts:       map[string]string{key: relPath},
	}
	if err := store.Write(ctx, ref, result); err != nil {
		t.Fatal(err)
	}
}

func TestMergeComposesWithPlaceholder(t *testing.T) {
	svc, results, ref := newMergeFixture(t, nil)
	ctx := context.Background()

	// S1 (optional positioning) deliberately absent.
	writeDoneStage(t, results, ref, "S2", "research", "2026-02-13T12:10:00Z", "research body")
	writeDoneStage(t, results, ref, "S2B", "pricing", "2026-02-13T12:40:00Z", "pricing body")
	writeDoneStage(t, results, ref, "S3", "forecast", "2026-02-13T12:20:00Z", "forecast body")

	merged, err := svc.Merge(ctx, primary.MergeRequest{Business: ref.Business, RunID: ref.RunID, Stage: "S4"})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.Status != stageresult.StatusDone {
		t.Fatalf("expected done, got %s (%v)", merged.Status, merged.BlockingReasons)
	}

	data, err := results.ReadArtifact(ctx, ref, merged.OutputPath)
	if err != nil {
		t.Fatalf("read merged artifact: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "(not produced this run)") {
		t.Error("absent optional input must render the placeholder")
	}
	if !strings.Contains(content, "Updated: 2026-02-13T12:40:00Z") {
		t.Errorf("document timestamp should be the max upstream timestamp:\n%s", content)
	}
	// Section order follows the requirement list.
	researchIdx := strings.Index(content, "## Market research")
	pricingIdx := strings.Index(content, "## Pricing model")
	if researchIdx < 0 || pricingIdx < 0 || researchIdx > pricingIdx {
		t.Errorf("sections out of order:\n%s", content)
	}

	written, err := results.Read(ctx, ref, "S4")
	if err != nil {
		t.Fatalf("read S4 result: %v", err)
	}
	if written.Status != stageresult.StatusDone || written.Timestamp != "2026-02-13T12:40:00Z" {
		t.Errorf("unexpected S4 result: %+v", written)
	}
}

func TestMergeIsDeterministic(t *testing.T) {
	svc, results, ref := newMergeFixture(t, nil)
	ctx := context.Background()

	writeDoneStage(t, results, ref, "S2", "research", "2026-02-13T12:10:00Z", "research body")
	writeDoneStage(t, results, ref, "S2B", "pricing", "2026-02-13T12:40:00Z", "pricing body")
	writeDoneStage(t, results, ref, "S3", "forecast", "2026-02-13T12:20:00Z", "forecast body")

	first, err := svc.Merge(ctx, primary.MergeRequest{Business: ref.Business, RunID: ref.RunID, Stage: "S4"})
	if err != nil {
		t.Fatalf("first merge: %v", err)
	}
	firstData, _ := results.ReadArtifact(ctx, ref, first.OutputPath)

	second, err := svc.Merge(ctx, primary.MergeRequest{Business: ref.Business, RunID: ref.RunID, Stage: "S4"})
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}
	secondData, _ := results.ReadArtifact(ctx, ref, second.OutputPath)

	if string(firstData) != string(secondData) {
		t.Error("identical inputs must compose byte-identical output")
	}
}

func TestMergeAccumulatesBlockingReasons(t *testing.T) {
	svc, results, ref := newMergeFixture(t, nil)
	ctx := context.Background()

	// S2 missing entirely; S3 failed; S2B done but missing the key.
	errText := "forecast model diverged"
	if err := results.Write(ctx, ref, &stageresult.StageResult{
		SchemaVersion: 1, RunID: ref.RunID, Stage: "S3", LoopSpecVersion: "1.0.0",
		Status: stageresult.StatusFailed, Timestamp: "2026-02-13T12:20:00Z", Error: &errText,
	}); err != nil {
		t.Fatal(err)
	}
	writeDoneStage(t, results, ref, "S2B", "other_key", "2026-02-13T12:40:00Z", "body")

	merged, err := svc.Merge(ctx, primary.MergeRequest{Business: ref.Business, RunID: ref.RunID, Stage: "S4"})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.Status != stageresult.StatusBlocked {
		t.Fatalf("expected blocked, got %s", merged.Status)
	}
	if len(merged.BlockingReasons) != 3 {
		t.Fatalf("expected 3 accumulated reasons, got %v", merged.BlockingReasons)
	}

	// Short-circuit: no composed artifact.
	if _, err := results.ReadArtifact(ctx, ref, "stages/S4/handoff.md"); err == nil {
		t.Error("blocked merge must not write the composed artifact")
	}

	written, err := results.Read(ctx, ref, "S4")
	if err != nil {
		t.Fatalf("read S4 result: %v", err)
	}
	if written.Status != stageresult.StatusBlocked || written.BlockingReason == nil {
		t.Fatalf("unexpected S4 result: %+v", written)
	}
	if !strings.Contains(*written.BlockingReason, "; ") {
		t.Errorf("blocking reasons should be joined: %s", *written.BlockingReason)
	}
}

func TestMergeUnknownBarrier(t *testing.T) {
	svc, _, ref := newMergeFixture(t, nil)

	if _, err := svc.Merge(context.Background(), primary.MergeRequest{Business: ref.Business, RunID: ref.RunID, Stage: "S5"}); err == nil {
		t.Fatal("expected error for stage without barrier definition")
	}
}

func TestPublishPartialFailureThenRetry(t *testing.T) {
	base := t.TempDir()
	results := filesystem.NewStageResultStore(base)
	flaky := &flakyCards{inner: cards.NewStore(base), stageDocFail: 1}
	svc := NewMergeService(results, flaky, loopspec.Default(), fixedClock())
	ref := secondary.RunRef{Business: "BRIK", RunID: "SFS-BRIK-20260213-1200"}
	ctx := context.Background()

	writeDoneStage(t, results, ref, "S4", "handoff", "2026-02-13T13:00:00Z", "handoff body")

	req := primary.PublishRequest{
		Business: ref.Business, RunID: ref.RunID, Stage: "S9",
		UpstreamStage: "S4", ArtifactKey: "handoff", CardID: "BRIK-PLAN-0007",
	}

	result, err := svc.Publish(ctx, req)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if result.Status != stageresult.StatusFailed {
		t.Fatalf("expected failed on partial upsert, got %s", result.Status)
	}
	if !strings.Contains(result.Error, "card backend unavailable") {
		t.Errorf("failed result must carry the upstream error text: %s", result.Error)
	}

	// Retry with a working backend completes from scratch.
	result, err = svc.Publish(ctx, req)
	if err != nil {
		t.Fatalf("retry publish: %v", err)
	}
	if result.Status != stageresult.StatusDone {
		t.Fatalf("expected done after retry, got %s", result.Status)
	}

	written, err := results.Read(ctx, ref, "S9")
	if err != nil {
		t.Fatalf("read S9 result: %v", err)
	}
	if written.Status != stageresult.StatusDone || written.Artifacts["card"] != "BRIK-PLAN-0007" {
		t.Errorf("unexpected S9 result: %+v", written)
	}
}

func TestPublishGatesOnUpstream(t *testing.T) {
	svc, results, ref := newMergeFixture(t, nil)
	ctx := context.Background()

	result, err := svc.Publish(ctx, primary.PublishRequest{
		Business: ref.Business, RunID: ref.RunID, Stage: "S9",
		UpstreamStage: "S4", ArtifactKey: "handoff", CardID: "BRIK-PLAN-0007",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if result.Status != stageresult.StatusBlocked {
		t.Fatalf("expected blocked without upstream, got %s", result.Status)
	}

	written, err := results.Read(ctx, ref, "S9")
	if err != nil {
		t.Fatalf("read S9 result: %v", err)
	}
	if written == nil || written.Status != stageresult.StatusBlocked {
		t.Errorf("blocked publish should record its own result: %+v", written)
	}
}
