package filesystem

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/example/loopctl/internal/core/event"
	"github.com/example/loopctl/internal/core/funnel"
	"github.com/example/loopctl/internal/core/stageresult"
	"github.com/example/loopctl/internal/ports/secondary"
)

func newExtractorFixture(t *testing.T) (*MetricsExtractor, *StageResultStore, *EventLog, secondary.RunRef) {
	t.Helper()
	base := t.TempDir()
	results := NewStageResultStore(base)
	events := NewEventLog(base)
	x := NewMetricsExtractor(base, results, events, zerolog.Nop())
	return x, results, events, testRef()
}

func writeForecast(t *testing.T, store *StageResultStore, ref secondary.RunRef, body string) {
	t.Helper()
	ctx := context.Background()
	result := &stageresult.StageResult{
		SchemaVersion:   1,
		RunID:           ref.RunID,
		Stage:           "S3",
		LoopSpecVersion: "1.0.0",
		Status:          stageresult.StatusDone,
		Timestamp:       "2026-02-13T12:10:00Z",
		ProducedKeys:    []string{"forecast"},
		Artifacts:       map[string]string{"forecast": "stages/S3/forecast.json"},
	}
	if err := store.Write(ctx, ref, result); err != nil {
		t.Fatal(err)
	}
	if err := store.WriteArtifact(ctx, ref, "stages/S3/forecast.json", []byte(body)); err != nil {
		t.Fatal(err)
	}
}

func writeReadout(t *testing.T, store *StageResultStore, ref secondary.RunRef, body string) {
	t.Helper()
	ctx := context.Background()
	result := &stageresult.StageResult{
		SchemaVersion:   1,
		RunID:           ref.RunID,
		Stage:           "S10",
		LoopSpecVersion: "1.0.0",
		Status:          stageresult.StatusDone,
		Timestamp:       "2026-02-13T14:00:00Z",
		ProducedKeys:    []string{"readout"},
		Artifacts:       map[string]string{"readout": "stages/S10/readout.json"},
	}
	if err := store.Write(ctx, ref, result); err != nil {
		t.Fatal(err)
	}
	if err := store.WriteArtifact(ctx, ref, "stages/S10/readout.json", []byte(body)); err != nil {
		t.Fatal(err)
	}
}

func approx(got *float64, want float64) bool {
	return got != nil && math.Abs(*got-want) < 0.005
}

func TestExtractCompleteRun(t *testing.T) {
	x, results, _, ref := newExtractorFixture(t)
	ctx := context.Background()

	writeForecast(t, results, ref, `{"targets":{"traffic":10000,"cvr":0.05,"aov":150,"cac":50}}`)
	writeReadout(t, results, ref, `{
		"actuals":{"traffic":8500,"cvr":0.025,"aov":145,"cac":45,"orders":213,"revenue":30885},
		"targets":{"orders":500,"revenue":75000}
	}`)

	input, err := x.Extract(ctx, ref)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if input.DiagnosisSchemaVersion != "v1" || input.MetricCatalogVersion != "v1" {
		t.Errorf("unexpected versions: %+v", input)
	}
	if len(input.FunnelMetrics) != 6 {
		t.Fatalf("expected 6 metrics, got %d", len(input.FunnelMetrics))
	}

	traffic := input.FunnelMetrics["traffic"]
	if !approx(traffic.Miss, 0.15) {
		t.Errorf("traffic miss = %v, want 0.15", traffic.Miss)
	}
	if !approx(traffic.DeltaPct, -15.0) {
		t.Errorf("traffic delta_pct = %v, want -15.0", traffic.DeltaPct)
	}
	if traffic.Stage != "S6B" || traffic.MetricClass != funnel.ClassPrimitive {
		t.Errorf("unexpected traffic catalog fields: %+v", traffic)
	}

	cac := input.FunnelMetrics["cac"]
	if !approx(cac.Miss, 0.0) {
		t.Errorf("cac below target should have zero miss, got %v", cac.Miss)
	}

	orders := input.FunnelMetrics["orders"]
	if orders.MetricClass != funnel.ClassDerived || orders.Target == nil || *orders.Target != 500 {
		t.Errorf("derived orders target not taken from readout: %+v", orders)
	}

	if len(input.DataQuality.MissingTargets) != 0 || len(input.DataQuality.MissingActuals) != 0 || len(input.DataQuality.ExcludedMetrics) != 0 {
		t.Errorf("expected clean data quality, got %+v", input.DataQuality)
	}
	if input.Sources.S3Forecast == nil || input.Sources.S10Readout == nil {
		t.Errorf("expected both artifact sources, got %+v", input.Sources)
	}
}

func TestExtractMissingReadout(t *testing.T) {
	x, results, _, ref := newExtractorFixture(t)
	ctx := context.Background()

	writeForecast(t, results, ref, `{"targets":{"traffic":10000,"cvr":0.05,"aov":150,"cac":50}}`)

	input, err := x.Extract(ctx, ref)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if input.FunnelMetrics["traffic"].Target == nil {
		t.Error("forecast targets should survive a missing readout")
	}
	for _, name := range funnel.MetricOrder {
		if input.FunnelMetrics[name].Actual != nil {
			t.Errorf("%s actual should be nil without a readout", name)
		}
		if input.FunnelMetrics[name].Miss != nil {
			t.Errorf("%s miss should be nil without actuals", name)
		}
	}
	if len(input.DataQuality.MissingActuals) != 6 {
		t.Errorf("expected all actuals missing, got %v", input.DataQuality.MissingActuals)
	}
	if input.Sources.S10Readout != nil {
		t.Errorf("readout source should be nil, got %v", *input.Sources.S10Readout)
	}
}

func TestExtractMalformedForecast(t *testing.T) {
	x, results, _, ref := newExtractorFixture(t)
	ctx := context.Background()

	writeForecast(t, results, ref, `{ invalid json }`)

	input, err := x.Extract(ctx, ref)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if input.FunnelMetrics["traffic"].Target != nil {
		t.Error("malformed forecast must not yield targets")
	}
	if len(input.DataQuality.MissingTargets) != 6 {
		t.Errorf("expected all targets missing, got %v", input.DataQuality.MissingTargets)
	}
	if input.Sources.S3Forecast != nil {
		t.Errorf("forecast source should be nil, got %v", *input.Sources.S3Forecast)
	}
}

func TestExtractBlockedStages(t *testing.T) {
	x, _, events, ref := newExtractorFixture(t)
	ctx := context.Background()

	depsReason := "S3 stage-result.json not found (upstream dependencies)"
	dataReason := "Missing customer interview data"
	for _, e := range []event.Event{
		{SchemaVersion: 1, Event: event.KindStageBlocked, RunID: ref.RunID, Stage: "S4", Timestamp: "2026-02-13T12:05:00Z", LoopSpecVersion: "1.0.0", BlockingReason: &depsReason},
		{SchemaVersion: 1, Event: event.KindStageBlocked, RunID: ref.RunID, Stage: "S7", Timestamp: "2026-02-13T12:10:00Z", LoopSpecVersion: "1.0.0", BlockingReason: &dataReason},
	} {
		if err := events.Append(ctx, ref, e); err != nil {
			t.Fatal(err)
		}
	}

	input, err := x.Extract(ctx, ref)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if len(input.BlockedStages) != 2 {
		t.Fatalf("expected 2 blocked stages, got %d", len(input.BlockedStages))
	}
	if input.BlockedStages[0].Stage != "S4" || input.BlockedStages[0].ReasonCode != funnel.ReasonDepsBlocked {
		t.Errorf("unexpected first blocked stage: %+v", input.BlockedStages[0])
	}
	if input.BlockedStages[1].Stage != "S7" || input.BlockedStages[1].ReasonCode != funnel.ReasonDataMissing {
		t.Errorf("unexpected second blocked stage: %+v", input.BlockedStages[1])
	}
	if input.Sources.Events == nil {
		t.Error("events source should be recorded when the log exists")
	}
}

func TestExtractPointerBasedReads(t *testing.T) {
	x, results, _, ref := newExtractorFixture(t)
	ctx := context.Background()

	// Stage result points at forecast-final.json; a stale forecast.json
	// also exists and must be ignored.
	result := &stageresult.StageResult{
		SchemaVersion:   1,
		RunID:           ref.RunID,
		Stage:           "S3",
		LoopSpecVersion: "1.0.0",
		Status:          stageresult.StatusDone,
		Timestamp:       "2026-02-13T12:10:00Z",
		ProducedKeys:    []string{"forecast"},
		Artifacts:       map[string]string{"forecast": "stages/S3/forecast-final.json"},
	}
	if err := results.Write(ctx, ref, result); err != nil {
		t.Fatal(err)
	}
	if err := results.WriteArtifact(ctx, ref, "stages/S3/forecast-final.json", []byte(`{"targets":{"traffic":10000}}`)); err != nil {
		t.Fatal(err)
	}
	if err := results.WriteArtifact(ctx, ref, "stages/S3/forecast.json", []byte(`{"targets":{"traffic":99999}}`)); err != nil {
		t.Fatal(err)
	}

	input, err := x.Extract(ctx, ref)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	traffic := input.FunnelMetrics["traffic"]
	if traffic.Target == nil || *traffic.Target != 10000 {
		t.Errorf("extractor must follow the stage-result pointer, got target %v", traffic.Target)
	}
}
