package filesystem

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rs/zerolog"

	"github.com/example/loopctl/internal/core/event"
	"github.com/example/loopctl/internal/core/funnel"
	"github.com/example/loopctl/internal/ports/secondary"
)

// Artifact keys the extractor resolves through stage-result pointers.
const (
	forecastArtifactKey = "forecast"
	readoutArtifactKey  = "readout"
)

// forecastDoc is the S3 forecast artifact: per-metric targets.
type forecastDoc struct {
	Targets map[string]float64 `json:"targets"`
}

// readoutDoc is the S10 readout artifact: per-metric actuals plus
// targets for the derived outcome metrics.
type readoutDoc struct {
	Actuals map[string]float64 `json:"actuals"`
	Targets map[string]float64 `json:"targets"`
}

// MetricsExtractor implements secondary.MetricsExtractor. It reads
// artifacts only through stage-result pointers, never by guessing
// filenames, and degrades per source: a missing or malformed forecast
// costs its targets, not the whole extraction.
type MetricsExtractor struct {
	paths   Paths
	results secondary.StageResultStore
	events  secondary.EventLog
	logger  zerolog.Logger
}

// NewMetricsExtractor creates a metrics extractor rooted at baseDir.
func NewMetricsExtractor(baseDir string, results secondary.StageResultStore, events secondary.EventLog, logger zerolog.Logger) *MetricsExtractor {
	return &MetricsExtractor{
		paths:   Paths{BaseDir: baseDir},
		results: results,
		events:  events,
		logger:  logger,
	}
}

// Extract builds the canonical funnel metrics input for one run.
func (x *MetricsExtractor) Extract(ctx context.Context, ref secondary.RunRef) (*funnel.MetricsInput, error) {
	input := &funnel.MetricsInput{
		DiagnosisSchemaVersion: funnel.DiagnosisSchemaVersion,
		ConstraintKeyVersion:   funnel.ConstraintKeyVersion,
		MetricCatalogVersion:   funnel.MetricCatalogVersion,
		FunnelMetrics:          make(map[string]funnel.Metric),
		BlockedStages:          []funnel.BlockedStage{},
		DataQuality: funnel.DataQuality{
			MissingTargets:  []string{},
			MissingActuals:  []string{},
			ExcludedMetrics: []string{},
		},
	}

	forecast, forecastPath := x.readForecast(ctx, ref)
	readout, readoutPath := x.readReadout(ctx, ref)
	input.Sources.S3Forecast = forecastPath
	input.Sources.S10Readout = readoutPath

	for _, name := range funnel.MetricOrder {
		entry := funnel.Catalog[name]
		metric := funnel.Metric{
			Stage:       entry.Stage,
			Direction:   entry.Direction,
			MetricClass: entry.MetricClass,
		}

		metric.Target = lookupValue(forecast, name)
		if metric.Target == nil && readout != nil {
			metric.Target = lookupValue(readout.Targets, name)
		}
		if readout != nil {
			metric.Actual = lookupValue(readout.Actuals, name)
		}

		if metric.Target != nil && metric.Actual != nil && *metric.Target != 0 {
			delta := (*metric.Actual - *metric.Target) / *metric.Target * 100
			metric.DeltaPct = &delta
		}
		metric.Miss = funnel.ComputeMiss(metric.Target, metric.Actual, metric.Direction)

		if metric.Target == nil {
			input.DataQuality.MissingTargets = append(input.DataQuality.MissingTargets, name)
		}
		if metric.Actual == nil {
			input.DataQuality.MissingActuals = append(input.DataQuality.MissingActuals, name)
		}
		if metric.Miss == nil {
			input.DataQuality.ExcludedMetrics = append(input.DataQuality.ExcludedMetrics, name)
		}

		input.FunnelMetrics[name] = metric
	}

	blocked, eventsPath, err := x.readBlockedStages(ctx, ref)
	if err != nil {
		return nil, err
	}
	input.BlockedStages = blocked
	input.Sources.Events = eventsPath

	return input, nil
}

// readForecast resolves the S3 forecast through its stage-result
// pointer. Any failure returns nil targets and a nil source.
func (x *MetricsExtractor) readForecast(ctx context.Context, ref secondary.RunRef) (map[string]float64, *string) {
	data, path := x.readArtifact(ctx, ref, "S3", forecastArtifactKey)
	if data == nil {
		return nil, nil
	}
	var doc forecastDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		x.logger.Warn().Str("stage", "S3").Err(err).Msg("malformed forecast artifact; targets unavailable")
		return nil, nil
	}
	return doc.Targets, path
}

// readReadout resolves the S10 readout through its stage-result
// pointer. Any failure returns a nil doc and a nil source.
func (x *MetricsExtractor) readReadout(ctx context.Context, ref secondary.RunRef) (*readoutDoc, *string) {
	data, path := x.readArtifact(ctx, ref, "S10", readoutArtifactKey)
	if data == nil {
		return nil, nil
	}
	var doc readoutDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		x.logger.Warn().Str("stage", "S10").Err(err).Msg("malformed readout artifact; actuals unavailable")
		return nil, nil
	}
	return &doc, path
}

func (x *MetricsExtractor) readArtifact(ctx context.Context, ref secondary.RunRef, stage, key string) ([]byte, *string) {
	result, err := x.results.Read(ctx, ref, stage)
	if err != nil || result == nil {
		return nil, nil
	}
	relPath, ok := result.Artifacts[key]
	if !ok || relPath == "" {
		return nil, nil
	}
	data, err := x.results.ReadArtifact(ctx, ref, relPath)
	if err != nil {
		x.logger.Warn().Str("stage", stage).Str("artifact", key).Err(err).Msg("artifact pointer unresolvable")
		return nil, nil
	}
	return data, &relPath
}

// readBlockedStages folds stage_blocked events into normalized blocked
// stage records, in event order.
func (x *MetricsExtractor) readBlockedStages(ctx context.Context, ref secondary.RunRef) ([]funnel.BlockedStage, *string, error) {
	events, err := x.events.Read(ctx, ref)
	if err != nil {
		return nil, nil, err
	}

	blocked := []funnel.BlockedStage{}
	for _, e := range events {
		if e.Event != event.KindStageBlocked {
			continue
		}
		reason := ""
		if e.BlockingReason != nil {
			reason = *e.BlockingReason
		}
		blocked = append(blocked, funnel.BlockedStage{
			Stage:          e.Stage,
			ReasonCode:     funnel.NormalizeReasonCode(reason),
			BlockingReason: reason,
			Timestamp:      e.Timestamp,
		})
	}

	eventsPath := x.paths.EventsPath(ref)
	if _, err := os.Stat(eventsPath); err != nil {
		return blocked, nil, nil
	}
	return blocked, &eventsPath, nil
}

func lookupValue(values map[string]float64, name string) *float64 {
	if values == nil {
		return nil
	}
	v, ok := values[name]
	if !ok {
		return nil
	}
	return &v
}

var _ secondary.MetricsExtractor = (*MetricsExtractor)(nil)
