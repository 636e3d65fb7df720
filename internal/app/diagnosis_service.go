package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/loopctl/internal/core/bottleneck"
	"github.com/example/loopctl/internal/core/loopspec"
	"github.com/example/loopctl/internal/core/replan"
	"github.com/example/loopctl/internal/core/stageresult"
	"github.com/example/loopctl/internal/ports/primary"
	"github.com/example/loopctl/internal/ports/secondary"
)

// SnapshotArtifactKey and SnapshotArtifactPointer are the upserted
// pointer on the S10 stage result.
const (
	SnapshotArtifactKey     = "bottleneck_diagnosis"
	SnapshotArtifactPointer = "bottleneck-diagnosis.json"
	readoutStage            = "S10"
)

// DiagnosisServiceImpl implements the DiagnosisService interface.
type DiagnosisServiceImpl struct {
	extractor secondary.MetricsExtractor
	snapshots secondary.SnapshotStore
	ledger    secondary.HistoryLedger
	triggers  secondary.TriggerStore
	index     secondary.HistoryIndex
	results   secondary.StageResultStore
	spec      loopspec.Spec
	opts      replan.Options
	clock     secondary.Clock
	logger    zerolog.Logger
}

// NewDiagnosisService creates a new DiagnosisService with injected dependencies.
func NewDiagnosisService(
	extractor secondary.MetricsExtractor,
	snapshots secondary.SnapshotStore,
	ledger secondary.HistoryLedger,
	triggers secondary.TriggerStore,
	index secondary.HistoryIndex,
	results secondary.StageResultStore,
	spec loopspec.Spec,
	opts replan.Options,
	clock secondary.Clock,
	logger zerolog.Logger,
) *DiagnosisServiceImpl {
	return &DiagnosisServiceImpl{
		extractor: extractor,
		snapshots: snapshots,
		ledger:    ledger,
		triggers:  triggers,
		index:     index,
		results:   results,
		spec:      spec,
		opts:      opts.WithDefaults(),
		clock:     clock,
		logger:    logger,
	}
}

// Snapshot generates and persists the diagnosis snapshot for one run.
func (s *DiagnosisServiceImpl) Snapshot(ctx context.Context, req primary.DiagnosisRequest) (*bottleneck.Snapshot, error) {
	ref := secondary.RunRef{Business: req.Business, RunID: req.RunID}

	input, err := s.extractor.Extract(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to extract funnel metrics: %w", err)
	}

	diagnosis := bottleneck.Identify(*input, s.spec)

	prior, err := s.priorSnapshot(ctx, req.Business, req.RunID)
	if err != nil {
		return nil, err
	}

	snapshot := &bottleneck.Snapshot{
		DiagnosisSchemaVersion: input.DiagnosisSchemaVersion,
		ConstraintKeyVersion:   input.ConstraintKeyVersion,
		MetricCatalogVersion:   input.MetricCatalogVersion,
		RunID:                  req.RunID,
		Business:               req.Business,
		Timestamp:              s.clock.Now().UTC().Format(time.RFC3339),
		DiagnosisStatus:        diagnosis.DiagnosisStatus,
		DataQuality:            input.DataQuality,
		FunnelMetrics:          input.FunnelMetrics,
		IdentifiedConstraint:   diagnosis.IdentifiedConstraint,
		RankedConstraints:      diagnosis.RankedConstraints,
		ComparisonToPriorRun:   bottleneck.Compare(input.FunnelMetrics, diagnosis.IdentifiedConstraint, prior),
	}

	if err := s.snapshots.Write(ctx, ref, snapshot); err != nil {
		return nil, fmt.Errorf("failed to write diagnosis snapshot: %w", err)
	}
	return snapshot, nil
}

// Run executes the full pipeline. Only snapshot generation failure
// aborts; every later step converts its failure into a warning so a
// flaky ledger or trigger file never hides the diagnosis itself.
func (s *DiagnosisServiceImpl) Run(ctx context.Context, req primary.DiagnosisRequest) (*primary.DiagnosisResult, error) {
	snapshot, err := s.Snapshot(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("diagnosis snapshot generation failed: %w", err)
	}

	result := &primary.DiagnosisResult{Snapshot: snapshot}

	entry := bottleneck.EncodeEntry(snapshot)
	appended, err := s.ledger.Append(ctx, req.Business, entry)
	if err != nil {
		s.warn(result, fmt.Sprintf("History append failed: %v", err))
	} else {
		result.HistoryAppended = appended
	}

	entries, err := s.ledger.Read(ctx, req.Business)
	if err != nil {
		s.warn(result, fmt.Sprintf("History read failed: %v", err))
		return result, nil
	}

	if s.index != nil {
		if err := s.index.Replace(ctx, req.Business, entries); err != nil {
			s.warn(result, fmt.Sprintf("History index refresh failed: %v", err))
		}
	}

	persistent, key := bottleneck.CheckPersistence(entries, s.opts.PersistenceThreshold)
	result.PersistenceCheck = &primary.PersistenceCheck{Persistent: persistent, ConstraintKey: key}

	windowRunIDs := make([]string, 0, s.opts.PersistenceThreshold)
	for _, e := range bottleneck.LastN(entries, s.opts.PersistenceThreshold) {
		windowRunIDs = append(windowRunIDs, e.RunID)
	}

	if err := s.evaluateTrigger(ctx, req.Business, persistent, key, windowRunIDs, snapshot, result); err != nil {
		s.warn(result, fmt.Sprintf("Replan trigger evaluation failed: %v", err))
	}

	if err := s.upsertPointer(ctx, req); err != nil {
		s.warn(result, fmt.Sprintf("Artifact pointer upsert failed: %v", err))
	} else {
		result.ArtifactPointer = SnapshotArtifactPointer
	}

	return result, nil
}

func (s *DiagnosisServiceImpl) evaluateTrigger(ctx context.Context, business string, persistent bool, key *string, windowRunIDs []string, snapshot *bottleneck.Snapshot, result *primary.DiagnosisResult) error {
	existing, err := s.triggers.Read(ctx, business)
	if err != nil {
		return err
	}

	now := s.clock.Now().UTC().Format(time.RFC3339)
	trigger, changed := replan.Evaluate(existing, persistent, key, windowRunIDs, snapshot.IdentifiedConstraint, s.opts, now)
	if changed {
		if err := s.triggers.Write(ctx, business, trigger); err != nil {
			return err
		}
	}
	result.ReplanTrigger = trigger
	return nil
}

// upsertPointer records the snapshot location on the S10 stage result.
// Existing fields are preserved; a minimal record is created when the
// readout stage never wrote one.
func (s *DiagnosisServiceImpl) upsertPointer(ctx context.Context, req primary.DiagnosisRequest) error {
	ref := secondary.RunRef{Business: req.Business, RunID: req.RunID}

	result, err := s.results.Read(ctx, ref, readoutStage)
	if err != nil {
		return err
	}
	if result == nil {
		reason := "diagnosis ran before the readout stage completed"
		result = &stageresult.StageResult{
			SchemaVersion:   stageresult.SchemaVersion,
			RunID:           req.RunID,
			Stage:           readoutStage,
			LoopSpecVersion: s.spec.Version,
			Status:          stageresult.StatusBlocked,
			Timestamp:       s.clock.Now().UTC().Format(time.RFC3339),
			BlockingReason:  &reason,
		}
	}
	if result.Artifacts == nil {
		result.Artifacts = make(map[string]string)
	}
	result.Artifacts[SnapshotArtifactKey] = SnapshotArtifactPointer
	return s.results.Write(ctx, ref, result)
}

// priorSnapshot picks the comparison baseline: the lexically greatest
// sibling run id below the current one that has a snapshot. Runs
// without snapshots are skipped, never treated as "no prior".
func (s *DiagnosisServiceImpl) priorSnapshot(ctx context.Context, business, runID string) (*bottleneck.Snapshot, error) {
	runIDs, err := s.snapshots.ListRunIDs(ctx, business)
	if err != nil {
		return nil, fmt.Errorf("failed to list sibling runs: %w", err)
	}

	var candidates []string
	for _, id := range runIDs {
		if id < runID {
			candidates = append(candidates, id)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(candidates)))

	for _, id := range candidates {
		snapshot, err := s.snapshots.Read(ctx, secondary.RunRef{Business: business, RunID: id})
		if err != nil {
			s.logger.Warn().Str("run_id", id).Err(err).Msg("skipping unreadable prior snapshot")
			continue
		}
		if snapshot != nil {
			return snapshot, nil
		}
	}
	return nil, nil
}

func (s *DiagnosisServiceImpl) warn(result *primary.DiagnosisResult, msg string) {
	s.logger.Warn().Msg(msg)
	result.Warnings = append(result.Warnings, msg)
}
