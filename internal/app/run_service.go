// Package app contains the application services that drive the control
// core through the secondary ports. Services hold no run state of their
// own; everything is re-derived from the store on each call.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/example/loopctl/internal/core/event"
	"github.com/example/loopctl/internal/core/loopspec"
	"github.com/example/loopctl/internal/core/recovery"
	"github.com/example/loopctl/internal/core/state"
	"github.com/example/loopctl/internal/ports/primary"
	"github.com/example/loopctl/internal/ports/secondary"
)

// RunServiceImpl implements the RunService interface.
type RunServiceImpl struct {
	events secondary.EventLog
	spec   loopspec.Spec
	clock  secondary.Clock
}

// NewRunService creates a new RunService with injected dependencies.
func NewRunService(events secondary.EventLog, spec loopspec.Spec, clock secondary.Clock) *RunServiceImpl {
	return &RunServiceImpl{events: events, spec: spec, clock: clock}
}

// DeriveState replays the run's event log into a derived state.
func (s *RunServiceImpl) DeriveState(ctx context.Context, req primary.RunRequest) (*state.DerivedState, error) {
	events, err := s.events.Read(ctx, secondary.RunRef{Business: req.Business, RunID: req.RunID})
	if err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}
	return state.Derive(events, s.spec.Stages, state.Options{
		Business:        req.Business,
		RunID:           req.RunID,
		LoopSpecVersion: s.spec.Version,
	}), nil
}

// ValidateEvents checks the run's event log and reports every defect.
func (s *RunServiceImpl) ValidateEvents(ctx context.Context, req primary.RunRequest) (*event.ValidationResult, error) {
	events, err := s.events.Read(ctx, secondary.RunRef{Business: req.Business, RunID: req.RunID})
	if err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}
	result := event.Validate(events)
	return &result, nil
}

// Recover decides the recovery action for a stage and, unless dry-run,
// performs it by appending the appropriate event. Resume and restart are
// the same append: a fresh stage_started clears any blocking reason.
func (s *RunServiceImpl) Recover(ctx context.Context, req primary.RecoverRequest) (*recovery.Decision, error) {
	derived, err := s.DeriveState(ctx, primary.RunRequest{Business: req.Business, RunID: req.RunID})
	if err != nil {
		return nil, err
	}

	decision := recovery.Decide(derived, req.TargetStage)
	if req.DryRun || decision.Action == recovery.ActionNoAction {
		return &decision, nil
	}

	e := event.Event{
		SchemaVersion:   event.SchemaVersion,
		Event:           event.KindStageStarted,
		RunID:           req.RunID,
		Stage:           req.TargetStage,
		Timestamp:       s.clock.Now().UTC().Format(time.RFC3339),
		LoopSpecVersion: s.spec.Version,
	}
	ref := secondary.RunRef{Business: req.Business, RunID: req.RunID}
	if err := s.events.Append(ctx, ref, e); err != nil {
		return nil, fmt.Errorf("failed to append recovery event: %w", err)
	}
	return &decision, nil
}

// Abort appends a run_aborted event carrying the operator identity.
// Partial artifacts are left in place for inspection.
func (s *RunServiceImpl) Abort(ctx context.Context, req primary.AbortRequest) error {
	if req.Operator == "" {
		return fmt.Errorf("abort requires an operator identity")
	}

	reason := fmt.Sprintf("aborted by %s", req.Operator)
	if req.Reason != "" {
		reason = fmt.Sprintf("aborted by %s: %s", req.Operator, req.Reason)
	}

	e := event.Event{
		SchemaVersion:   event.SchemaVersion,
		Event:           event.KindRunAborted,
		RunID:           req.RunID,
		Stage:           event.WildcardStage,
		Timestamp:       s.clock.Now().UTC().Format(time.RFC3339),
		LoopSpecVersion: s.spec.Version,
		BlockingReason:  &reason,
	}
	ref := secondary.RunRef{Business: req.Business, RunID: req.RunID}
	if err := s.events.Append(ctx, ref, e); err != nil {
		return fmt.Errorf("failed to append abort event: %w", err)
	}
	return nil
}
