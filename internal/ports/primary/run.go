// Package primary defines the primary ports (driving adapters) for the
// application. These are the interfaces through which the outside world
// drives the control core.
package primary

import (
	"context"

	"github.com/example/loopctl/internal/core/event"
	"github.com/example/loopctl/internal/core/recovery"
	"github.com/example/loopctl/internal/core/state"
)

// RunService defines the primary port for run-state operations.
type RunService interface {
	// DeriveState replays the run's event log into a derived state.
	DeriveState(ctx context.Context, req RunRequest) (*state.DerivedState, error)

	// ValidateEvents checks the run's event log and reports every defect.
	ValidateEvents(ctx context.Context, req RunRequest) (*event.ValidationResult, error)

	// Recover decides and, unless dry-run, performs the recovery action
	// for a stage by appending the appropriate event.
	Recover(ctx context.Context, req RecoverRequest) (*recovery.Decision, error)

	// Abort appends a run_aborted event carrying the operator identity.
	// Partial artifacts are left in place for inspection.
	Abort(ctx context.Context, req AbortRequest) error
}

// RunRequest identifies one run of one business.
type RunRequest struct {
	Business string
	RunID    string
}

// RecoverRequest asks for recovery of one stage.
type RecoverRequest struct {
	Business    string
	RunID       string
	TargetStage string
	DryRun      bool
}

// AbortRequest is the explicit operator abort.
type AbortRequest struct {
	Business string
	RunID    string
	Operator string
	Reason   string
}
