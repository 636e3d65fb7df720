package primary

import (
	"context"

	"github.com/example/loopctl/internal/core/bottleneck"
	"github.com/example/loopctl/internal/core/replan"
)

// DiagnosisService defines the primary port for the per-run diagnosis
// pipeline: snapshot, history append, persistence check, replan trigger.
type DiagnosisService interface {
	// Run executes the pipeline. Only snapshot generation failure aborts;
	// every later step failure becomes a warning on the result.
	Run(ctx context.Context, req DiagnosisRequest) (*DiagnosisResult, error)

	// Snapshot generates and persists the diagnosis snapshot alone.
	Snapshot(ctx context.Context, req DiagnosisRequest) (*bottleneck.Snapshot, error)
}

// DiagnosisRequest identifies the run to diagnose.
type DiagnosisRequest struct {
	Business string
	RunID    string
}

// PersistenceCheck is the ledger rolling-window verdict.
type PersistenceCheck struct {
	Persistent    bool
	ConstraintKey *string
}

// DiagnosisResult is the pipeline outcome.
type DiagnosisResult struct {
	Snapshot         *bottleneck.Snapshot
	HistoryAppended  bool
	PersistenceCheck *PersistenceCheck
	ReplanTrigger    *replan.Trigger
	ArtifactPointer  string
	Warnings         []string
}

// HistoryService defines the primary port for ledger queries served
// through the rebuildable index.
type HistoryService interface {
	// Recent returns the last n ledger entries, oldest first.
	Recent(ctx context.Context, business string, n int) ([]bottleneck.Entry, error)

	// Reindex rebuilds the index for a business from its ledger.
	Reindex(ctx context.Context, business string) (int, error)

	// Query serves filtered entries from the index.
	Query(ctx context.Context, filters HistoryFilters) ([]bottleneck.Entry, error)
}

// HistoryFilters narrows an index query.
type HistoryFilters struct {
	Business string
	Severity string
	Limit    int
}

// TriggerService defines the primary port for replan trigger access.
type TriggerService interface {
	// Get returns the business's trigger, or nil when none exists.
	Get(ctx context.Context, business string) (*replan.Trigger, error)

	// Acknowledge flips an open trigger to acknowledged.
	Acknowledge(ctx context.Context, business string) (*replan.Trigger, error)
}
