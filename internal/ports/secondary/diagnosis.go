package secondary

import (
	"context"

	"github.com/example/loopctl/internal/core/bottleneck"
	"github.com/example/loopctl/internal/core/funnel"
	"github.com/example/loopctl/internal/core/replan"
)

// HistoryLedger defines the secondary port for the per-business
// append-only bottleneck history.
type HistoryLedger interface {
	// Read returns all entries in ledger order. Missing ledgers read
	// empty.
	Read(ctx context.Context, business string) ([]bottleneck.Entry, error)

	// Append adds one entry unless an entry with the same run id already
	// exists; appended reports whether a write happened.
	Append(ctx context.Context, business string, entry bottleneck.Entry) (appended bool, err error)
}

// TriggerStore defines the secondary port for the per-business replan
// trigger record.
type TriggerStore interface {
	// Read returns the trigger, or nil when none exists.
	Read(ctx context.Context, business string) (*replan.Trigger, error)

	// Write persists the trigger atomically.
	Write(ctx context.Context, business string, trigger *replan.Trigger) error
}

// SnapshotStore defines the secondary port for per-run diagnosis
// snapshots.
type SnapshotStore interface {
	// Read returns the run's snapshot, or nil when none exists.
	Read(ctx context.Context, ref RunRef) (*bottleneck.Snapshot, error)

	// Write persists the snapshot atomically.
	Write(ctx context.Context, ref RunRef, snapshot *bottleneck.Snapshot) error

	// ListRunIDs returns every sibling run id of the business, unsorted.
	ListRunIDs(ctx context.Context, business string) ([]string, error)
}

// MetricsExtractor defines the secondary port producing the canonical
// funnel metrics input. The detector never reads raw stage artifacts;
// this adapter does, through stage-result pointers.
type MetricsExtractor interface {
	Extract(ctx context.Context, ref RunRef) (*funnel.MetricsInput, error)
}

// HistoryIndex defines the secondary port for the rebuildable query
// index over ledger entries.
type HistoryIndex interface {
	// Replace atomically swaps a business's indexed entries.
	Replace(ctx context.Context, business string, entries []bottleneck.Entry) error

	// Query returns indexed entries for a business, oldest first,
	// optionally filtered by severity and capped at limit.
	Query(ctx context.Context, business, severity string, limit int) ([]bottleneck.Entry, error)
}
