// Package secondary defines the secondary ports (driven adapters) for
// the application. These are the interfaces through which the control
// core reaches the filesystem store and external collaborators.
package secondary

import (
	"context"
	"time"

	"github.com/example/loopctl/internal/core/event"
	"github.com/example/loopctl/internal/core/manifest"
	"github.com/example/loopctl/internal/core/stageresult"
)

// RunRef identifies one run of one business in the store.
type RunRef struct {
	Business string
	RunID    string
}

// EventLog defines the secondary port for the per-run append-only
// event log.
type EventLog interface {
	// Read returns all events in log order. A missing log reads empty.
	Read(ctx context.Context, ref RunRef) ([]event.Event, error)

	// Append adds one event to the end of the log.
	Append(ctx context.Context, ref RunRef, e event.Event) error
}

// StageResultStore defines the secondary port for stage-result records
// and the artifact files they point at.
type StageResultStore interface {
	// Discover finds every stage-result record under the run. Records
	// that fail to parse are returned by stage id in malformed.
	Discover(ctx context.Context, ref RunRef) (results map[string]*stageresult.StageResult, malformed []string, err error)

	// Read returns one stage's result, or nil when absent.
	Read(ctx context.Context, ref RunRef, stage string) (*stageresult.StageResult, error)

	// Write persists one stage's result atomically.
	Write(ctx context.Context, ref RunRef, result *stageresult.StageResult) error

	// ReadArtifact reads an artifact file by its run-relative path, as
	// recorded in a stage-result pointer.
	ReadArtifact(ctx context.Context, ref RunRef, relPath string) ([]byte, error)

	// WriteArtifact writes an artifact file atomically under the run.
	WriteArtifact(ctx context.Context, ref RunRef, relPath string, data []byte) error
}

// ManifestStore defines the secondary port for the run manifest.
type ManifestStore interface {
	// Read returns the manifest, or nil when none exists yet.
	Read(ctx context.Context, ref RunRef) (*manifest.Manifest, error)

	// Write persists the manifest atomically.
	Write(ctx context.Context, ref RunRef, m *manifest.Manifest) error
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }
