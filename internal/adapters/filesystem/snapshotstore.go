package filesystem

import (
	"context"
	"fmt"
	"os"

	"github.com/example/loopctl/internal/core/bottleneck"
	"github.com/example/loopctl/internal/ports/secondary"
)

// SnapshotStore implements secondary.SnapshotStore over
// bottleneck-diagnosis.json files.
type SnapshotStore struct {
	paths Paths
}

// NewSnapshotStore creates a snapshot store rooted at baseDir.
func NewSnapshotStore(baseDir string) *SnapshotStore {
	return &SnapshotStore{paths: Paths{BaseDir: baseDir}}
}

// Read returns the run's snapshot, or nil when none exists.
func (s *SnapshotStore) Read(ctx context.Context, ref secondary.RunRef) (*bottleneck.Snapshot, error) {
	var snapshot bottleneck.Snapshot
	err := readJSON(s.paths.SnapshotPath(ref), &snapshot)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Write persists the snapshot atomically.
func (s *SnapshotStore) Write(ctx context.Context, ref secondary.RunRef, snapshot *bottleneck.Snapshot) error {
	return writeJSONAtomic(s.paths.SnapshotPath(ref), snapshot)
}

// ListRunIDs returns every run id of the business, unsorted. A missing
// runs directory lists empty.
func (s *SnapshotStore) ListRunIDs(ctx context.Context, business string) ([]string, error) {
	dirents, err := os.ReadDir(s.paths.RunsDir(business))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var runIDs []string
	for _, d := range dirents {
		if d.IsDir() {
			runIDs = append(runIDs, d.Name())
		}
	}
	return runIDs, nil
}

var _ secondary.SnapshotStore = (*SnapshotStore)(nil)
