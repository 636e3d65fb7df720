package filesystem

import (
	"context"
	"os"

	"github.com/example/loopctl/internal/core/manifest"
	"github.com/example/loopctl/internal/ports/secondary"
)

// ManifestStore implements secondary.ManifestStore over
// baseline.manifest.json files.
type ManifestStore struct {
	paths Paths
}

// NewManifestStore creates a manifest store rooted at baseDir.
func NewManifestStore(baseDir string) *ManifestStore {
	return &ManifestStore{paths: Paths{BaseDir: baseDir}}
}

// Read returns the run's manifest, or nil when none exists yet.
func (s *ManifestStore) Read(ctx context.Context, ref secondary.RunRef) (*manifest.Manifest, error) {
	var m manifest.Manifest
	err := readJSON(s.paths.ManifestPath(ref), &m)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Write persists the manifest atomically.
func (s *ManifestStore) Write(ctx context.Context, ref secondary.RunRef, m *manifest.Manifest) error {
	return writeJSONAtomic(s.paths.ManifestPath(ref), m)
}

var _ secondary.ManifestStore = (*ManifestStore)(nil)
