package app

import (
	"context"
	"fmt"
	"time"

	"github.com/example/loopctl/internal/core/loopspec"
	"github.com/example/loopctl/internal/core/manifest"
	"github.com/example/loopctl/internal/ports/primary"
	"github.com/example/loopctl/internal/ports/secondary"
)

// ManifestServiceImpl implements the ManifestService interface. It is
// the sole writer of the manifest file; every update re-derives the
// whole manifest from currently discoverable stage results.
type ManifestServiceImpl struct {
	results   secondary.StageResultStore
	manifests secondary.ManifestStore
	spec      loopspec.Spec
	clock     secondary.Clock
}

// NewManifestService creates a new ManifestService with injected dependencies.
func NewManifestService(results secondary.StageResultStore, manifests secondary.ManifestStore, spec loopspec.Spec, clock secondary.Clock) *ManifestServiceImpl {
	return &ManifestServiceImpl{results: results, manifests: manifests, spec: spec, clock: clock}
}

// Update re-derives the manifest. On any required-stage defect nothing
// is written and the response carries the structured rejection.
func (s *ManifestServiceImpl) Update(ctx context.Context, req primary.UpdateManifestRequest) (*primary.UpdateManifestResponse, error) {
	ref := secondary.RunRef{Business: req.Business, RunID: req.RunID}

	results, malformed, err := s.results.Discover(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to discover stage results: %w", err)
	}

	prior, err := s.manifests.Read(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to read prior manifest: %w", err)
	}

	required := req.RequiredStages
	if len(required) == 0 {
		for _, b := range s.spec.Barriers {
			required = append(required, b.Stage)
		}
	}

	m, rejection := manifest.Build(results, malformed, prior, manifest.Options{
		Business:        req.Business,
		RunID:           req.RunID,
		LoopSpecVersion: s.spec.Version,
		RequiredStages:  required,
		Now:             s.clock.Now().UTC().Format(time.RFC3339),
	})
	if rejection != nil {
		return &primary.UpdateManifestResponse{Rejection: rejection}, nil
	}

	if err := s.manifests.Write(ctx, ref, m); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}
	return &primary.UpdateManifestResponse{Manifest: m}, nil
}
