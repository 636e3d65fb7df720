package primary

import (
	"context"

	"github.com/example/loopctl/internal/core/manifest"
)

// ManifestService defines the primary port for manifest derivation.
// The implementation is the sole writer of the manifest file.
type ManifestService interface {
	// Update re-derives the manifest from all discoverable stage
	// results. On any required-stage defect the manifest is not written
	// and the response carries the structured rejection.
	Update(ctx context.Context, req UpdateManifestRequest) (*UpdateManifestResponse, error)
}

// UpdateManifestRequest identifies the run and the stages that must be
// present and valid. An empty RequiredStages falls back to the stages
// with barrier definitions in the loop spec.
type UpdateManifestRequest struct {
	Business       string
	RunID          string
	RequiredStages []string
}

// UpdateManifestResponse carries either the written manifest or the
// rejection, never both.
type UpdateManifestResponse struct {
	Manifest  *manifest.Manifest
	Rejection *manifest.Rejection
}
