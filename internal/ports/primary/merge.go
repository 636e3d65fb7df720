package primary

import (
	"context"

	"github.com/example/loopctl/internal/core/stageresult"
)

// MergeService defines the primary port for barrier merges: joins that
// require all of a fixed set of upstream stages to be done before a
// downstream artifact is composed.
type MergeService interface {
	// Merge runs the barrier for a join stage, composing the downstream
	// artifact and writing the stage's own result record.
	Merge(ctx context.Context, req MergeRequest) (*MergeResult, error)

	// Publish runs the external-persistence variant: gated on a single
	// upstream stage, it upserts the composed content to the card store
	// before writing its own result.
	Publish(ctx context.Context, req PublishRequest) (*MergeResult, error)
}

// MergeRequest identifies the run and the join stage to merge.
type MergeRequest struct {
	Business string
	RunID    string
	Stage    string
}

// PublishRequest identifies the run, the stage recording the publish
// outcome, the gating upstream stage, and the external card the content
// is published under.
type PublishRequest struct {
	Business      string
	RunID         string
	Stage         string
	UpstreamStage string
	ArtifactKey   string
	CardID        string
}

// MergeResult reports the barrier outcome. Status mirrors the written
// stage-result; BlockingReasons carries every accumulated reason when
// the merge is blocked.
type MergeResult struct {
	Stage           string
	Status          stageresult.Status
	OutputPath      string
	BlockingReasons []string
	Error           string
}
