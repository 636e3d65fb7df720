package app

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/example/loopctl/internal/core/loopspec"
	"github.com/example/loopctl/internal/core/stageresult"
	"github.com/example/loopctl/internal/ports/primary"
	"github.com/example/loopctl/internal/ports/secondary"
)

// Placeholder written for optional inputs that did not complete.
const absentSectionBody = "(not produced this run)"

// MergeServiceImpl implements the MergeService interface.
type MergeServiceImpl struct {
	results secondary.StageResultStore
	cards   secondary.CardClient
	spec    loopspec.Spec
	clock   secondary.Clock
}

// NewMergeService creates a new MergeService with injected dependencies.
func NewMergeService(results secondary.StageResultStore, cards secondary.CardClient, spec loopspec.Spec, clock secondary.Clock) *MergeServiceImpl {
	return &MergeServiceImpl{results: results, cards: cards, spec: spec, clock: clock}
}

// Merge runs the barrier for a join stage. Any blocking reason
// short-circuits before the composed artifact is written; the merge
// never writes outside its own stage directory.
func (s *MergeServiceImpl) Merge(ctx context.Context, req primary.MergeRequest) (*primary.MergeResult, error) {
	barrier, ok := s.spec.BarrierFor(req.Stage)
	if !ok {
		return nil, fmt.Errorf("stage %s has no barrier definition", req.Stage)
	}

	ref := secondary.RunRef{Business: req.Business, RunID: req.RunID}
	inputs, blocking, err := s.collectInputs(ctx, ref, barrier)
	if err != nil {
		return nil, err
	}

	if len(blocking) > 0 {
		if err := s.writeBlocked(ctx, ref, req.Stage, blocking); err != nil {
			return nil, err
		}
		return &primary.MergeResult{
			Stage:           req.Stage,
			Status:          stageresult.StatusBlocked,
			BlockingReasons: blocking,
		}, nil
	}

	content, maxTimestamp := composeArtifact(req.RunID, barrier, inputs)
	outputPath := path.Join("stages", barrier.Stage, barrier.OutputFile)
	if err := s.results.WriteArtifact(ctx, ref, outputPath, []byte(content)); err != nil {
		return nil, fmt.Errorf("failed to write merged artifact: %w", err)
	}

	result := &stageresult.StageResult{
		SchemaVersion:   stageresult.SchemaVersion,
		RunID:           req.RunID,
		Stage:           req.Stage,
		LoopSpecVersion: s.spec.Version,
		Status:          stageresult.StatusDone,
		Timestamp:       maxTimestamp,
		ProducedKeys:    []string{barrier.OutputKey},
		Artifacts:       map[string]string{barrier.OutputKey: outputPath},
	}
	if err := s.results.Write(ctx, ref, result); err != nil {
		return nil, fmt.Errorf("failed to write merge stage result: %w", err)
	}

	return &primary.MergeResult{
		Stage:      req.Stage,
		Status:     stageresult.StatusDone,
		OutputPath: outputPath,
	}, nil
}

// Publish runs the external-persistence variant: gated on one upstream
// stage, the composed content is upserted to the card store before the
// publishing stage's own result is written. A partial upsert failure
// yields a failed result carrying the error text; both upserts are
// idempotent, so a retry completes from scratch.
func (s *MergeServiceImpl) Publish(ctx context.Context, req primary.PublishRequest) (*primary.MergeResult, error) {
	ref := secondary.RunRef{Business: req.Business, RunID: req.RunID}

	upstream, err := s.results.Read(ctx, ref, req.UpstreamStage)
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream stage result: %w", err)
	}

	if reason := gateReason(req.UpstreamStage, req.ArtifactKey, upstream); reason != "" {
		if err := s.writeBlocked(ctx, ref, req.Stage, []string{reason}); err != nil {
			return nil, err
		}
		return &primary.MergeResult{
			Stage:           req.Stage,
			Status:          stageresult.StatusBlocked,
			BlockingReasons: []string{reason},
		}, nil
	}

	body, err := s.results.ReadArtifact(ctx, ref, upstream.Artifacts[req.ArtifactKey])
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream artifact: %w", err)
	}

	title := fmt.Sprintf("%s %s (%s)", req.UpstreamStage, req.ArtifactKey, req.RunID)
	if upsertErr := s.upsertBoth(ctx, req, title, string(body)); upsertErr != nil {
		errText := upsertErr.Error()
		failed := &stageresult.StageResult{
			SchemaVersion:   stageresult.SchemaVersion,
			RunID:           req.RunID,
			Stage:           req.Stage,
			LoopSpecVersion: s.spec.Version,
			Status:          stageresult.StatusFailed,
			Timestamp:       s.now(),
			Error:           &errText,
		}
		if err := s.results.Write(ctx, ref, failed); err != nil {
			return nil, fmt.Errorf("failed to write publish stage result: %w", err)
		}
		return &primary.MergeResult{
			Stage:  req.Stage,
			Status: stageresult.StatusFailed,
			Error:  errText,
		}, nil
	}

	done := &stageresult.StageResult{
		SchemaVersion:   stageresult.SchemaVersion,
		RunID:           req.RunID,
		Stage:           req.Stage,
		LoopSpecVersion: s.spec.Version,
		Status:          stageresult.StatusDone,
		Timestamp:       upstream.Timestamp,
		ProducedKeys:    []string{"card"},
		Artifacts:       map[string]string{"card": req.CardID},
	}
	if err := s.results.Write(ctx, ref, done); err != nil {
		return nil, fmt.Errorf("failed to write publish stage result: %w", err)
	}

	return &primary.MergeResult{
		Stage:      req.Stage,
		Status:     stageresult.StatusDone,
		OutputPath: req.CardID,
	}, nil
}

// mergeInput is one resolved upstream requirement.
type mergeInput struct {
	requirement loopspec.Requirement
	content     string
	timestamp   string
	present     bool
}

// collectInputs resolves every barrier requirement, accumulating every
// blocking reason rather than stopping at the first.
func (s *MergeServiceImpl) collectInputs(ctx context.Context, ref secondary.RunRef, barrier loopspec.Barrier) ([]mergeInput, []string, error) {
	var inputs []mergeInput
	var blocking []string

	for _, req := range barrier.Requirements {
		upstream, err := s.results.Read(ctx, ref, req.Stage)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read stage result for %s: %w", req.Stage, err)
		}

		if reason := requirementDefect(req, upstream); reason != "" {
			if req.Required {
				blocking = append(blocking, reason)
			} else {
				inputs = append(inputs, mergeInput{requirement: req})
			}
			continue
		}

		body, err := s.results.ReadArtifact(ctx, ref, upstream.Artifacts[req.ArtifactKey])
		if err != nil {
			reason := fmt.Sprintf("%s artifact %s unreadable: %v", req.Stage, req.ArtifactKey, err)
			if req.Required {
				blocking = append(blocking, reason)
			} else {
				inputs = append(inputs, mergeInput{requirement: req})
			}
			continue
		}

		inputs = append(inputs, mergeInput{
			requirement: req,
			content:     strings.TrimRight(string(body), "\n"),
			timestamp:   upstream.Timestamp,
			present:     true,
		})
	}

	return inputs, blocking, nil
}

// requirementDefect classifies one upstream record against its
// requirement, returning an empty string when it is usable.
func requirementDefect(req loopspec.Requirement, upstream *stageresult.StageResult) string {
	switch {
	case upstream == nil:
		return fmt.Sprintf("%s stage-result missing (needs artifact %s)", req.Stage, req.ArtifactKey)
	case upstream.Status == stageresult.StatusFailed:
		return fmt.Sprintf("%s failed upstream", req.Stage)
	case upstream.Status == stageresult.StatusBlocked:
		return fmt.Sprintf("%s blocked upstream", req.Stage)
	case !upstream.HasProducedKey(req.ArtifactKey):
		return fmt.Sprintf("%s result malformed: artifact %s not in produced_keys", req.Stage, req.ArtifactKey)
	default:
		return ""
	}
}

// gateReason is the single-upstream gate used by the publish variant.
func gateReason(stage, artifactKey string, upstream *stageresult.StageResult) string {
	switch {
	case upstream == nil:
		return fmt.Sprintf("%s stage-result missing (needs artifact %s)", stage, artifactKey)
	case upstream.Status != stageresult.StatusDone:
		return fmt.Sprintf("%s is %s, not done", stage, upstream.Status)
	case !upstream.HasProducedKey(artifactKey):
		return fmt.Sprintf("%s result malformed: artifact %s not in produced_keys", stage, artifactKey)
	default:
		return ""
	}
}

// composeArtifact renders the merged document. Section order follows the
// requirement list, and the document timestamp is the maximum upstream
// timestamp, so identical inputs compose byte-identical output.
func composeArtifact(runID string, barrier loopspec.Barrier, inputs []mergeInput) (string, string) {
	maxTimestamp := ""
	for _, in := range inputs {
		if in.present && in.timestamp > maxTimestamp {
			maxTimestamp = in.timestamp
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", strings.ReplaceAll(barrier.OutputKey, "_", " "))
	fmt.Fprintf(&b, "Run: %s\n", runID)
	fmt.Fprintf(&b, "Updated: %s\n", maxTimestamp)
	for _, in := range inputs {
		fmt.Fprintf(&b, "\n## %s\n\n", in.requirement.Label)
		if in.present {
			b.WriteString(in.content)
			b.WriteString("\n")
		} else {
			b.WriteString(absentSectionBody + "\n")
		}
	}
	return b.String(), maxTimestamp
}

func (s *MergeServiceImpl) writeBlocked(ctx context.Context, ref secondary.RunRef, stage string, reasons []string) error {
	joined := strings.Join(reasons, "; ")
	blocked := &stageresult.StageResult{
		SchemaVersion:   stageresult.SchemaVersion,
		RunID:           ref.RunID,
		Stage:           stage,
		LoopSpecVersion: s.spec.Version,
		Status:          stageresult.StatusBlocked,
		Timestamp:       s.now(),
		BlockingReason:  &joined,
	}
	if err := s.results.Write(ctx, ref, blocked); err != nil {
		return fmt.Errorf("failed to write blocked stage result: %w", err)
	}
	return nil
}

func (s *MergeServiceImpl) upsertBoth(ctx context.Context, req primary.PublishRequest, title, body string) error {
	if err := s.cards.UpsertCard(ctx, req.CardID, title, body); err != nil {
		return fmt.Errorf("card upsert failed: %w", err)
	}
	if err := s.cards.UpsertStageDoc(ctx, req.CardID, req.UpstreamStage, body); err != nil {
		return fmt.Errorf("stage-doc upsert failed: %w", err)
	}
	return nil
}

func (s *MergeServiceImpl) now() string {
	return s.clock.Now().UTC().Format(time.RFC3339)
}
