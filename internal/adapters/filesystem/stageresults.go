package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/example/loopctl/internal/core/stageresult"
	"github.com/example/loopctl/internal/ports/secondary"
)

// StageResultStore implements secondary.StageResultStore over
// stages/<stage>/stage-result.json records.
type StageResultStore struct {
	paths Paths
}

// NewStageResultStore creates a stage-result store rooted at baseDir.
func NewStageResultStore(baseDir string) *StageResultStore {
	return &StageResultStore{paths: Paths{BaseDir: baseDir}}
}

// Discover finds every stage-result record under the run. Records that
// fail to parse are reported by stage id in malformed rather than
// aborting the sweep.
func (s *StageResultStore) Discover(ctx context.Context, ref secondary.RunRef) (map[string]*stageresult.StageResult, []string, error) {
	runDir := s.paths.RunDir(ref)
	matches, err := doublestar.Glob(os.DirFS(runDir), "stages/*/stage-result.json")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan stage results: %w", err)
	}
	sort.Strings(matches)

	results := make(map[string]*stageresult.StageResult)
	var malformed []string
	for _, match := range matches {
		stage := filepath.Base(filepath.Dir(match))
		var result stageresult.StageResult
		if err := readJSON(filepath.Join(runDir, match), &result); err != nil {
			malformed = append(malformed, stage)
			continue
		}
		if result.Stage != stage {
			malformed = append(malformed, stage)
			continue
		}
		results[stage] = &result
	}
	return results, malformed, nil
}

// Read returns one stage's result, or nil when absent.
func (s *StageResultStore) Read(ctx context.Context, ref secondary.RunRef, stage string) (*stageresult.StageResult, error) {
	var result stageresult.StageResult
	err := readJSON(s.paths.StageResultPath(ref, stage), &result)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Write persists one stage's result atomically.
func (s *StageResultStore) Write(ctx context.Context, ref secondary.RunRef, result *stageresult.StageResult) error {
	return writeJSONAtomic(s.paths.StageResultPath(ref, result.Stage), result)
}

// ReadArtifact reads an artifact by its run-relative path. Paths that
// escape the run directory are rejected.
func (s *StageResultStore) ReadArtifact(ctx context.Context, ref secondary.RunRef, relPath string) ([]byte, error) {
	path, err := s.artifactPath(ref, relPath)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// WriteArtifact writes an artifact atomically under the run directory.
func (s *StageResultStore) WriteArtifact(ctx context.Context, ref secondary.RunRef, relPath string, data []byte) error {
	path, err := s.artifactPath(ref, relPath)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

func (s *StageResultStore) artifactPath(ref secondary.RunRef, relPath string) (string, error) {
	clean := filepath.Clean(relPath)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("artifact path %q escapes the run directory", relPath)
	}
	return filepath.Join(s.paths.RunDir(ref), clean), nil
}

var _ secondary.StageResultStore = (*StageResultStore)(nil)
