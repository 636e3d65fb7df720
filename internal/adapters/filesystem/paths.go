// Package filesystem contains the filesystem implementations of the
// store ports. All state lives under a base directory in the canonical
// startup-baselines layout; every write goes through an atomic
// temp-then-rename so readers never observe partial files.
package filesystem

import (
	"path/filepath"

	"github.com/example/loopctl/internal/ports/secondary"
)

// Paths resolves the canonical layout under one base directory.
type Paths struct {
	BaseDir string
}

// BusinessDir is the per-business root.
func (p Paths) BusinessDir(business string) string {
	return filepath.Join(p.BaseDir, "docs", "business-os", "startup-baselines", business)
}

// RunDir is the per-run root.
func (p Paths) RunDir(ref secondary.RunRef) string {
	return filepath.Join(p.BusinessDir(ref.Business), "runs", ref.RunID)
}

// RunsDir holds all of a business's runs.
func (p Paths) RunsDir(business string) string {
	return filepath.Join(p.BusinessDir(business), "runs")
}

// EventsPath is the run's append-only event log.
func (p Paths) EventsPath(ref secondary.RunRef) string {
	return filepath.Join(p.RunDir(ref), "events.jsonl")
}

// ManifestPath is the run's authoritative manifest.
func (p Paths) ManifestPath(ref secondary.RunRef) string {
	return filepath.Join(p.RunDir(ref), "baseline.manifest.json")
}

// SnapshotPath is the run's diagnosis snapshot.
func (p Paths) SnapshotPath(ref secondary.RunRef) string {
	return filepath.Join(p.RunDir(ref), "bottleneck-diagnosis.json")
}

// StageDir is one stage's directory within a run.
func (p Paths) StageDir(ref secondary.RunRef, stage string) string {
	return filepath.Join(p.RunDir(ref), "stages", stage)
}

// StageResultPath is one stage's terminal record.
func (p Paths) StageResultPath(ref secondary.RunRef, stage string) string {
	return filepath.Join(p.StageDir(ref, stage), "stage-result.json")
}

// HistoryPath is the business's bottleneck history ledger.
func (p Paths) HistoryPath(business string) string {
	return filepath.Join(p.BusinessDir(business), "bottleneck-history.jsonl")
}

// TriggerPath is the business's replan trigger record.
func (p Paths) TriggerPath(business string) string {
	return filepath.Join(p.BusinessDir(business), "replan-trigger.json")
}
