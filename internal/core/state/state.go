// Package state derives a run's per-stage status snapshot by replaying
// its event log. Derivation is a pure fold: identical inputs yield
// byte-identical output, and nothing is retained between calls.
package state

// StageStatus is the lifecycle status of one stage within a run.
type StageStatus string

const (
	StatusPending StageStatus = "pending"
	StatusActive  StageStatus = "active"
	StatusDone    StageStatus = "done"
	StatusBlocked StageStatus = "blocked"
)

// StageState is the derived snapshot of one stage.
type StageState struct {
	Name           string      `json:"name"`
	Status         StageStatus `json:"status"`
	Timestamp      string      `json:"timestamp"`
	Artifacts      []string    `json:"artifacts"`
	BlockingReason *string     `json:"blocking_reason"`
}

// DerivedState is the full derived snapshot of one run.
type DerivedState struct {
	RunID           string                 `json:"run_id"`
	Business        string                 `json:"business"`
	LoopSpecVersion string                 `json:"loop_spec_version"`
	Stages          map[string]*StageState `json:"stages"`
	ActiveStage     *string                `json:"active_stage"`
}

// Options identifies the run being derived.
type Options struct {
	Business        string
	RunID           string
	LoopSpecVersion string
}
