// Package stageresult defines the terminal record each stage worker
// writes describing its own outcome, and the per-status field
// consistency rules downstream consumers depend on.
package stageresult

import "fmt"

// SchemaVersion is the single supported stage-result schema version.
const SchemaVersion = 1

// Status is the terminal outcome of one stage.
type Status string

const (
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
	StatusBlocked Status = "blocked"
)

// StageResult is the record a stage worker writes once on completion.
type StageResult struct {
	SchemaVersion   int               `json:"schema_version"`
	RunID           string            `json:"run_id"`
	Stage           string            `json:"stage"`
	LoopSpecVersion string            `json:"loop_spec_version"`
	Status          Status            `json:"status"`
	Timestamp       string            `json:"timestamp"`
	ProducedKeys    []string          `json:"produced_keys"`
	Artifacts       map[string]string `json:"artifacts"`
	Error           *string           `json:"error"`
	BlockingReason  *string           `json:"blocking_reason"`
}

// Validate checks the status/field consistency invariants:
// done needs produced_keys each resolvable through artifacts, failed
// needs error, blocked needs blocking_reason.
func (r *StageResult) Validate() error {
	if r.SchemaVersion != SchemaVersion {
		return fmt.Errorf("stage %s: unsupported schema_version %d", r.Stage, r.SchemaVersion)
	}
	if r.RunID == "" || r.Stage == "" || r.Timestamp == "" {
		return fmt.Errorf("stage %s: missing required identity fields", r.Stage)
	}

	switch r.Status {
	case StatusDone:
		if len(r.ProducedKeys) == 0 {
			return fmt.Errorf("stage %s: done with no produced_keys", r.Stage)
		}
		for _, key := range r.ProducedKeys {
			if _, ok := r.Artifacts[key]; !ok {
				return fmt.Errorf("stage %s: produced key %q missing from artifacts", r.Stage, key)
			}
		}
	case StatusFailed:
		if r.Error == nil || *r.Error == "" {
			return fmt.Errorf("stage %s: failed with no error", r.Stage)
		}
	case StatusBlocked:
		if r.BlockingReason == nil || *r.BlockingReason == "" {
			return fmt.Errorf("stage %s: blocked with no blocking_reason", r.Stage)
		}
	default:
		return fmt.Errorf("stage %s: unknown status %q", r.Stage, r.Status)
	}

	return nil
}

// HasProducedKey reports whether the result claims to have produced key.
func (r *StageResult) HasProducedKey(key string) bool {
	for _, k := range r.ProducedKeys {
		if k == key {
			return true
		}
	}
	return false
}
