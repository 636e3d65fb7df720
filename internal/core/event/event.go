// Package event defines the append-only run event log entries and their
// structural validation. Events are the only source of truth for a run's
// derived state; they are never rewritten, only appended.
package event

// SchemaVersion is the single supported event schema version.
const SchemaVersion = 1

// WildcardStage marks events that address the whole run rather than one
// stage. Only run_aborted uses it.
const WildcardStage = "*"

// Kind identifies the event type.
type Kind string

const (
	KindStageStarted   Kind = "stage_started"
	KindStageCompleted Kind = "stage_completed"
	KindStageBlocked   Kind = "stage_blocked"
	KindRunAborted     Kind = "run_aborted"
)

// KnownKinds lists every valid event kind.
var KnownKinds = []Kind{KindStageStarted, KindStageCompleted, KindStageBlocked, KindRunAborted}

// Event is one immutable fact in a run's history.
type Event struct {
	SchemaVersion   int               `json:"schema_version"`
	Event           Kind              `json:"event"`
	RunID           string            `json:"run_id"`
	Stage           string            `json:"stage"`
	Timestamp       string            `json:"timestamp"`
	LoopSpecVersion string            `json:"loop_spec_version"`
	Artifacts       map[string]string `json:"artifacts"`
	BlockingReason  *string           `json:"blocking_reason"`
}

// IsKnownKind reports whether k is one of the four supported kinds.
func IsKnownKind(k Kind) bool {
	for _, known := range KnownKinds {
		if k == known {
			return true
		}
	}
	return false
}
