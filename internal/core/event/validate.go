package event

import "fmt"

// ValidationResult reports every defect found in an event sequence.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Validate checks an ordered event sequence for structural and semantic
// defects. Errors are accumulated, not short-circuited, so one pass
// reports everything wrong with a log. An empty sequence is valid.
func Validate(events []Event) ValidationResult {
	var errs []string

	for i, e := range events {
		if e.SchemaVersion != SchemaVersion {
			errs = append(errs, fmt.Sprintf("event %d: unsupported schema_version %d (want %d)", i, e.SchemaVersion, SchemaVersion))
		}
		if !IsKnownKind(e.Event) {
			errs = append(errs, fmt.Sprintf("event %d: unknown event kind %q", i, e.Event))
		}
		if e.RunID == "" {
			errs = append(errs, fmt.Sprintf("event %d: missing run_id", i))
		}
		if e.Stage == "" {
			errs = append(errs, fmt.Sprintf("event %d: missing stage", i))
		}
		if e.Timestamp == "" {
			errs = append(errs, fmt.Sprintf("event %d: missing timestamp", i))
		}
		if e.LoopSpecVersion == "" {
			errs = append(errs, fmt.Sprintf("event %d: missing loop_spec_version", i))
		}

		switch e.Event {
		case KindStageCompleted:
			if len(e.Artifacts) == 0 {
				errs = append(errs, fmt.Sprintf("event %d: stage_completed for %s has no artifacts", i, e.Stage))
			}
		case KindStageBlocked:
			if e.BlockingReason == nil || *e.BlockingReason == "" {
				errs = append(errs, fmt.Sprintf("event %d: stage_blocked for %s has no blocking_reason", i, e.Stage))
			}
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}
