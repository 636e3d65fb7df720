package bottleneck

// Sentinel constraint keys recorded for runs with no identified
// constraint. Either one breaks persistence for any window it lands in.
const (
	SentinelNone             = "none"
	SentinelInsufficientData = "insufficient_data"
)

// Entry is one row of the per-business bottleneck history ledger.
type Entry struct {
	Timestamp        string          `json:"timestamp"`
	RunID            string          `json:"run_id"`
	DiagnosisStatus  DiagnosisStatus `json:"diagnosis_status"`
	ConstraintKey    string          `json:"constraint_key"`
	ConstraintStage  *string         `json:"constraint_stage"`
	ConstraintMetric *string         `json:"constraint_metric"`
	ReasonCode       *string         `json:"reason_code"`
	Severity         string          `json:"severity"`
}

// EncodeEntry collapses a diagnosis snapshot into a ledger row using the
// sentinel rules: no_bottleneck and insufficient_data runs carry their
// sentinel key and severity "none".
func EncodeEntry(snapshot *Snapshot) Entry {
	entry := Entry{
		Timestamp:       snapshot.Timestamp,
		RunID:           snapshot.RunID,
		DiagnosisStatus: snapshot.DiagnosisStatus,
		Severity:        string(SeverityNone),
	}

	c := snapshot.IdentifiedConstraint
	if snapshot.DiagnosisStatus == StatusOK && c != nil {
		entry.ConstraintKey = c.ConstraintKey
		entry.ConstraintStage = &c.Stage
		entry.ConstraintMetric = c.Metric
		entry.ReasonCode = c.ReasonCode
		entry.Severity = string(c.Severity)
		return entry
	}

	if snapshot.DiagnosisStatus == StatusInsufficientData {
		entry.ConstraintKey = SentinelInsufficientData
	} else {
		entry.ConstraintKey = SentinelNone
	}
	return entry
}

// IsBreaker reports whether a constraint key invalidates persistence.
func IsBreaker(constraintKey string) bool {
	return constraintKey == SentinelNone || constraintKey == SentinelInsufficientData
}

// CheckPersistence reports whether the last n ledger entries share one
// non-breaker constraint key. Fewer than n entries is never persistent.
func CheckPersistence(entries []Entry, n int) (bool, *string) {
	if n <= 0 || len(entries) < n {
		return false, nil
	}
	window := entries[len(entries)-n:]
	key := window[0].ConstraintKey
	if IsBreaker(key) {
		return false, nil
	}
	for _, e := range window[1:] {
		if e.ConstraintKey != key {
			return false, nil
		}
	}
	return true, &key
}

// LastN returns the trailing n entries in ledger order, or all of them
// when the ledger is shorter.
func LastN(entries []Entry, n int) []Entry {
	if n <= 0 {
		return nil
	}
	if len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}
