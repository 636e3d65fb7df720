// Package bottleneck identifies the dominant performance constraint from
// funnel metrics and blocked stages, encodes diagnoses into the history
// ledger format, and evaluates constraint persistence over a rolling
// window. Everything here is pure; persistence lives behind ports.
package bottleneck

import (
	"github.com/example/loopctl/internal/core/funnel"
)

// DiagnosisStatus is the overall outcome of a diagnosis.
type DiagnosisStatus string

const (
	StatusOK               DiagnosisStatus = "ok"
	StatusNoBottleneck     DiagnosisStatus = "no_bottleneck"
	StatusInsufficientData DiagnosisStatus = "insufficient_data"

	// StatusPartialData is reserved in the schema but never produced by
	// the current ranking logic.
	StatusPartialData DiagnosisStatus = "partial_data"
)

// ConstraintType tags the two candidate variants.
type ConstraintType string

const (
	TypeMetric       ConstraintType = "metric"
	TypeStageBlocked ConstraintType = "stage_blocked"
)

// Severity classifies how badly a constraint misses.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityModerate Severity = "moderate"
	SeverityMinor    Severity = "minor"
	SeverityNone     Severity = "none"
)

// SeverityRank orders severities for gate comparisons.
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityModerate:
		return 2
	case SeverityMinor:
		return 1
	default:
		return 0
	}
}

// Constraint is one candidate explanation for poor funnel outcomes,
// either an underperforming metric or a blocked stage.
type Constraint struct {
	ConstraintKey  string         `json:"constraint_key"`
	ConstraintType ConstraintType `json:"constraint_type"`
	Stage          string         `json:"stage"`
	Metric         *string        `json:"metric"`
	ReasonCode     *string        `json:"reason_code"`
	Severity       Severity       `json:"severity"`
	Miss           float64        `json:"miss"`
	Reasoning      string         `json:"reasoning"`
}

// RankedConstraint is a constraint with its 1-based rank.
type RankedConstraint struct {
	Constraint
	Rank int `json:"rank"`
}

// Diagnosis is the detector output.
type Diagnosis struct {
	DiagnosisStatus      DiagnosisStatus    `json:"diagnosis_status"`
	IdentifiedConstraint *Constraint        `json:"identified_constraint"`
	RankedConstraints    []RankedConstraint `json:"ranked_constraints"`
}

// Snapshot is the persisted per-run diagnosis document, combining the
// metrics input, the detector output, and the prior-run comparison.
type Snapshot struct {
	DiagnosisSchemaVersion string                   `json:"diagnosis_schema_version"`
	ConstraintKeyVersion   string                   `json:"constraint_key_version"`
	MetricCatalogVersion   string                   `json:"metric_catalog_version"`
	RunID                  string                   `json:"run_id"`
	Business               string                   `json:"business"`
	Timestamp              string                   `json:"timestamp"`
	DiagnosisStatus        DiagnosisStatus          `json:"diagnosis_status"`
	DataQuality            funnel.DataQuality       `json:"data_quality"`
	FunnelMetrics          map[string]funnel.Metric `json:"funnel_metrics"`
	IdentifiedConstraint   *Constraint              `json:"identified_constraint"`
	RankedConstraints      []RankedConstraint       `json:"ranked_constraints"`
	ComparisonToPriorRun   *Comparison              `json:"comparison_to_prior_run"`
}
