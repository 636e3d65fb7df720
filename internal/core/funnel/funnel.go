// Package funnel defines the canonical funnel metrics input consumed by
// the bottleneck detector, the v1 metric catalog, and the miss
// computation. The catalog maps each metric to the stage that owns its
// target and to its class: primitive metrics are directly measured,
// derived metrics are outcomes of primitives.
package funnel

import "strings"

// Version strings stamped into every metrics input and diagnosis.
const (
	DiagnosisSchemaVersion = "v1"
	ConstraintKeyVersion   = "v1"
	MetricCatalogVersion   = "v1"
)

// Direction says which side of the target is bad.
type Direction string

const (
	HigherIsBetter Direction = "higher_is_better"
	LowerIsBetter  Direction = "lower_is_better"
)

// MetricClass distinguishes measured drivers from derived outcomes.
type MetricClass string

const (
	ClassPrimitive MetricClass = "primitive"
	ClassDerived   MetricClass = "derived"
)

// CatalogEntry describes one metric in the v1 catalog.
type CatalogEntry struct {
	Stage       string
	Direction   Direction
	MetricClass MetricClass
}

// MetricOrder is the canonical metric ordering for data_quality lists
// and deterministic iteration.
var MetricOrder = []string{"traffic", "cvr", "aov", "cac", "orders", "revenue"}

// Catalog is the v1 metric catalog.
var Catalog = map[string]CatalogEntry{
	"traffic": {Stage: "S6B", Direction: HigherIsBetter, MetricClass: ClassPrimitive},
	"cvr":     {Stage: "S3", Direction: HigherIsBetter, MetricClass: ClassPrimitive},
	"aov":     {Stage: "S2B", Direction: HigherIsBetter, MetricClass: ClassPrimitive},
	"cac":     {Stage: "S6B", Direction: LowerIsBetter, MetricClass: ClassPrimitive},
	"orders":  {Stage: "S10", Direction: HigherIsBetter, MetricClass: ClassDerived},
	"revenue": {Stage: "S10", Direction: HigherIsBetter, MetricClass: ClassDerived},
}

// Metric is one funnel metric with target, actual and normalized miss.
// Miss is nil when either side is unmeasured.
type Metric struct {
	Target      *float64    `json:"target"`
	Actual      *float64    `json:"actual"`
	DeltaPct    *float64    `json:"delta_pct"`
	Miss        *float64    `json:"miss"`
	Stage       string      `json:"stage"`
	Direction   Direction   `json:"direction"`
	MetricClass MetricClass `json:"metric_class"`
}

// BlockedStage is one blocked stage observed in the run's event log.
type BlockedStage struct {
	Stage          string `json:"stage"`
	ReasonCode     string `json:"reason_code"`
	BlockingReason string `json:"blocking_reason"`
	Timestamp      string `json:"timestamp"`
}

// DataQuality lists metrics excluded from diagnosis and why.
type DataQuality struct {
	MissingTargets  []string `json:"missing_targets"`
	MissingActuals  []string `json:"missing_actuals"`
	ExcludedMetrics []string `json:"excluded_metrics"`
}

// Sources records where each piece of the input was read from. A nil
// entry means the source was unavailable.
type Sources struct {
	S3Forecast *string `json:"s3_forecast"`
	S10Readout *string `json:"s10_readout"`
	Events     *string `json:"events"`
}

// MetricsInput is the canonical detector input.
type MetricsInput struct {
	DiagnosisSchemaVersion string            `json:"diagnosis_schema_version"`
	ConstraintKeyVersion   string            `json:"constraint_key_version"`
	MetricCatalogVersion   string            `json:"metric_catalog_version"`
	FunnelMetrics          map[string]Metric `json:"funnel_metrics"`
	BlockedStages          []BlockedStage    `json:"blocked_stages"`
	DataQuality            DataQuality       `json:"data_quality"`
	Sources                Sources           `json:"sources"`
}

// ComputeMiss returns the direction-normalized fractional
// underperformance, clamped to [0,1]. Zero means at or better than
// target. Nil when target or actual is missing, or target is zero.
func ComputeMiss(target, actual *float64, direction Direction) *float64 {
	if target == nil || actual == nil || *target == 0 {
		return nil
	}
	var miss float64
	switch direction {
	case LowerIsBetter:
		miss = (*actual - *target) / *target
	default:
		miss = (*target - *actual) / *target
	}
	if miss < 0 {
		miss = 0
	}
	if miss > 1 {
		miss = 1
	}
	return &miss
}

// Reason codes a blocking reason normalizes to.
const (
	ReasonDepsBlocked = "deps_blocked"
	ReasonDataMissing = "data_missing"
)

// NormalizeReasonCode maps free-text blocking reasons onto the two
// canonical codes. Reasons naming an upstream dependency become
// deps_blocked; everything else is treated as missing data.
func NormalizeReasonCode(blockingReason string) string {
	lower := strings.ToLower(blockingReason)
	for _, marker := range []string{"upstream", "dependen", "stage-result", "artifacts"} {
		if strings.Contains(lower, marker) {
			return ReasonDepsBlocked
		}
	}
	return ReasonDataMissing
}
