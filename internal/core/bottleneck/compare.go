package bottleneck

import "github.com/example/loopctl/internal/core/funnel"

// Trend classifies one metric's movement between two runs.
type Trend string

const (
	TrendImproving   Trend = "improving"
	TrendWorsening   Trend = "worsening"
	TrendStable      Trend = "stable"
	TrendNewData     Trend = "new_data"
	TrendNoPriorData Trend = "no_prior_data"
)

// Miss movements within this band count as stable.
const trendStabilityThreshold = 0.02

// Comparison relates a run's diagnosis to the nearest prior run that has
// a diagnosis snapshot.
type Comparison struct {
	PriorRunID         string           `json:"prior_run_id"`
	ConstraintChanged  bool             `json:"constraint_changed"`
	PriorConstraintKey *string          `json:"prior_constraint_key"`
	MetricTrends       map[string]Trend `json:"metric_trends"`
}

// Compare builds the prior-run comparison block. Metrics with no
// computable miss in the current run are omitted; metrics absent from
// the prior snapshot read no_prior_data; metrics present but unmeasured
// in the prior snapshot read new_data.
func Compare(current map[string]funnel.Metric, currentConstraint *Constraint, prior *Snapshot) *Comparison {
	if prior == nil {
		return nil
	}

	trends := make(map[string]Trend)
	for _, name := range funnel.MetricOrder {
		cur, ok := current[name]
		if !ok || cur.Miss == nil {
			continue
		}
		priorMetric, ok := prior.FunnelMetrics[name]
		if !ok {
			trends[name] = TrendNoPriorData
			continue
		}
		if priorMetric.Miss == nil {
			trends[name] = TrendNewData
			continue
		}
		delta := *cur.Miss - *priorMetric.Miss
		switch {
		case delta > trendStabilityThreshold:
			trends[name] = TrendWorsening
		case delta < -trendStabilityThreshold:
			trends[name] = TrendImproving
		default:
			trends[name] = TrendStable
		}
	}

	comparison := &Comparison{
		PriorRunID:   prior.RunID,
		MetricTrends: trends,
	}
	priorKey := ""
	if prior.IdentifiedConstraint != nil {
		priorKey = prior.IdentifiedConstraint.ConstraintKey
		comparison.PriorConstraintKey = &prior.IdentifiedConstraint.ConstraintKey
	}
	currentKey := ""
	if currentConstraint != nil {
		currentKey = currentConstraint.ConstraintKey
	}
	comparison.ConstraintChanged = priorKey != currentKey
	return comparison
}
