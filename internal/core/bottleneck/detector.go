package bottleneck

import (
	"fmt"
	"sort"

	"github.com/example/loopctl/internal/core/funnel"
	"github.com/example/loopctl/internal/core/loopspec"
)

// Severity thresholds on miss, and the float-noise guard for ties.
const (
	criticalThreshold = 0.50
	moderateThreshold = 0.20
	minorThreshold    = 0.05
	missEpsilon       = 0.0001
)

// Identify ranks candidate constraints and picks the primary bottleneck.
// Blocked stages always become critical candidates with miss 1.0 and
// outrank every metric candidate. Derived outcomes are suppressed when
// their primitive drivers are independently measurable, so a symptom is
// never reported as the primary constraint.
func Identify(input funnel.MetricsInput, spec loopspec.Spec) Diagnosis {
	candidates := blockedCandidates(input)
	candidates = append(candidates, metricCandidates(input)...)

	sort.SliceStable(candidates, func(i, j int) bool {
		return ranksBefore(candidates[i], candidates[j], spec)
	})

	if len(candidates) == 0 {
		return Diagnosis{
			DiagnosisStatus:   emptyStatus(input),
			RankedConstraints: []RankedConstraint{},
		}
	}

	ranked := make([]RankedConstraint, 0, 5)
	for i, c := range candidates {
		if i >= 5 {
			break
		}
		c.Reasoning = reasoning(c, i == 0)
		ranked = append(ranked, RankedConstraint{Constraint: c, Rank: i + 1})
	}

	identified := ranked[0].Constraint
	return Diagnosis{
		DiagnosisStatus:      StatusOK,
		IdentifiedConstraint: &identified,
		RankedConstraints:    ranked,
	}
}

func blockedCandidates(input funnel.MetricsInput) []Constraint {
	var out []Constraint
	for _, b := range input.BlockedStages {
		reason := b.ReasonCode
		if reason == "" {
			reason = funnel.NormalizeReasonCode(b.BlockingReason)
		}
		rc := reason
		out = append(out, Constraint{
			ConstraintKey:  fmt.Sprintf("%s/stage_blocked/%s", b.Stage, rc),
			ConstraintType: TypeStageBlocked,
			Stage:          b.Stage,
			ReasonCode:     &rc,
			Severity:       SeverityCritical,
			Miss:           1.0,
		})
	}
	return out
}

func metricCandidates(input funnel.MetricsInput) []Constraint {
	measurable := func(name string) bool {
		m, ok := input.FunnelMetrics[name]
		return ok && m.Miss != nil
	}
	driversMeasurable := measurable("traffic") && measurable("cvr")

	var out []Constraint
	for _, name := range funnel.MetricOrder {
		m, ok := input.FunnelMetrics[name]
		if !ok || m.Miss == nil {
			continue
		}
		severity := classify(*m.Miss)
		if severity == SeverityNone {
			continue
		}
		// Upstream attribution: drop derived outcomes whose primitive
		// drivers are independently measurable.
		if name == "orders" && driversMeasurable {
			continue
		}
		if name == "revenue" && (measurable("orders") || driversMeasurable) {
			continue
		}
		metric := name
		out = append(out, Constraint{
			ConstraintKey:  fmt.Sprintf("%s/%s", m.Stage, name),
			ConstraintType: TypeMetric,
			Stage:          m.Stage,
			Metric:         &metric,
			Severity:       severity,
			Miss:           *m.Miss,
		})
	}
	return out
}

func classify(miss float64) Severity {
	switch {
	case miss >= criticalThreshold:
		return SeverityCritical
	case miss >= moderateThreshold:
		return SeverityModerate
	case miss >= minorThreshold:
		return SeverityMinor
	default:
		return SeverityNone
	}
}

// ranksBefore is the total candidate order: stage_blocked first, then
// miss descending, then upstream priority, then lexical key.
func ranksBefore(a, b Constraint, spec loopspec.Spec) bool {
	if a.ConstraintType != b.ConstraintType {
		return a.ConstraintType == TypeStageBlocked
	}
	if diff := a.Miss - b.Miss; diff > missEpsilon || diff < -missEpsilon {
		return a.Miss > b.Miss
	}
	ai, bi := spec.PriorityIndex(a.Stage), spec.PriorityIndex(b.Stage)
	if ai != bi {
		return ai < bi
	}
	return a.ConstraintKey < b.ConstraintKey
}

func emptyStatus(input funnel.MetricsInput) DiagnosisStatus {
	for _, m := range input.FunnelMetrics {
		if m.Miss != nil {
			return StatusNoBottleneck
		}
	}
	return StatusInsufficientData
}

func reasoning(c Constraint, primary bool) string {
	role := "Secondary constraint"
	if primary {
		role = "Primary constraint"
	}
	if c.ConstraintType == TypeStageBlocked {
		return fmt.Sprintf("%s: stage %s is blocked (%s), halting the funnel ahead of any metric shortfall", role, c.Stage, *c.ReasonCode)
	}
	base := fmt.Sprintf("%s: %s at %s missed target by %.0f%% (%s)", role, *c.Metric, c.Stage, c.Miss*100, c.Severity)
	if entry, ok := funnel.Catalog[*c.Metric]; ok && entry.MetricClass == funnel.ClassDerived {
		return base + "; derived outcome, likely symptomatic of upstream drivers"
	}
	return base
}
