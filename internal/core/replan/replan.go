// Package replan implements the guarded replan trigger: a per-business
// lifecycle record that opens when one constraint persists as the
// primary bottleneck across a rolling window of runs, survives operator
// acknowledgement, auto-resolves after a streak of non-persistent runs,
// and reopens if the constraint comes back.
package replan

import (
	"fmt"
	"strings"

	"github.com/example/loopctl/internal/core/bottleneck"
)

// Status is the trigger lifecycle status.
type Status string

const (
	StatusOpen         Status = "open"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
)

// Defaults for trigger evaluation.
const (
	DefaultPersistenceThreshold = 3
	DefaultMinSeverity          = bottleneck.SeverityModerate
	DefaultAutoResolveAfterRuns = 2
)

// Constraint is the persistent constraint a trigger points at.
type Constraint struct {
	ConstraintKey string              `json:"constraint_key"`
	Stage         string              `json:"stage"`
	Metric        *string             `json:"metric"`
	Severity      bottleneck.Severity `json:"severity"`
}

// Trigger is the per-business replan signal. Created on first
// qualifying persistence, mutated in place afterwards, never deleted.
type Trigger struct {
	Status               Status     `json:"status"`
	CreatedAt            string     `json:"created_at"`
	LastEvaluatedAt      string     `json:"last_evaluated_at"`
	ResolvedAt           *string    `json:"resolved_at"`
	ReopenedCount        int        `json:"reopened_count"`
	LastReopenedAt       *string    `json:"last_reopened_at"`
	Constraint           Constraint `json:"constraint"`
	RunHistory           []string   `json:"run_history"`
	Reason               string     `json:"reason"`
	RecommendedFocus     string     `json:"recommended_focus"`
	MinSeverity          string     `json:"min_severity"`
	PersistenceThreshold int        `json:"persistence_threshold"`
	NonPersistentCount   int        `json:"non_persistent_count"`
}

// Options gate trigger creation.
type Options struct {
	PersistenceThreshold              int
	MinSeverity                       bottleneck.Severity
	AutoResolveAfterNonPersistentRuns int
}

// WithDefaults fills zero-valued options.
func (o Options) WithDefaults() Options {
	if o.PersistenceThreshold == 0 {
		o.PersistenceThreshold = DefaultPersistenceThreshold
	}
	if o.MinSeverity == "" {
		o.MinSeverity = DefaultMinSeverity
	}
	if o.AutoResolveAfterNonPersistentRuns == 0 {
		o.AutoResolveAfterNonPersistentRuns = DefaultAutoResolveAfterRuns
	}
	return o
}

// Evaluate advances the trigger state machine for one diagnosis.
// existing is the stored trigger or nil. persistent and constraintKey
// come from the ledger persistence check; windowRunIDs are the run ids
// of the checked window; identified is the diagnosis's identified
// constraint. Returns the trigger to persist (nil when none exists and
// none is warranted) and whether it changed.
func Evaluate(existing *Trigger, persistent bool, constraintKey *string, windowRunIDs []string, identified *bottleneck.Constraint, opts Options, now string) (*Trigger, bool) {
	opts = opts.WithDefaults()

	if !persistent {
		if existing == nil {
			return nil, false
		}
		existing.LastEvaluatedAt = now
		existing.NonPersistentCount++
		if existing.Status != StatusResolved && existing.NonPersistentCount >= opts.AutoResolveAfterNonPersistentRuns {
			existing.Status = StatusResolved
			resolvedAt := now
			existing.ResolvedAt = &resolvedAt
		}
		return existing, true
	}

	severity := bottleneck.SeverityNone
	if identified != nil {
		severity = identified.Severity
	}
	if bottleneck.SeverityRank(severity) < bottleneck.SeverityRank(opts.MinSeverity) {
		// Persistent but below the gate: touch evaluation time only.
		if existing == nil {
			return nil, false
		}
		existing.LastEvaluatedAt = now
		return existing, true
	}

	key := ""
	if constraintKey != nil {
		key = *constraintKey
	}
	constraint := Constraint{ConstraintKey: key, Severity: severity}
	if identified != nil {
		constraint.Stage = identified.Stage
		constraint.Metric = identified.Metric
	}
	reason := fmt.Sprintf("Constraint %s identified as primary bottleneck in %d consecutive runs", key, len(windowRunIDs))
	focus := RecommendedFocus(key, constraint.Metric)

	if existing == nil {
		return &Trigger{
			Status:               StatusOpen,
			CreatedAt:            now,
			LastEvaluatedAt:      now,
			Constraint:           constraint,
			RunHistory:           windowRunIDs,
			Reason:               reason,
			RecommendedFocus:     focus,
			MinSeverity:          string(opts.MinSeverity),
			PersistenceThreshold: opts.PersistenceThreshold,
		}, true
	}

	existing.LastEvaluatedAt = now
	existing.Constraint = constraint
	existing.RunHistory = windowRunIDs
	existing.Reason = reason
	existing.RecommendedFocus = focus
	existing.MinSeverity = string(opts.MinSeverity)
	existing.PersistenceThreshold = opts.PersistenceThreshold
	existing.NonPersistentCount = 0

	if existing.Status == StatusResolved {
		existing.Status = StatusOpen
		existing.ResolvedAt = nil
		existing.ReopenedCount++
		reopenedAt := now
		existing.LastReopenedAt = &reopenedAt
	}
	// Open stays open; acknowledged is sticky until resolved.

	return existing, true
}

// Focus recommendations by constraint category.
const (
	focusCVR     = "Improve conversion rate through offer clarity, trust signals, or checkout optimization"
	focusTraffic = "Increase traffic through SEO, paid acquisition, or content marketing"
	focusCAC     = "Reduce customer acquisition cost through channel optimization or targeting"
	focusAOV     = "Increase average order value through upsells, bundles, or pricing"
	focusBlocked = "Resolve stage blocker before addressing metric constraints"
	focusDefault = "Review constraint and plan targeted intervention"
)

// RecommendedFocus maps a constraint to a fixed intervention category.
func RecommendedFocus(constraintKey string, metric *string) string {
	if metric != nil {
		switch *metric {
		case "cvr":
			return focusCVR
		case "traffic":
			return focusTraffic
		case "cac":
			return focusCAC
		case "aov":
			return focusAOV
		}
	}
	if strings.Contains(constraintKey, "/stage_blocked/") {
		return focusBlocked
	}
	return focusDefault
}
