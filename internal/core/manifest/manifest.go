// Package manifest derives the run-level authoritative manifest from the
// set of discovered stage-result records. Derivation is all-or-nothing:
// any required stage that is not present and valid rejects the whole
// update without touching the previous manifest.
package manifest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/example/loopctl/internal/core/stageresult"
)

// SchemaVersion is the single supported manifest schema version.
const SchemaVersion = 1

// Status is the manifest lifecycle status. Promotion from candidate to
// current is a control-plane concern, not performed by the updater.
type Status string

const (
	StatusCandidate Status = "candidate"
	StatusCurrent   Status = "current"
)

// StageCompletion summarizes one valid stage result inside the manifest.
type StageCompletion struct {
	Status       stageresult.Status `json:"status"`
	Timestamp    string             `json:"timestamp"`
	ProducedKeys []string           `json:"produced_keys"`
}

// Manifest is the single authoritative record of a run.
type Manifest struct {
	SchemaVersion    int                        `json:"schema_version"`
	RunID            string                     `json:"run_id"`
	Business         string                     `json:"business"`
	LoopSpecVersion  string                     `json:"loop_spec_version"`
	Status           Status                     `json:"status"`
	CreatedAt        string                     `json:"created_at"`
	UpdatedAt        string                     `json:"updated_at"`
	Artifacts        map[string]string          `json:"artifacts"`
	StageCompletions map[string]StageCompletion `json:"stage_completions"`
}

// Rejection enumerates every reason a manifest derivation was refused.
type Rejection struct {
	Missing   []string
	Failed    []string
	Blocked   []string
	Malformed []string
	Reason    string
}

// Options identifies the run and names its required stages.
type Options struct {
	Business        string
	RunID           string
	LoopSpecVersion string
	RequiredStages  []string
	Now             string
}

// Build derives a manifest from discovered stage results. results maps
// stage id to its parsed record; malformed records arrive as nil with
// their stage listed in malformedStages. prior, when non-nil, supplies
// the preserved created_at. On any required-stage defect Build returns a
// nil manifest and a populated Rejection listing all four categories.
func Build(results map[string]*stageresult.StageResult, malformedStages []string, prior *Manifest, opts Options) (*Manifest, *Rejection) {
	malformed := append([]string(nil), malformedStages...)
	var missing, failed, blocked []string

	for _, stage := range opts.RequiredStages {
		r, ok := results[stage]
		if !ok {
			if !contains(malformed, stage) {
				missing = append(missing, stage)
			}
			continue
		}
		if err := r.Validate(); err != nil {
			malformed = append(malformed, stage)
			continue
		}
		switch r.Status {
		case stageresult.StatusFailed:
			failed = append(failed, stage)
		case stageresult.StatusBlocked:
			blocked = append(blocked, stage)
		}
	}

	sort.Strings(missing)
	sort.Strings(failed)
	sort.Strings(blocked)
	sort.Strings(malformed)

	if len(missing)+len(failed)+len(blocked)+len(malformed) > 0 {
		return nil, &Rejection{
			Missing:   missing,
			Failed:    failed,
			Blocked:   blocked,
			Malformed: malformed,
			Reason:    rejectionReason(missing, failed, blocked, malformed),
		}
	}

	m := &Manifest{
		SchemaVersion:    SchemaVersion,
		RunID:            opts.RunID,
		Business:         opts.Business,
		LoopSpecVersion:  opts.LoopSpecVersion,
		Status:           StatusCandidate,
		CreatedAt:        opts.Now,
		UpdatedAt:        opts.Now,
		Artifacts:        make(map[string]string),
		StageCompletions: make(map[string]StageCompletion),
	}
	if prior != nil && prior.CreatedAt != "" {
		m.CreatedAt = prior.CreatedAt
	}

	for stage, r := range results {
		if r == nil || r.Validate() != nil {
			// Non-required malformed results are simply not recorded.
			continue
		}
		keys := append([]string(nil), r.ProducedKeys...)
		sort.Strings(keys)
		m.StageCompletions[stage] = StageCompletion{
			Status:       r.Status,
			Timestamp:    r.Timestamp,
			ProducedKeys: keys,
		}
		if r.Status == stageresult.StatusDone {
			for _, key := range keys {
				m.Artifacts[fmt.Sprintf("%s/%s", stage, key)] = r.Artifacts[key]
			}
		}
	}

	return m, nil
}

func rejectionReason(missing, failed, blocked, malformed []string) string {
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing: %s", strings.Join(missing, ", ")))
	}
	if len(failed) > 0 {
		parts = append(parts, fmt.Sprintf("failed: %s", strings.Join(failed, ", ")))
	}
	if len(blocked) > 0 {
		parts = append(parts, fmt.Sprintf("blocked: %s", strings.Join(blocked, ", ")))
	}
	if len(malformed) > 0 {
		parts = append(parts, fmt.Sprintf("malformed: %s", strings.Join(malformed, ", ")))
	}
	return "manifest update rejected; " + strings.Join(parts, "; ")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
