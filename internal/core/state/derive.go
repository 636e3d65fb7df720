package state

import (
	"sort"

	"github.com/example/loopctl/internal/core/event"
)

// Derive replays an ordered event sequence into a fresh DerivedState.
// Every stage in knownStages is seeded as pending. Events addressing
// stages outside the registry are skipped, not rejected, so newer
// producers do not break older readers. run_aborted clears active_stage
// and nothing else.
func Derive(events []event.Event, knownStages []string, opts Options) *DerivedState {
	derived := &DerivedState{
		RunID:           opts.RunID,
		Business:        opts.Business,
		LoopSpecVersion: opts.LoopSpecVersion,
		Stages:          make(map[string]*StageState, len(knownStages)),
	}
	for _, stage := range knownStages {
		derived.Stages[stage] = &StageState{Name: stage, Status: StatusPending}
	}

	for _, e := range events {
		// Abort addresses the run, not a stage; handle before stage lookup.
		if e.Event == event.KindRunAborted {
			derived.ActiveStage = nil
			continue
		}

		st, ok := derived.Stages[e.Stage]
		if !ok {
			continue
		}

		switch e.Event {
		case event.KindStageStarted:
			st.Status = StatusActive
			st.Timestamp = e.Timestamp
			st.BlockingReason = nil
			stage := e.Stage
			derived.ActiveStage = &stage
		case event.KindStageCompleted:
			st.Status = StatusDone
			st.Timestamp = e.Timestamp
			st.Artifacts = sortedArtifactPaths(e.Artifacts)
		case event.KindStageBlocked:
			st.Status = StatusBlocked
			st.Timestamp = e.Timestamp
			st.BlockingReason = e.BlockingReason
		}
	}

	return derived
}

func sortedArtifactPaths(artifacts map[string]string) []string {
	if len(artifacts) == 0 {
		return nil
	}
	paths := make([]string, 0, len(artifacts))
	for _, p := range artifacts {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
