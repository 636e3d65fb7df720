package recovery

import (
	"strings"
	"testing"

	"github.com/example/loopctl/internal/core/state"
)

func strPtr(s string) *string { return &s }

func derivedFixture() *state.DerivedState {
	return &state.DerivedState{
		RunID: "SFS-TEST-20260213-1200",
		Stages: map[string]*state.StageState{
			"S0": {Name: "S0", Status: state.StatusDone},
			"S3": {Name: "S3", Status: state.StatusPending},
			"S4": {Name: "S4", Status: state.StatusBlocked, BlockingReason: strPtr("S3 not done")},
			"S6": {Name: "S6", Status: state.StatusActive},
		},
	}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name       string
		stage      string
		wantAction Action
		wantReason string
	}{
		{"unknown stage", "S99", ActionNoAction, "not part of this loop"},
		{"done stage", "S0", ActionNoAction, "already complete"},
		{"blocked stage resumes", "S4", ActionResume, "S3 not done"},
		{"active stage resumes", "S6", ActionResume, "may be stalled"},
		{"pending stage restarts", "S3", ActionRestart, "never started"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := Decide(derivedFixture(), tt.stage)
			if decision.Action != tt.wantAction {
				t.Errorf("action = %s, want %s", decision.Action, tt.wantAction)
			}
			if decision.TargetStage != tt.stage {
				t.Errorf("target = %s", decision.TargetStage)
			}
			if !strings.Contains(decision.Reason, tt.wantReason) {
				t.Errorf("reason = %q, want containing %q", decision.Reason, tt.wantReason)
			}
		})
	}
}
