package stageresult

import (
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }

func doneResult() *StageResult {
	return &StageResult{
		SchemaVersion:   SchemaVersion,
		RunID:           "SFS-TEST-20260213-1200",
		Stage:           "S3",
		LoopSpecVersion: "1.0.0",
		Status:          StatusDone,
		Timestamp:       "2026-02-13T12:00:00Z",
		ProducedKeys:    []string{"forecast"},
		Artifacts:       map[string]string{"forecast": "stages/S3/forecast.json"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*StageResult)
		wantErr string
	}{
		{"valid done", func(r *StageResult) {}, ""},
		{
			"done without produced keys",
			func(r *StageResult) { r.ProducedKeys = nil },
			"no produced_keys",
		},
		{
			"done with dangling produced key",
			func(r *StageResult) { r.ProducedKeys = []string{"forecast", "summary"} },
			`produced key "summary" missing`,
		},
		{
			"failed without error",
			func(r *StageResult) {
				r.Status = StatusFailed
				r.ProducedKeys = nil
			},
			"failed with no error",
		},
		{
			"failed with error",
			func(r *StageResult) {
				r.Status = StatusFailed
				r.ProducedKeys = nil
				r.Error = strPtr("card upsert rejected")
			},
			"",
		},
		{
			"blocked without reason",
			func(r *StageResult) {
				r.Status = StatusBlocked
				r.ProducedKeys = nil
			},
			"blocked with no blocking_reason",
		},
		{
			"blocked with reason",
			func(r *StageResult) {
				r.Status = StatusBlocked
				r.ProducedKeys = nil
				r.BlockingReason = strPtr("S2 stage-result missing")
			},
			"",
		},
		{
			"unknown status",
			func(r *StageResult) { r.Status = Status("completed") },
			"unknown status",
		},
		{
			"wrong schema version",
			func(r *StageResult) { r.SchemaVersion = 7 },
			"unsupported schema_version",
		},
		{
			"missing run id",
			func(r *StageResult) { r.RunID = "" },
			"missing required identity fields",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := doneResult()
			tt.mutate(r)
			err := r.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
