package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/loopctl/internal/core/bottleneck"
	"github.com/example/loopctl/internal/ports/primary"
	"github.com/example/loopctl/internal/wire"
)

// DiagnoseCmd returns the diagnose command
func DiagnoseCmd() *cobra.Command {
	var business, runID string
	var snapshotOnly bool

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Run the bottleneck diagnosis pipeline for a run",
		Long: `Extract funnel metrics from the run's stage artifacts, identify the
binding constraint, and persist the diagnosis snapshot. The full
pipeline also appends to the bottleneck history ledger, checks
constraint persistence over the rolling window, and evaluates the
replan trigger. Only snapshot generation failure aborts; later step
failures surface as warnings.

Examples:
  loopctl diagnose -b BRIK -r SFS-BRIK-20260213-1200
  loopctl diagnose -b BRIK -r SFS-BRIK-20260213-1200 --snapshot-only`,
		RunE: func(cmd *cobra.Command, args []string) error {
			biz, err := resolveBusiness(business)
			if err != nil {
				return err
			}
			if err := requireRun(runID); err != nil {
				return err
			}
			req := primary.DiagnosisRequest{Business: biz, RunID: runID}
			ctx := context.Background()

			if snapshotOnly {
				snapshot, err := wire.DiagnosisService().Snapshot(ctx, req)
				if err != nil {
					return fmt.Errorf("diagnosis failed: %w", err)
				}
				printSnapshot(snapshot)
				return nil
			}

			result, err := wire.DiagnosisService().Run(ctx, req)
			if err != nil {
				return fmt.Errorf("diagnosis failed: %w", err)
			}

			printSnapshot(result.Snapshot)
			if result.PersistenceCheck != nil && result.PersistenceCheck.Persistent {
				fmt.Println("Constraint is persistent across the rolling window.")
			}
			if result.ReplanTrigger != nil {
				fmt.Printf("Replan trigger: %s (%s)\n", result.ReplanTrigger.Status, result.ReplanTrigger.Reason)
			}
			if result.ArtifactPointer != "" {
				fmt.Printf("Artifact pointer: %s\n", result.ArtifactPointer)
			}
			for _, w := range result.Warnings {
				fmt.Println(color.New(color.FgYellow).Sprintf("Warning: %s", w))
			}
			return nil
		},
	}

	addRunFlags(cmd, &business, &runID)
	cmd.Flags().BoolVar(&snapshotOnly, "snapshot-only", false, "Generate the snapshot without history or trigger updates")
	return cmd
}

func printSnapshot(s *bottleneck.Snapshot) {
	fmt.Printf("Diagnosis: %s [%s]\n", s.RunID, s.DiagnosisStatus)
	if s.IdentifiedConstraint != nil {
		c := s.IdentifiedConstraint
		fmt.Printf("  Constraint: %s (%s, severity %s, miss %.2f)\n", c.ConstraintKey, c.ConstraintType, c.Severity, c.Miss)
		fmt.Printf("  Reasoning:  %s\n", c.Reasoning)
	}
	if len(s.RankedConstraints) > 1 {
		fmt.Println("  Ranked:")
		for _, rc := range s.RankedConstraints {
			fmt.Printf("    %d. %s (%s)\n", rc.Rank, rc.ConstraintKey, rc.Severity)
		}
	}
	if cmp := s.ComparisonToPriorRun; cmp != nil {
		change := "unchanged"
		if cmp.ConstraintChanged {
			change = "changed"
		}
		fmt.Printf("  Versus prior run %s: constraint %s\n", cmp.PriorRunID, change)
	}
	dq := s.DataQuality
	if len(dq.MissingTargets) > 0 || len(dq.MissingActuals) > 0 {
		fmt.Printf("  Data quality: %d missing targets, %d missing actuals\n", len(dq.MissingTargets), len(dq.MissingActuals))
	}
}
