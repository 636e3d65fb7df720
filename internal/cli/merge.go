package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/loopctl/internal/core/stageresult"
	"github.com/example/loopctl/internal/ports/primary"
	"github.com/example/loopctl/internal/wire"
)

// MergeCmd returns the merge command
func MergeCmd() *cobra.Command {
	var business, runID, stage string

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Run the barrier merge for a join stage",
		Long: `Check a join stage's upstream requirements and, when all required
inputs are done, compose the downstream artifact deterministically.
When any input is missing, failed, or blocked, the stage is recorded
as blocked with every accumulated reason and no artifact is written.

Examples:
  loopctl merge --business BRIK --run SFS-BRIK-20260213-1200 --stage S4
  loopctl merge -b BRIK -r SFS-BRIK-20260213-1200 --stage S8`,
		RunE: func(cmd *cobra.Command, args []string) error {
			biz, err := resolveBusiness(business)
			if err != nil {
				return err
			}
			if err := requireRun(runID); err != nil {
				return err
			}
			if stage == "" {
				return fmt.Errorf("no stage given: pass --stage")
			}

			result, err := wire.MergeService().Merge(context.Background(), primary.MergeRequest{Business: biz, RunID: runID, Stage: stage})
			if err != nil {
				return fmt.Errorf("merge failed: %w", err)
			}

			printMergeResult(result)
			if result.Status == stageresult.StatusBlocked {
				return fmt.Errorf("merge blocked")
			}
			return nil
		},
	}

	addRunFlags(cmd, &business, &runID)
	cmd.Flags().StringVarP(&stage, "stage", "s", "", "Join stage to merge (e.g. S4, S8)")
	return cmd
}

func printMergeResult(result *primary.MergeResult) {
	fmt.Printf("Stage %s: %s\n", result.Stage, result.Status)
	if result.OutputPath != "" {
		fmt.Printf("  Output: %s\n", result.OutputPath)
	}
	for _, reason := range result.BlockingReasons {
		fmt.Printf("  Blocked: %s\n", reason)
	}
	if result.Error != "" {
		fmt.Printf("  Error: %s\n", result.Error)
	}
}
