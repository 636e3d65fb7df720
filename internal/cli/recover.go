package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/loopctl/internal/ports/primary"
	"github.com/example/loopctl/internal/wire"
)

// RecoverCmd returns the recover command
func RecoverCmd() *cobra.Command {
	var business, runID, stage string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Decide and apply the recovery action for a stage",
		Long: `Inspect a stage's derived status and decide how to recover it: resume
a blocked stage, restart an interrupted one, or do nothing. Unless
--dry-run is given, the chosen action is applied by appending the
appropriate event to the run's log.

Examples:
  loopctl recover -b BRIK -r SFS-BRIK-20260213-1200 --stage S4 --dry-run
  loopctl recover -b BRIK -r SFS-BRIK-20260213-1200 --stage S4`,
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

			decision, err := wire.RunService().Recover(context.Background(), primary.RecoverRequest{
				Business:    biz,
				RunID:       runID,
				TargetStage: stage,
				DryRun:      dryRun,
			})
			if err != nil {
				return fmt.Errorf("recover failed: %w", err)
			}

			fmt.Printf("Action: %s\n", decision.Action)
			fmt.Printf("Stage:  %s\n", decision.TargetStage)
			fmt.Printf("Reason: %s\n", decision.Reason)
			if dryRun {
				fmt.Println("Dry run: no event appended.")
			}
			return nil
		},
	}

	addRunFlags(cmd, &business, &runID)
	cmd.Flags().StringVarP(&stage, "stage", "s", "", "Stage to recover")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report the decision without appending events")
	return cmd
}
