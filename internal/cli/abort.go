package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/loopctl/internal/ports/primary"
	"github.com/example/loopctl/internal/wire"
)

// AbortCmd returns the abort command
func AbortCmd() *cobra.Command {
	var business, runID, operator, reason string

	cmd := &cobra.Command{
		Use:   "abort",
		Short: "Abort a run, recording the operator identity",
		Long: `Append a run_aborted event to the run's log. Partial artifacts are
left in place for inspection. The operator identity is mandatory and
recorded in the event's blocking reason.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			biz, err := resolveBusiness(business)
			if err != nil {
				return err
			}
			if err := requireRun(runID); err != nil {
				return err
			}
			if operator == "" {
				return fmt.Errorf("no operator given: pass --operator")
			}

			err = wire.RunService().Abort(context.Background(), primary.AbortRequest{
				Business: biz,
				RunID:    runID,
				Operator: operator,
				Reason:   reason,
			})
			if err != nil {
				return fmt.Errorf("abort failed: %w", err)
			}
			fmt.Printf("Run %s aborted by %s.\n", runID, operator)
			return nil
		},
	}

	addRunFlags(cmd, &business, &runID)
	cmd.Flags().StringVar(&operator, "operator", "", "Operator identity recorded in the abort event")
	cmd.Flags().StringVar(&reason, "reason", "", "Optional abort reason")
	return cmd
}
