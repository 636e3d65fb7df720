package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/loopctl/internal/core/replan"
	"github.com/example/loopctl/internal/wire"
)

// ReplanCmd returns the replan command group
func ReplanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replan",
		Short: "Inspect and acknowledge the replan trigger",
	}
	cmd.AddCommand(replanShowCmd())
	cmd.AddCommand(replanAckCmd())
	return cmd
}

func replanShowCmd() *cobra.Command {
	var business string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the business's replan trigger",
		RunE: func(cmd *cobra.Command, args []string) error {
			biz, err := resolveBusiness(business)
			if err != nil {
				return err
			}

			trigger, err := wire.TriggerService().Get(context.Background(), biz)
			if err != nil {
				return fmt.Errorf("failed to read trigger: %w", err)
			}
			if trigger == nil {
				fmt.Println("No replan trigger.")
				return nil
			}
			printTrigger(trigger)
			return nil
		},
	}

	cmd.Flags().StringVarP(&business, "business", "b", "", "Business code (defaults to config default_business)")
	return cmd
}

func replanAckCmd() *cobra.Command {
	var business string

	cmd := &cobra.Command{
		Use:   "ack",
		Short: "Acknowledge an open replan trigger",
		Long: `Flip an open trigger to acknowledged. Acknowledged triggers stay
sticky while the constraint persists and are not re-opened by
subsequent diagnoses of the same constraint.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			biz, err := resolveBusiness(business)
			if err != nil {
				return err
			}

			trigger, err := wire.TriggerService().Acknowledge(context.Background(), biz)
			if err != nil {
				return fmt.Errorf("acknowledge failed: %w", err)
			}
			fmt.Println("Trigger acknowledged.")
			printTrigger(trigger)
			return nil
		},
	}

	cmd.Flags().StringVarP(&business, "business", "b", "", "Business code (defaults to config default_business)")
	return cmd
}

func printTrigger(t *replan.Trigger) {
	fmt.Printf("Status:     %s\n", t.Status)
	fmt.Printf("Constraint: %s (%s)\n", t.Constraint.ConstraintKey, t.Constraint.Severity)
	fmt.Printf("Created:    %s\n", t.CreatedAt)
	fmt.Printf("Evaluated:  %s\n", t.LastEvaluatedAt)
	fmt.Printf("Runs:       %v\n", t.RunHistory)
	fmt.Printf("Reason:     %s\n", t.Reason)
	fmt.Printf("Focus:      %s\n", t.RecommendedFocus)
	if t.ReopenedCount > 0 {
		fmt.Printf("Reopened:   %d times\n", t.ReopenedCount)
	}
}
