package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/loopctl/internal/ports/primary"
	"github.com/example/loopctl/internal/wire"
)

// EventsCmd returns the events command group
func EventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect a run's event log",
	}
	cmd.AddCommand(eventsValidateCmd())
	return cmd
}

func eventsValidateCmd() *cobra.Command {
	var business, runID string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the event log and report every defect",
		Long: `Validate a run's event log against the event schema and ordering
rules. All defects are accumulated and reported in one pass. Exits
non-zero when the log is invalid.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			biz, err := resolveBusiness(business)
			if err != nil {
				return err
			}
			if err := requireRun(runID); err != nil {
				return err
			}

			result, err := wire.RunService().ValidateEvents(context.Background(), primary.RunRequest{Business: biz, RunID: runID})
			if err != nil {
				return fmt.Errorf("failed to validate events: %w", err)
			}

			if result.Valid {
				fmt.Println("Event log is valid.")
				return nil
			}

			fmt.Printf("Event log has %d defect(s):\n", len(result.Errors))
			for _, e := range result.Errors {
				fmt.Printf("  - %s\n", e)
			}
			return fmt.Errorf("event log validation failed")
		},
	}

	addRunFlags(cmd, &business, &runID)
	return cmd
}
