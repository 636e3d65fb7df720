package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/loopctl/internal/core/loopspec"
	"github.com/example/loopctl/internal/core/state"
	"github.com/example/loopctl/internal/ports/primary"
	"github.com/example/loopctl/internal/wire"
)

// StatusCmd returns the status command
func StatusCmd() *cobra.Command {
	var business, runID string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the derived state of a run",
		Long: `Replay a run's event log and display the derived per-stage state.

Derivation is read-only: the event log is the source of truth and
nothing is written. Unknown stages in the log are ignored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			biz, err := resolveBusiness(business)
			if err != nil {
				return err
			}
			if err := requireRun(runID); err != nil {
				return err
			}

			derived, err := wire.RunService().DeriveState(context.Background(), primary.RunRequest{Business: biz, RunID: runID})
			if err != nil {
				return fmt.Errorf("failed to derive state: %w", err)
			}

			fmt.Printf("Run:      %s\n", derived.RunID)
			fmt.Printf("Business: %s\n", derived.Business)
			fmt.Printf("Loop:     %s\n", derived.LoopSpecVersion)
			if derived.ActiveStage != nil {
				fmt.Printf("Active:   %s\n", *derived.ActiveStage)
			} else {
				fmt.Printf("Active:   (none)\n")
			}
			fmt.Println()

			for _, stage := range loopspec.Default().Stages {
				printStage(derived.Stages[stage])
			}
			return nil
		},
	}

	addRunFlags(cmd, &business, &runID)
	return cmd
}

func printStage(st *state.StageState) {
	if st == nil {
		return
	}
	fmt.Printf("  %-4s %s", st.Name, colorStatus(st.Status))
	if st.Timestamp != "" {
		fmt.Printf("  %s", st.Timestamp)
	}
	if st.BlockingReason != nil {
		fmt.Printf("  (%s)", *st.BlockingReason)
	}
	if len(st.Artifacts) > 0 {
		fmt.Printf("  %v", st.Artifacts)
	}
	fmt.Println()
}

func colorStatus(status state.StageStatus) string {
	switch status {
	case state.StatusDone:
		return color.New(color.FgHiGreen).Sprintf("%-8s", status)
	case state.StatusActive:
		return color.New(color.FgCyan).Sprintf("%-8s", status)
	case state.StatusBlocked:
		return color.New(color.FgYellow).Sprintf("%-8s", status)
	default:
		return fmt.Sprintf("%-8s", status)
	}
}
