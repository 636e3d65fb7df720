package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/loopctl/internal/ports/primary"
	"github.com/example/loopctl/internal/wire"
)

// ManifestCmd returns the manifest command group
func ManifestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Derive the run's baseline manifest",
	}
	cmd.AddCommand(manifestUpdateCmd())
	return cmd
}

func manifestUpdateCmd() *cobra.Command {
	var business, runID string
	var required []string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Re-derive the manifest from discovered stage results",
		Long: `Scan the run directory for stage results and re-derive the baseline
manifest. Any defect on a required stage refuses the whole derivation
and leaves the previous manifest untouched. With no --required flags
the loop spec's join stages are required.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			biz, err := resolveBusiness(business)
			if err != nil {
				return err
			}
			if err := requireRun(runID); err != nil {
				return err
			}

			resp, err := wire.ManifestService().Update(context.Background(), primary.UpdateManifestRequest{
				Business:       biz,
				RunID:          runID,
				RequiredStages: required,
			})
			if err != nil {
				return fmt.Errorf("manifest update failed: %w", err)
			}

			if resp.Rejection != nil {
				rej := resp.Rejection
				fmt.Printf("Manifest rejected: %s\n", rej.Reason)
				printDefects("missing", rej.Missing)
				printDefects("failed", rej.Failed)
				printDefects("blocked", rej.Blocked)
				printDefects("malformed", rej.Malformed)
				return fmt.Errorf("manifest derivation refused")
			}

			m := resp.Manifest
			fmt.Printf("Manifest written: %s [%s]\n", m.RunID, m.Status)
			fmt.Printf("  Stages:    %d completed\n", len(m.StageCompletions))
			fmt.Printf("  Artifacts: %d\n", len(m.Artifacts))
			fmt.Printf("  Updated:   %s\n", m.UpdatedAt)
			return nil
		},
	}

	addRunFlags(cmd, &business, &runID)
	cmd.Flags().StringSliceVar(&required, "required", nil, "Stages that must be present and valid")
	return cmd
}

func printDefects(kind string, stages []string) {
	for _, s := range stages {
		fmt.Printf("  - %s: %s\n", s, kind)
	}
}
