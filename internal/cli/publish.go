package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/loopctl/internal/core/stageresult"
	"github.com/example/loopctl/internal/ports/primary"
	"github.com/example/loopctl/internal/wire"
)

// PublishCmd returns the publish command
func PublishCmd() *cobra.Command {
	var business, runID, stage, upstream, artifact, cardID string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish an upstream artifact to the card store",
		Long: `Gate on a single upstream stage being done with the named artifact,
then upsert the composed content to the external card store. A partial
failure is recorded as a failed stage result; re-running retries the
whole publish from scratch.

Example:
  loopctl publish -b BRIK -r SFS-BRIK-20260213-1200 \
    --stage S9 --upstream S4 --artifact handoff --card BRIK-PLAN-0007`,
		RunE: func(cmd *cobra.Command, args []string) error {
			biz, err := resolveBusiness(business)
			if err != nil {
				return err
			}
			if err := requireRun(runID); err != nil {
				return err
			}
			if stage == "" || upstream == "" || artifact == "" || cardID == "" {
				return fmt.Errorf("publish requires --stage, --upstream, --artifact, and --card")
			}

			result, err := wire.MergeService().Publish(context.Background(), primary.PublishRequest{
				Business:      biz,
				RunID:         runID,
				Stage:         stage,
				UpstreamStage: upstream,
				ArtifactKey:   artifact,
				CardID:        cardID,
			})
			if err != nil {
				return fmt.Errorf("publish failed: %w", err)
			}

			printMergeResult(result)
			if result.Status != stageresult.StatusDone {
				return fmt.Errorf("publish did not complete")
			}
			fmt.Printf("  Card: %s\n", cardID)
			return nil
		},
	}

	addRunFlags(cmd, &business, &runID)
	cmd.Flags().StringVarP(&stage, "stage", "s", "", "Stage recording the publish outcome (e.g. S9)")
	cmd.Flags().StringVar(&upstream, "upstream", "", "Upstream stage whose artifact is published")
	cmd.Flags().StringVar(&artifact, "artifact", "", "Upstream artifact key (e.g. handoff)")
	cmd.Flags().StringVar(&cardID, "card", "", "Card ID to publish under")
	return cmd
}
