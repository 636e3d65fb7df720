package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/loopctl/internal/core/bottleneck"
	"github.com/example/loopctl/internal/ports/primary"
	"github.com/example/loopctl/internal/wire"
)

// HistoryCmd returns the history command group
func HistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the bottleneck history ledger",
	}
	cmd.AddCommand(historyListCmd())
	cmd.AddCommand(historyReindexCmd())
	cmd.AddCommand(historyQueryCmd())
	return cmd
}

func historyListCmd() *cobra.Command {
	var business string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show recent ledger entries, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			biz, err := resolveBusiness(business)
			if err != nil {
				return err
			}

			entries, err := wire.HistoryService().Recent(context.Background(), biz, limit)
			if err != nil {
				return fmt.Errorf("failed to read history: %w", err)
			}
			if len(entries) == 0 {
				fmt.Println("No history entries.")
				return nil
			}
			for _, e := range entries {
				printEntry(e)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&business, "business", "b", "", "Business code (defaults to config default_business)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of trailing entries to show")
	return cmd
}

func historyReindexCmd() *cobra.Command {
	var business string

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the query index from the ledger file",
		Long: `Replace the business's rows in the local query index with the current
contents of its ledger file. The ledger is authoritative; the index is
a disposable cache and can be rebuilt at any time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			biz, err := resolveBusiness(business)
			if err != nil {
				return err
			}

			count, err := wire.HistoryService().Reindex(context.Background(), biz)
			if err != nil {
				return fmt.Errorf("reindex failed: %w", err)
			}
			fmt.Printf("Indexed %d entries for %s.\n", count, biz)
			return nil
		},
	}

	cmd.Flags().StringVarP(&business, "business", "b", "", "Business code (defaults to config default_business)")
	return cmd
}

func historyQueryCmd() *cobra.Command {
	var business, severity string
	var limit int

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query indexed entries with filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			biz, err := resolveBusiness(business)
			if err != nil {
				return err
			}

			entries, err := wire.HistoryService().Query(context.Background(), primary.HistoryFilters{
				Business: biz,
				Severity: severity,
				Limit:    limit,
			})
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}
			if len(entries) == 0 {
				fmt.Println("No matching entries.")
				return nil
			}
			for _, e := range entries {
				printEntry(e)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&business, "business", "b", "", "Business code (defaults to config default_business)")
	cmd.Flags().StringVar(&severity, "severity", "", "Filter by severity (minor, moderate, critical)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum entries to return (0 = all)")
	return cmd
}

func printEntry(e bottleneck.Entry) {
	fmt.Printf("%s  %-22s %-18s %-24s %s\n", e.Timestamp, e.RunID, e.DiagnosisStatus, e.ConstraintKey, e.Severity)
}
