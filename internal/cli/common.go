// Package cli implements the loopctl command tree. Each command is a
// thin translator: parse flags, call a wire service, print the result.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/loopctl/internal/wire"
)

// addRunFlags registers the --business and --run flags shared by every
// run-scoped command.
func addRunFlags(cmd *cobra.Command, business, runID *string) {
	cmd.Flags().StringVarP(business, "business", "b", "", "Business code (defaults to config default_business)")
	cmd.Flags().StringVarP(runID, "run", "r", "", "Run ID (e.g. SFS-BRIK-20260213-1200)")
}

// resolveBusiness falls back to the configured default business.
func resolveBusiness(business string) (string, error) {
	if business != "" {
		return business, nil
	}
	if def := wire.Config().DefaultBusiness; def != "" {
		return def, nil
	}
	return "", fmt.Errorf("no business given: pass --business or set default_business in config")
}

// requireRun validates the mandatory --run flag.
func requireRun(runID string) error {
	if runID == "" {
		return fmt.Errorf("no run given: pass --run")
	}
	return nil
}
