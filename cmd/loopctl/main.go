package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/loopctl/internal/cli"
	"github.com/example/loopctl/internal/config"
	"github.com/example/loopctl/internal/logging"
	"github.com/example/loopctl/internal/version"
)

func main() {
	var debug bool

	rootCmd := &cobra.Command{
		Use:     "loopctl",
		Short:   "loopctl - control plane for the startup loop pipeline",
		Version: version.String(),
		Long: `loopctl drives the startup loop: it derives run state from event logs,
runs barrier merges for join stages, maintains the baseline manifest,
diagnoses the funnel bottleneck, and evaluates the replan trigger.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if cfg, err := config.Load(); err == nil && cfg.Debug {
				debug = true
			}
			logging.Init(debug)
		},
	}
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	// Add subcommands
	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.DoctorCmd())
	rootCmd.AddCommand(cli.StatusCmd())
	rootCmd.AddCommand(cli.EventsCmd())
	rootCmd.AddCommand(cli.MergeCmd())
	rootCmd.AddCommand(cli.PublishCmd())
	rootCmd.AddCommand(cli.ManifestCmd())
	rootCmd.AddCommand(cli.DiagnoseCmd())
	rootCmd.AddCommand(cli.HistoryCmd())
	rootCmd.AddCommand(cli.ReplanCmd())
	rootCmd.AddCommand(cli.RecoverCmd())
	rootCmd.AddCommand(cli.AbortCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
