package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/example/loopctl/internal/config"
	"github.com/example/loopctl/internal/db"
)

// CheckResult represents the outcome of a single check
type CheckResult struct {
	Name    string
	Status  string // "ok", "warn", "fail"
	Details string
}

// DoctorCmd returns the doctor command for environment validation
func DoctorCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate the loopctl environment",
		Long: `Environment health check for loopctl.

Validates:
- Config file presence and parseability
- Base directory and document tree layout
- Local index database

Examples:
  loopctl doctor           # Run full health check
  loopctl doctor --quiet   # Exit code only (0=healthy, 1=issues)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			results := []CheckResult{
				checkConfig(),
				checkBaseDir(),
				checkIndexDB(),
			}

			hasErrors := false
			for _, r := range results {
				if r.Status == "fail" {
					hasErrors = true
				}
			}

			if !quiet {
				fmt.Println()
				for _, r := range results {
					fmt.Printf("%-14s %s\n", r.Name, r.Status)
				}
				fmt.Println()
				for _, r := range results {
					if r.Status != "ok" && r.Details != "" {
						fmt.Printf("%s: %s\n", r.Name, r.Details)
					}
				}
				if !hasErrors {
					fmt.Println("All checks passed.")
				}
			}

			if hasErrors {
				return fmt.Errorf("environment validation failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Exit code only, no output")
	return cmd
}

func checkConfig() CheckResult {
	path, err := config.Path()
	if err != nil {
		return CheckResult{Name: "config", Status: "fail", Details: err.Error()}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return CheckResult{Name: "config", Status: "warn", Details: fmt.Sprintf("%s missing, using defaults (run loopctl init)", path)}
	}
	if _, err := config.Load(); err != nil {
		return CheckResult{Name: "config", Status: "fail", Details: err.Error()}
	}
	return CheckResult{Name: "config", Status: "ok"}
}

func checkBaseDir() CheckResult {
	cfg, err := config.Load()
	if err != nil {
		return CheckResult{Name: "base dir", Status: "fail", Details: err.Error()}
	}
	info, err := os.Stat(cfg.BaseDir)
	if err != nil || !info.IsDir() {
		return CheckResult{Name: "base dir", Status: "fail", Details: fmt.Sprintf("%s is not a directory", cfg.BaseDir)}
	}
	tree := filepath.Join(cfg.BaseDir, "docs", "business-os")
	if _, err := os.Stat(tree); os.IsNotExist(err) {
		return CheckResult{Name: "base dir", Status: "warn", Details: fmt.Sprintf("%s missing (run loopctl init --business <code>)", tree)}
	}
	return CheckResult{Name: "base dir", Status: "ok"}
}

func checkIndexDB() CheckResult {
	path, err := db.GetDBPath()
	if err != nil {
		return CheckResult{Name: "index db", Status: "fail", Details: err.Error()}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return CheckResult{Name: "index db", Status: "warn", Details: fmt.Sprintf("%s missing, created on first use", path)}
	}
	if _, err := db.GetDB(); err != nil {
		return CheckResult{Name: "index db", Status: "fail", Details: err.Error()}
	}
	return CheckResult{Name: "index db", Status: "ok"}
}
