package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/example/loopctl/internal/adapters/filesystem"
	"github.com/example/loopctl/internal/config"
)

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	var baseDir, business string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config and scaffold a business directory",
		Long: `Create ~/.loopctl/config.yaml with the given base directory and, when
--business is given, scaffold the business's runs directory under the
canonical startup-baselines layout. Existing config is not overwritten.

Examples:
  loopctl init --base-dir ~/work/shop
  loopctl init --base-dir ~/work/shop --business BRIK`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Path()
			if err != nil {
				return err
			}

			if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
				cfg := config.Default()
				if baseDir != "" {
					cfg.BaseDir = baseDir
				}
				if business != "" {
					cfg.DefaultBusiness = business
				}
				if err := config.Save(cfg); err != nil {
					return fmt.Errorf("failed to write config: %w", err)
				}
				fmt.Printf("Wrote %s\n", path)
			} else {
				fmt.Printf("Config already exists at %s, leaving it unchanged.\n", path)
			}

			if business != "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				paths := filesystem.Paths{BaseDir: cfg.BaseDir}
				runsDir := paths.RunsDir(business)
				if err := os.MkdirAll(runsDir, 0755); err != nil {
					return fmt.Errorf("failed to scaffold business dir: %w", err)
				}
				cardsDir := filepath.Join(cfg.BaseDir, "docs", "business-os", "cards")
				if err := os.MkdirAll(cardsDir, 0755); err != nil {
					return fmt.Errorf("failed to scaffold cards dir: %w", err)
				}
				fmt.Printf("Scaffolded %s\n", paths.BusinessDir(business))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&baseDir, "base-dir", "", "Root of the business-os document tree")
	cmd.Flags().StringVarP(&business, "business", "b", "", "Business code to scaffold")
	return cmd
}
