package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/practice-audit/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "practice-audit",
	Short: "Website and market audits for medical practices",
	Long:  "Collects site performance, security, branding and market signals for a practice, then synthesizes a staged diagnostic report, sales pitch and ad campaign with a generation engine.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
