package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brightpath-mentoring/mentorsync/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "mentorsync",
	Short: "Mentor data reconciliation pipeline",
	Long:  "Collapses duplicate mentor signups, matches them against CRM contacts, merges enrichment data, and records undecidable cases as conflicts for human review.",
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
