package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"datamart/config"
	"datamart/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg config.Config

	root := &cobra.Command{
		Use:           "datamart",
		Short:         "Sales and stock data mart: analytics API, fact workers and bulk loader",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.LoadConfig()
			if err != nil {
				return err
			}
			cfg = *loaded
			if err := logger.Init(cfg.Log); err != nil {
				return fmt.Errorf("failed to init logger: %w", err)
			}
			return nil
		},
	}

	root.AddCommand(
		newServeCmd(&cfg),
		newWorkersCmd(&cfg),
		newLoadCmd(&cfg),
		newCreateUserCmd(&cfg),
	)
	return root
}
