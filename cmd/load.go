package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"datamart/config"
	"datamart/internal/loader"
)

func newLoadCmd(cfg *config.Config) *cobra.Command {
	var (
		source   string
		kind     string
		truncate bool
	)

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Bulk-load a CSV extract into a data mart table",
		Example: "  datamart load --kind lojas --source data/lojas.csv\n" +
			"  datamart load --kind vendas --source s3://extracts/vendas-2024.csv --truncate",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			if source == "" {
				source = cfg.Loader.Source
			}
			if kind == "" {
				kind = cfg.Loader.Kind
			}
			if source == "" {
				return fmt.Errorf("--source or LOADER_SOURCE is required")
			}
			k, err := loader.ParseKind(kind)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := openStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			wh, err := st.writable()
			if err != nil {
				return err
			}

			l := loader.New(wh, cfg.Loader.BatchSize)
			l.SetProgressOutput(os.Stderr)
			stats, err := l.LoadURI(ctx, loader.NewSources(cfg.Loader), source, k, truncate)
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: read %d, loaded %d, skipped %d\n", k, stats.Read, stats.Loaded, stats.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "file path or s3://, gs://, az:// URI (default LOADER_SOURCE)")
	cmd.Flags().StringVar(&kind, "kind", "", "target table: produtos, lojas, vendas or estoque (default LOADER_KIND)")
	cmd.Flags().BoolVar(&truncate, "truncate", false, "empty the target table before loading")
	return cmd
}
