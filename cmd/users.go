package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"datamart/config"
	"datamart/internal/auth"
	"datamart/internal/sqlstore"
)

func newCreateUserCmd(cfg *config.Config) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an API user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.ValidateServer(); err != nil {
				return err
			}
			ctx := cmd.Context()

			db, err := sqlstore.NewClient(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Migrate(ctx); err != nil {
				return err
			}

			svc, err := auth.NewService(db.DB(), cfg.Auth)
			if err != nil {
				return err
			}
			user, err := svc.CreateUser(ctx, username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %q created (id %d)\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&password, "password", "", "password (6 to 72 characters)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
