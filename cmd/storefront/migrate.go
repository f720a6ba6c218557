package main

import (
	"fmt"
	"github.com/nikolayk812/storefront/internal/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the cart snapshot schema",
	}

	run := func(name string, fn func(dsn string) error) *cobra.Command {
		return &cobra.Command{
			Use:   name,
			Short: fmt.Sprintf("Run %s migrations against STOREFRONT_POSTGRES_DSN", name),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, logger, err := opts.load()
				if err != nil {
					return err
				}
				defer func() { _ = logger.Sync() }()

				if err := fn(cfg.PostgresDSN); err != nil {
					return fmt.Errorf("migrations.%s: %w", name, err)
				}

				logger.Info("Migrations applied", zap.String("direction", name))
				return nil
			},
		}
	}

	cmd.AddCommand(run("up", migrations.Up), run("down", migrations.Down))

	return cmd
}
