package main

import (
	"errors"
	"fmt"

	"github.com/jrsteele09/go-tenant-server/store/postgres"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply (or with --down, revert) the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			url := a.config.GetDatabaseURL()
			if url == "" {
				return errors.New("DATABASE_URL is required to migrate")
			}
			pool, err := postgres.NewPool(cmd.Context(), url)
			if err != nil {
				return err
			}
			defer pool.Close()

			if down {
				if err := postgres.MigrateDown(cmd.Context(), pool); err != nil {
					return fmt.Errorf("migrate down: %w", err)
				}
				log.Info().Msg("schema dropped")
				return nil
			}
			applied, err := postgres.Migrate(cmd.Context(), pool)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info().Int("applied", applied).Msg("migrations complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "drop every table created by the migrations")
	return cmd
}
