package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/progress-service/internal/server"
	pgstore "github.com/JakeFAU/progress-service/internal/storage/postgres"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres schema migrations.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck // best-effort flush

			if cfg.DB.DSN == "" {
				return errors.New("db.dsn must be set to run migrations")
			}
			store, err := server.OpenPostgres(cmd.Context(), cfg.DB)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck // pool close never fails

			if err := pgstore.Migrate(cmd.Context(), store.Pool()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info("migrations applied", zap.String("store", cfg.Store.Backend))
			return nil
		},
	}
}
