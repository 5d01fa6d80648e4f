package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"buckets/internal/config"
	"buckets/internal/storage"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQLite migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DataBackend != config.BackendSQLite {
				return fmt.Errorf("migrate needs DATA_BACKEND=sqlite, got %q", cfg.DataBackend)
			}
			version, err := storage.RunMigrations(cfg.SQLiteDBPath)
			if err != nil {
				return fmt.Errorf("migrate %s: %w", cfg.SQLiteDBPath, err)
			}
			logger.Info("Migrations applied", "db_path", cfg.SQLiteDBPath, "version", version)
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
			return nil
		},
	}
}
