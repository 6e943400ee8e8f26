package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DogStark/petchain-anchor/db"
	"github.com/DogStark/petchain-anchor/errors"
	"github.com/DogStark/petchain-anchor/logger"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the sync-state database",
	Long: `Manage sync-state database operations.

Examples:
  petchain-anchor db migrate   # Apply schema migrations
  petchain-anchor db stats     # Show sync-state statistics`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations",
	RunE:  runDbMigrate,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show sync-state statistics",
	RunE:  runDbStats,
}

func init() {
	DbCmd.AddCommand(dbMigrateCmd)
	DbCmd.AddCommand(dbStatsCmd)
}

func runDbMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	database, err := db.Open(cfg.Database.Path, logger.Logger)
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer database.Close()

	if err := db.Migrate(database, logger.Logger); err != nil {
		return errors.Wrap(err, "failed to migrate database")
	}

	fmt.Println("Migrations applied")
	return nil
}

func runDbStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	database, err := db.Open(cfg.Database.Path, logger.Logger)
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer database.Close()

	if err := db.Migrate(database, logger.Logger); err != nil {
		return errors.Wrap(err, "failed to migrate database")
	}

	var total, synced, pending, failed, retries int
	err = database.QueryRow(`
		SELECT
			COUNT(*),
			COUNT(CASE WHEN status = 'SYNCED' THEN 1 END),
			COUNT(CASE WHEN status = 'PENDING' THEN 1 END),
			COUNT(CASE WHEN status = 'FAILED' THEN 1 END),
			COALESCE(SUM(retry_count), 0)
		FROM sync_records
	`).Scan(&total, &synced, &pending, &failed, &retries)
	if err != nil {
		return errors.Wrap(err, "failed to query sync stats")
	}

	fmt.Println("Sync-State Statistics")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Database Path:  %s\n", cfg.Database.Path)
	fmt.Printf("Total Records:  %d\n", total)
	fmt.Printf("Synced:         %d\n", synced)
	fmt.Printf("Pending:        %d\n", pending)
	fmt.Printf("Failed:         %d\n", failed)
	fmt.Printf("Total Retries:  %d\n", retries)

	return nil
}
