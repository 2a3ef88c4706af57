package migrations

import (
	"database/sql"
	_ "embed"

	"github.com/BuidlGuidl/ethereum-bazaar/internal/db"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/logger"
)

//go:embed 001_sync_state.sql
var mig0001 string

// RunMigrations creates the checkpoint table of the downloader database.
func RunMigrations(log *logger.Logger, database *sql.DB) error {
	return db.RunMigrationsDB(log, database, []db.Migration{
		{ID: "001_sync_state.sql", SQL: mig0001},
	})
}
