package migrations

import (
	"database/sql"
	_ "embed"

	"github.com/BuidlGuidl/ethereum-bazaar/internal/db"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/logger"
)

//go:embed 001_listings.sql
var mig0001 string

//go:embed 002_reviews.sql
var mig0002 string

// All returns the marketplace schema migrations in order.
func All() []db.Migration {
	return []db.Migration{
		{ID: "001_listings.sql", SQL: mig0001},
		{ID: "002_reviews.sql", SQL: mig0002},
	}
}

// RunMigrations runs all migrations for the marketplace database.
func RunMigrations(log *logger.Logger, database *sql.DB) error {
	return db.RunMigrationsDB(log, database, All())
}
