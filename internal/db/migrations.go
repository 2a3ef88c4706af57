package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/BuidlGuidl/ethereum-bazaar/internal/logger"
	_ "github.com/mattn/go-sqlite3"
	migrate "github.com/rubenv/sql-migrate"
)

const (
	UpMarker   = "-- +migrate Up"
	DownMarker = "-- +migrate Down"

	// NoLimitMigrations applies every pending migration.
	NoLimitMigrations = 0

	dbPrefixReplacer = "/*dbprefix*/"
)

// Migration is one embedded SQL file. SQL holds a Down section followed by an Up section.
type Migration struct {
	ID     string
	SQL    string
	Prefix string
}

// RunMigrations opens dbPath and applies every pending migration.
func RunMigrations(dbPath string, migrations []Migration) error {
	db, err := NewSQLiteDB(dbPath)
	if err != nil {
		return fmt.Errorf("error creating DB %w", err)
	}
	defer db.Close()

	return RunMigrationsDB(logger.GetDefaultLogger(), db, migrations)
}

// RunMigrationsDB applies every pending migration on an open database.
func RunMigrationsDB(log *logger.Logger, db *sql.DB, migrations []Migration) error {
	return RunMigrationsDBExtended(log, db, migrations, migrate.Up, NoLimitMigrations)
}

// RunMigrationsDBExtended applies at most maxMigrations migrations in direction dir.
func RunMigrationsDBExtended(
	log *logger.Logger,
	db *sql.DB,
	migrations []Migration,
	dir migrate.MigrationDirection,
	maxMigrations int,
) error {
	if maxMigrations != NoLimitMigrations {
		migrate.SetIgnoreUnknown(true)
	}

	source := &migrate.MemoryMigrationSource{}
	ids := make([]string, 0, len(migrations))

	for _, m := range migrations {
		parsed, err := parseMigration(m)
		if err != nil {
			return err
		}
		source.Migrations = append(source.Migrations, parsed)
		ids = append(ids, parsed.Id)
	}

	applied, err := migrate.ExecMax(db, "sqlite3", source, dir, maxMigrations)
	if err != nil {
		return fmt.Errorf("error executing migrations [%s]: %w", strings.Join(ids, ", "), err)
	}

	log.Infof("applied %d of %d migrations [%s]", applied, len(ids), strings.Join(ids, ", "))
	return nil
}

func parseMigration(m Migration) (*migrate.Migration, error) {
	body := strings.ReplaceAll(m.SQL, dbPrefixReplacer, m.Prefix)

	down, up, found := strings.Cut(body, UpMarker)
	if !found {
		return nil, fmt.Errorf("migration %s missing %q separator", m.ID, UpMarker)
	}

	if _, after, ok := strings.Cut(down, DownMarker); ok {
		down = after
	}

	return &migrate.Migration{
		Id:   m.Prefix + m.ID,
		Up:   []string{strings.TrimSpace(up)},
		Down: []string{strings.TrimSpace(down)},
	}, nil
}
