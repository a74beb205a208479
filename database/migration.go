package database

import (
	"database/sql"
	"embed"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/mbolis/formify/log"
	"github.com/pkg/errors"
)

//go:embed migrations
var dbMigrations embed.FS

// migrateDB applies every embedded migration not yet recorded in
// schema_migrations. A dirty schema is reported, never forced.
func migrateDB(db *sql.DB) error {
	src, err := iofs.New(dbMigrations, "migrations")
	if err != nil {
		return errors.Wrap(err, "db.migrate.source")
	}

	dst, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return errors.Wrap(err, "db.migrate.driver")
	}

	migrator, err := migrate.NewWithInstance("iofs", src, "sqlite3", dst)
	if err != nil {
		return errors.Wrap(err, "db.migrate.init")
	}

	err = migrator.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Debug("db.migrate: schema up to date")
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "db.migrate.up")
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		return errors.Wrap(err, "db.migrate.version")
	}
	if dirty {
		return errors.Errorf("db.migrate: schema version %d is dirty", version)
	}
	log.Infof("db.migrate: schema at version %d", version)
	return nil
}
