// Package migrate provides database migration support using golang-migrate.
package migrate

import (
	"database/sql"
	"embed"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Run executes all pending database migrations. It applies migrations in
// order and is idempotent - already applied migrations are skipped.
func Run(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return errors.Wrap(err, "[migrate.Run] creating postgres driver")
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return errors.Wrap(err, "[migrate.Run] creating migration source")
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return errors.Wrap(err, "[migrate.Run] creating migrator")
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "[migrate.Run] running migrations")
	}
	return nil
}
