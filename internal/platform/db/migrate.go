package db

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// MigrateDirection selects which way migrations run.
type MigrateDirection string

const (
	MigrateUp   MigrateDirection = "up"
	MigrateDown MigrateDirection = "down"
)

// Migrate applies the embedded migrations in source to the database at dsn.
// It reports whether any migration was applied.
func Migrate(dsn string, source fs.FS, direction MigrateDirection) (bool, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return false, fmt.Errorf("platform/db: open migration conn: %w", err)
	}
	defer func() { _ = conn.Close() }()
	if err := conn.Ping(); err != nil {
		return false, fmt.Errorf("platform/db: ping migration conn: %w", err)
	}

	driver, err := postgres.WithInstance(conn, &postgres.Config{})
	if err != nil {
		return false, fmt.Errorf("platform/db: migration driver: %w", err)
	}
	src, err := iofs.New(source, ".")
	if err != nil {
		return false, fmt.Errorf("platform/db: migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return false, fmt.Errorf("platform/db: migrate instance: %w", err)
	}

	switch direction {
	case MigrateDown:
		err = m.Down()
	default:
		err = m.Up()
	}
	applied := !errors.Is(err, migrate.ErrNoChange)
	if err != nil && applied {
		return false, fmt.Errorf("platform/db: migrate %s: %w", direction, err)
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return applied, fmt.Errorf("platform/db: close migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return applied, fmt.Errorf("platform/db: close migration db: %w", dbErr)
	}
	return applied, nil
}
