package db

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

func init() {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())
}

// Migrate runs all pending schema migrations.
func (d *DB) Migrate() error {
	return Migrate(d.DB)
}

// Migrate runs all pending schema migrations on the given database connection.
// Columns added over time (attachment, expanded, subtasks) arrive as
// numbered migrations, so older store files are upgraded in place.
func Migrate(db *sql.DB) error {
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// MigrationStatus returns the current schema version.
func (d *DB) MigrationStatus() (int64, error) {
	return MigrationStatus(d.DB)
}

// MigrationStatus returns the current schema version for the given database.
func MigrationStatus(db *sql.DB) (int64, error) {
	if err := goose.SetDialect("sqlite3"); err != nil {
		return 0, fmt.Errorf("failed to set goose dialect: %w", err)
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		return 0, fmt.Errorf("failed to get migration version: %w", err)
	}

	return version, nil
}
