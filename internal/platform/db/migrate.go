package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies every pending up migration embedded in the binary.
func Migrate(dsn string, logger *slog.Logger) error {
	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("platform/db: migration source: %w", err)
	}

	// golang-migrate needs a database/sql handle; the pgx stdlib driver keeps
	// the wire behaviour identical to the main pool.
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("platform/db: open migration db: %w", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil && logger != nil {
			logger.Warn("close migration db", slog.Any("error", cerr))
		}
	}()

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("platform/db: migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("platform/db: migrate instance: %w", err)
	}

	upErr := m.Up()
	srcErr, dbErr := m.Close()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("platform/db: migrate up: %w", upErr)
	}
	if srcErr != nil {
		return fmt.Errorf("platform/db: migration source close: %w", srcErr)
	}
	if dbErr != nil {
		return fmt.Errorf("platform/db: migration database close: %w", dbErr)
	}

	if logger != nil {
		if errors.Is(upErr, migrate.ErrNoChange) {
			logger.Info("no new migrations to apply")
		} else {
			logger.Info("database migrations applied")
		}
	}
	return nil
}
