package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// MigrateDirection selects which way Migrate moves the schema.
type MigrateDirection string

const (
	MigrateUp   MigrateDirection = "up"
	MigrateDown MigrateDirection = "down"
)

// Migrate applies (up) or reverts (down) every migration under migrationsPath.
// It reports whether anything changed.
func Migrate(databaseURL, migrationsPath string, direction MigrateDirection, logger *slog.Logger) (changed bool, err error) {
	if direction != MigrateUp && direction != MigrateDown {
		return false, fmt.Errorf("unknown migration direction %q", direction)
	}

	// A temporary database/sql handle on the pgx stdlib driver, separate from the pool.
	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return false, fmt.Errorf("failed to open database connection for migrations: %w", err)
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()
	if err := migrationDB.Ping(); err != nil {
		return false, fmt.Errorf("failed to ping database for migrations: %w", err)
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return false, fmt.Errorf("could not create postgres driver instance for migrations: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(migrationsPath, "postgres", driver)
	if err != nil {
		return false, fmt.Errorf("could not create migrate instance: %w", err)
	}

	logger.Info("Running database migrations", slog.String("direction", string(direction)), slog.String("path", migrationsPath))
	if direction == MigrateUp {
		err = m.Up()
	} else {
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return false, fmt.Errorf("failed to apply migrations: %w", err)
	}
	changed = err == nil

	if version, dirty, verr := m.Version(); verr == nil {
		logger.Info("Migration state", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
		if dirty {
			return changed, fmt.Errorf("database is dirty at migration version %d", version)
		}
	}

	// The database error is ignored: the handle is also closed by the defer above.
	if sourceErr, _ := m.Close(); sourceErr != nil {
		return changed, fmt.Errorf("migration source error: %w", sourceErr)
	}

	if changed {
		logger.Info("Database migrations applied successfully.")
	} else {
		logger.Info("No new migrations to apply.")
	}
	return changed, nil
}
