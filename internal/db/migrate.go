package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationStatus describes one migration and whether it has been applied.
type MigrationStatus struct {
	Version int64
	Path    string
	Applied bool
}

func (db *DB) migrationProvider() (*goose.Provider, func() error, error) {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, nil, fmt.Errorf("creating migration sub-filesystem: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(db.pool)
	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, subFS)
	if err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("creating migration provider: %w", err)
	}
	return provider, sqlDB.Close, nil
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate(ctx context.Context, logger logrus.FieldLogger) error {
	provider, closeDB, err := db.migrationProvider()
	if err != nil {
		return err
	}
	defer closeDB()

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	for _, r := range results {
		logger.WithFields(logrus.Fields{
			"source":      r.Source.Path,
			"duration_ms": r.Duration.Milliseconds(),
		}).Info("applied migration")
	}
	if len(results) == 0 {
		logger.Debug("database schema is up to date")
	}

	return nil
}

// MigrationStatus reports every known migration and whether it is applied.
func (db *DB) MigrationStatus(ctx context.Context) ([]MigrationStatus, error) {
	provider, closeDB, err := db.migrationProvider()
	if err != nil {
		return nil, err
	}
	defer closeDB()

	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting migration status: %w", err)
	}

	out := make([]MigrationStatus, len(statuses))
	for i, s := range statuses {
		out[i] = MigrationStatus{
			Version: s.Source.Version,
			Path:    s.Source.Path,
			Applied: s.State == goose.StateApplied,
		}
	}
	return out, nil
}
