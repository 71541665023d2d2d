// Package migrations applies the embedded schema to the configured database.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tropicaldog17/replyqueue/internal/db"
	"github.com/tropicaldog17/replyqueue/internal/logger"
	"github.com/tropicaldog17/replyqueue/internal/models"
)

//go:embed sql/*.sql
var files embed.FS

// Migration represents a database migration
type Migration struct {
	ID       int
	Filename string
	Content  string
}

// Run brings the schema up to date. Postgres gets the versioned SQL files;
// SQLite, used for local runs and tests, is auto-migrated from the models.
func Run(ctx context.Context, database *db.DB, log *zap.Logger) error {
	log = logger.OrNop(log)

	if database.Dialect() != db.DriverPostgres {
		if err := database.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
		log.Info("schema auto-migrated", zap.String("dialect", database.Dialect()))
		return nil
	}

	sqlDB, err := database.GetSQLDB()
	if err != nil {
		return err
	}
	if err := createMigrationsTable(ctx, sqlDB); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := CurrentVersion(ctx, sqlDB)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	migrations, err := Load()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	for _, m := range migrations {
		if m.ID <= currentVersion {
			continue
		}
		log.Info("running migration", zap.Int("version", m.ID), zap.String("file", m.Filename))
		if err := runMigration(ctx, sqlDB, m); err != nil {
			return fmt.Errorf("failed to run migration %d: %w", m.ID, err)
		}
	}
	log.Info("migrations complete", zap.Int("from_version", currentVersion))
	return nil
}

// Load returns the embedded migrations ordered by version.
func Load() ([]Migration, error) {
	entries, err := fs.ReadDir(files, "sql")
	if err != nil {
		return nil, err
	}

	var migrations []Migration
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}

		// "001_initial_schema.sql" -> 1
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}

		content, err := fs.ReadFile(files, "sql/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", name, err)
		}
		migrations = append(migrations, Migration{ID: id, Filename: name, Content: string(content)})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].ID < migrations[j].ID
	})
	return migrations, nil
}

// CurrentVersion returns the highest applied version, 0 on a fresh database.
func CurrentVersion(ctx context.Context, sqlDB *sql.DB) (int, error) {
	var version int
	err := sqlDB.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}

func createMigrationsTable(ctx context.Context, sqlDB *sql.DB) error {
	_, err := sqlDB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			filename VARCHAR(255) NOT NULL,
			executed_at TIMESTAMP DEFAULT NOW()
		)
	`)
	return err
}

func runMigration(ctx context.Context, sqlDB *sql.DB, m Migration) error {
	tx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.Content); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, filename) VALUES ($1, $2)",
		m.ID, m.Filename,
	); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return tx.Commit()
}
