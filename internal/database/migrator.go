package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFS embed.FS

// Migrator handles database schema migrations
type Migrator struct {
	db     *sqlx.DB
	dir    string
	logger zerolog.Logger
}

// NewMigrator creates a migration runner for the given dialect ("postgres" or "sqlite").
func NewMigrator(db *sqlx.DB, dialect string, logger zerolog.Logger) *Migrator {
	return &Migrator{
		db:     db,
		dir:    path.Join("migrations", dialect),
		logger: logger,
	}
}

// RunMigrations executes all pending database migrations
//
// This function:
//  1. Creates a migrations tracking table if it doesn't exist
//  2. Reads the dialect's migration files from the embedded filesystem
//  3. Skips migrations that have already been run
//  4. Executes new migrations in alphabetical order, each in its own transaction
//  5. Records successful migrations in the tracking table
func (m *Migrator) RunMigrations(ctx context.Context) error {
	m.logger.Info().Str("dir", m.dir).Msg("starting database migrations")

	if err := m.createMigrationsTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	appliedMigrations, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	entries, err := fs.ReadDir(migrationFS, m.dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrationFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			migrationFiles = append(migrationFiles, entry.Name())
		}
	}
	sort.Strings(migrationFiles)

	migrationsRun := 0
	for _, filename := range migrationFiles {
		if appliedMigrations[filename] {
			m.logger.Debug().Str("file", filename).Msg("already applied")
			continue
		}

		content, err := migrationFS.ReadFile(path.Join(m.dir, filename))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		m.logger.Info().Str("file", filename).Msg("running migration")
		if err := m.apply(ctx, filename, string(content)); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", filename, err)
		}
		migrationsRun++
	}

	if migrationsRun > 0 {
		m.logger.Info().Int("count", migrationsRun).Msg("migrations applied")
	} else {
		m.logger.Info().Msg("all migrations already applied - database is up to date")
	}
	return nil
}

func (m *Migrator) apply(ctx context.Context, filename, content string) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, content); err != nil {
		return err
	}

	query := tx.Rebind(`INSERT INTO schema_migrations (filename, applied_at) VALUES (?, ?)`)
	if _, err := tx.ExecContext(ctx, query, filename, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return tx.Commit()
}

// createMigrationsTable creates the schema_migrations table if it doesn't exist
func (m *Migrator) createMigrationsTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL
		)
	`
	_, err := m.db.ExecContext(ctx, query)
	return err
}

// getAppliedMigrations returns the set of filenames already applied
func (m *Migrator) getAppliedMigrations(ctx context.Context) (map[string]bool, error) {
	var filenames []string
	if err := m.db.SelectContext(ctx, &filenames, "SELECT filename FROM schema_migrations"); err != nil {
		return nil, err
	}

	applied := make(map[string]bool, len(filenames))
	for _, filename := range filenames {
		applied[filename] = true
	}
	return applied, nil
}
