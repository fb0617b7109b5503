package db

import (
	"context"
	"fmt"
	"net/url"

	"collection-backend/internal/config"
	"collection-backend/internal/repositories"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Database is an open store handle for either dialect.
type Database struct {
	*sqlx.DB
	Dialect repositories.Dialect
	pool    *pgxpool.Pool
}

// Close releases the sqlx handle and, for Postgres, the underlying pool.
func (d *Database) Close() {
	d.DB.Close()
	if d.pool != nil {
		d.pool.Close()
	}
}

// Ping checks connectivity for health probes.
func (d *Database) Ping(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

// Connect opens the database selected by cfg.Database.Driver.
func Connect(ctx context.Context, cfg *config.Config) (*Database, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		return OpenSQLite(cfg.Database.SQLitePath)
	case "postgres", "":
		return connectPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

func connectPostgres(ctx context.Context, cfg *config.Config) (*Database, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.Database.User),
		url.QueryEscape(cfg.Database.Password),
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}
	if cfg.Database.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Database.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("db connect failed: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping failed: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	return &Database{
		DB:      sqlx.NewDb(sqlDB, "pgx"),
		Dialect: repositories.DialectPostgres,
		pool:    pool,
	}, nil
}

// OpenSQLite opens an embedded database at path. A single connection keeps
// writers serialized, which the store relies on in place of row locks.
func OpenSQLite(path string) (*Database, error) {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"

	sqlDB, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return &Database{
		DB:      sqlDB,
		Dialect: repositories.DialectSQLite,
	}, nil
}
