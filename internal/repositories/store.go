package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"collection-backend/internal/apperr"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

// Dialect captures the SQL differences between the Postgres and SQLite stores.
type Dialect struct {
	Name string
	// LockRows appends FOR UPDATE to locking reads. SQLite runs on a single
	// connection, so every transaction is already serialized there.
	LockRows bool
}

var (
	DialectPostgres = Dialect{Name: "postgres", LockRows: true}
	DialectSQLite   = Dialect{Name: "sqlite"}
)

func (d Dialect) forUpdate(query string) string {
	if d.LockRows {
		return query + " FOR UPDATE"
	}
	return query
}

// querier is satisfied by both *sqlx.DB and *sqlx.Tx.
type querier interface {
	sqlx.ExtContext
}

// Repositories groups the per-entity repositories bound to one querier.
type Repositories struct {
	Shops           *ShopRepository
	AuditLogs       *AuditLogRepository
	Transactions    *TransactionRepository
	Reconciliations *ReconciliationRepository
	Employees       *EmployeeRepository
}

func newRepositories(q querier, d Dialect) *Repositories {
	return &Repositories{
		Shops:           &ShopRepository{q: q, dialect: d},
		AuditLogs:       &AuditLogRepository{q: q},
		Transactions:    &TransactionRepository{q: q, dialect: d},
		Reconciliations: &ReconciliationRepository{q: q, dialect: d},
		Employees:       &EmployeeRepository{q: q},
	}
}

// TxManager runs fn inside a single database transaction.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repos *Repositories) error) error
	Repos() *Repositories
}

// Store owns the database handle and hands out repositories.
type Store struct {
	DB      *sqlx.DB
	dialect Dialect
	repos   *Repositories
}

func NewStore(db *sqlx.DB, dialect Dialect) *Store {
	return &Store{
		DB:      db,
		dialect: dialect,
		repos:   newRepositories(db, dialect),
	}
}

// Repos returns repositories bound to the pool, for reads outside a transaction.
func (s *Store) Repos() *Repositories {
	return s.repos
}

// WithTx commits when fn returns nil and rolls back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, repos *Repositories) error) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, newRepositories(tx, s.dialect)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// notFound maps sql.ErrNoRows to a typed NotFound error.
func notFound(err error, entity string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(entity, id)
	}
	return err
}

// isUniqueViolation recognizes unique constraint failures from both drivers.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var sqliteErr interface{ Code() int }
	if errors.As(err, &sqliteErr) {
		// SQLITE_CONSTRAINT and its extended codes
		return sqliteErr.Code()&0xff == 19
	}
	return false
}
