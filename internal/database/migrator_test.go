package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestRunMigrationsSQLiteIsIdempotent(t *testing.T) {
	db, err := sqlx.Connect("sqlite", "file:"+filepath.Join(t.TempDir(), "m.db")+"?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	m := NewMigrator(db, "sqlite", zerolog.Nop())
	require.NoError(t, m.RunMigrations(ctx))
	require.NoError(t, m.RunMigrations(ctx))

	var applied []string
	require.NoError(t, db.Select(&applied, "SELECT filename FROM schema_migrations"))
	assert.Equal(t, []string{"001_init.sql"}, applied)

	for _, table := range []string{"employees", "shops", "transactions", "audit_logs", "reconciliations"} {
		var n int
		require.NoError(t, db.Get(&n, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table))
		assert.Equal(t, 1, n, table)
	}
}

func TestEmbeddedDialectsShipSameFiles(t *testing.T) {
	pg, err := migrationFS.ReadDir("migrations/postgres")
	require.NoError(t, err)
	lite, err := migrationFS.ReadDir("migrations/sqlite")
	require.NoError(t, err)

	require.Equal(t, len(pg), len(lite))
	for i := range pg {
		assert.Equal(t, pg[i].Name(), lite[i].Name())
	}
}
