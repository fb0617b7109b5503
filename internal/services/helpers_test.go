package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"collection-backend/internal/auth"
	"collection-backend/internal/database"
	"collection-backend/internal/db"
	"collection-backend/internal/models"
	"collection-backend/internal/repositories"
	"collection-backend/internal/timeutil"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDate is the business date of the fixture clock.
const testDate = "2024-03-01"

type fixture struct {
	ctx   context.Context
	store *repositories.Store
	now   time.Time

	admin      auth.Identity
	superAdmin auth.Identity
	staff      auth.Identity
	staff2     auth.Identity

	ledger         *LedgerService
	collections    *CollectionService
	handovers      *HandoverService
	reconciliation *ReconciliationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(conn.Close)
	require.NoError(t, database.NewMigrator(conn.DB, "sqlite", zerolog.Nop()).RunMigrations(ctx))

	f := &fixture{
		ctx:   ctx,
		store: repositories.NewStore(conn.DB, conn.Dialect),
		now:   time.Date(2024, 3, 1, 10, 30, 0, 0, timeutil.IST),
	}
	clock := func() time.Time { return f.now }

	f.superAdmin = f.employee(t, "root", auth.RoleSuperAdmin)
	f.admin = f.employee(t, "office", auth.RoleAdmin)
	f.staff = f.employee(t, "ravi", auth.RoleFieldStaff)
	f.staff2 = f.employee(t, "meena", auth.RoleFieldStaff)

	f.ledger = NewLedgerService(f.store)
	f.ledger.Now = clock
	f.collections = NewCollectionService(f.store, FloorAtZero)
	f.collections.Now = clock
	f.handovers = NewHandoverService(f.store)
	f.handovers.Now = clock
	f.reconciliation = NewReconciliationService(f.store, false)
	f.reconciliation.Now = clock
	return f
}

func (f *fixture) employee(t *testing.T, name string, role auth.Role) auth.Identity {
	t.Helper()
	emp := &models.Employee{
		Name:         name,
		Email:        fmt.Sprintf("%s@example.in", name),
		PasswordHash: "unused",
		Role:         string(role),
		IsActive:     true,
	}
	require.NoError(t, f.store.Repos().Employees.Create(f.ctx, emp))
	return auth.Identity{EmployeeID: emp.ID, Role: role}
}

func (f *fixture) shop(t *testing.T, opening string) *models.Shop {
	t.Helper()
	shop, err := f.ledger.CreateShop(f.ctx, f.admin, &models.CreateShopRequest{
		Name:           "Shop " + opening,
		Zone:           "north",
		OpeningBalance: dec(opening),
	})
	require.NoError(t, err)
	return shop
}

func (f *fixture) collect(t *testing.T, who auth.Identity, shopID int64, amount string, mode models.PaymentMode) *models.Transaction {
	t.Helper()
	txn, err := f.collections.RecordCollection(f.ctx, who, &models.RecordCollectionRequest{
		EmployeeID:  who.EmployeeID,
		ShopID:      shopID,
		Amount:      dec(amount),
		PaymentMode: mode,
	})
	require.NoError(t, err)
	return txn
}

func (f *fixture) balance(t *testing.T, shopID int64) decimal.Decimal {
	t.Helper()
	shop, err := f.ledger.GetShop(f.ctx, shopID)
	require.NoError(t, err)
	return shop.CurrentBalance
}

func (f *fixture) auditTrail(t *testing.T, shopID int64) []models.AuditLogEntry {
	t.Helper()
	entries, err := f.ledger.AuditTrail(f.ctx, f.admin, shopID, 1000, 0)
	require.NoError(t, err)
	return entries
}

func (f *fixture) cashInBag(t *testing.T, who auth.Identity, date string) decimal.Decimal {
	t.Helper()
	total, err := f.handovers.CashInBag(f.ctx, who, who.EmployeeID, date)
	require.NoError(t, err)
	return total
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}
