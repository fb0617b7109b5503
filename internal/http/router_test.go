package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"collection-backend/internal/auth"
	"collection-backend/internal/config"
	"collection-backend/internal/database"
	"collection-backend/internal/db"
	"collection-backend/internal/handlers"
	"collection-backend/internal/health"
	"collection-backend/internal/middleware"
	"collection-backend/internal/models"
	"collection-backend/internal/repositories"
	"collection-backend/internal/services"
	"collection-backend/internal/timeutil"
	"collection-backend/pkg/utils"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct-horse"

type testServer struct {
	handler http.Handler
	store   *repositories.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(conn.Close)
	require.NoError(t, database.NewMigrator(conn.DB, "sqlite", zerolog.Nop()).RunMigrations(ctx))

	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpirationHours = 1
	cfg.JWT.Issuer = "collection-backend"
	cfg.Server.CorsAllowedOrigins = []string{"*"}
	cfg.Server.CorsAllowedMethods = []string{"GET", "POST", "PUT", "DELETE"}
	cfg.Server.CorsAllowedHeaders = []string{"Authorization", "Content-Type"}

	store := repositories.NewStore(conn.DB, conn.Dialect)
	jwtManager := auth.NewJWTManager(cfg)
	employees := services.NewEmployeeService(store, jwtManager, nil)
	handovers := services.NewHandoverService(store)

	router := NewRouter(
		Handlers{
			Auth:           handlers.NewAuthHandler(employees),
			Employees:      handlers.NewEmployeeHandler(employees, handovers),
			Shops:          handlers.NewShopHandler(services.NewLedgerService(store)),
			Collections:    handlers.NewCollectionHandler(services.NewCollectionService(store, services.FloorAtZero)),
			Reconciliation: handlers.NewReconciliationHandler(services.NewReconciliationService(store, false)),
			Health:         handlers.NewHealthHandler(health.NewHealthChecker(conn, nil)),
		},
		middleware.NewAuthMiddleware(jwtManager, employees),
		middleware.NewCORS(cfg),
		zerolog.Nop(),
	)
	return &testServer{handler: router, store: store}
}

func (s *testServer) employee(t *testing.T, name string, role auth.Role) *models.Employee {
	t.Helper()
	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)
	emp := &models.Employee{
		Name:         name,
		Email:        name + "@example.in",
		PasswordHash: hash,
		Role:         string(role),
		IsActive:     true,
	}
	require.NoError(t, s.store.Repos().Employees.Create(context.Background(), emp))
	return emp
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()
	rec := s.do(t, "POST", "/auth/login", "", map[string]string{"email": email, "password": testPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func TestHealthAndAuthGate(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	rec = s.do(t, "GET", "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, "GET", "/api/shops", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, "GET", "/api/shops", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	s.employee(t, "office", auth.RoleAdmin)

	rec := s.do(t, "POST", "/auth/login", "", map[string]string{"email": "office@example.in", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var errResp utils.ErrorResponse
	decodeBody(t, rec, &errResp)
	assert.Equal(t, "bad_credentials", errResp.Code)

	rec = s.do(t, "POST", "/auth/login", "", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.NotEmpty(t, s.login(t, "office@example.in"))
}

func TestCollectionHandoverAndReconciliationFlow(t *testing.T) {
	s := newTestServer(t)
	s.employee(t, "office", auth.RoleAdmin)
	staff := s.employee(t, "ravi", auth.RoleFieldStaff)
	adminToken := s.login(t, "office@example.in")
	staffToken := s.login(t, "ravi@example.in")
	today := timeutil.Today()

	// Staff may not register shops
	rec := s.do(t, "POST", "/api/shops", staffToken, map[string]any{"name": "Kirana", "opening_balance": "1000"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, "POST", "/api/shops", adminToken, map[string]any{"name": "Kirana", "zone": "north", "opening_balance": "1000"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var shop models.Shop
	decodeBody(t, rec, &shop)

	rec = s.do(t, "POST", "/api/collections", staffToken, map[string]any{
		"shop_id":      shop.ID,
		"amount":       "300",
		"payment_mode": "cash",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var txn models.Transaction
	decodeBody(t, rec, &txn)
	assert.Equal(t, staff.ID, txn.EmployeeID)
	assert.Equal(t, today, txn.BusinessDate)
	assert.False(t, txn.IsVerified)

	rec = s.do(t, "GET", fmt.Sprintf("/api/shops/%d", shop.ID), staffToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &shop)
	assert.True(t, decimal.NewFromInt(700).Equal(shop.CurrentBalance))

	cashPath := fmt.Sprintf("/api/employees/%d/cash-in-bag", staff.ID)
	var bag struct {
		CashInBag decimal.Decimal `json:"cash_in_bag"`
	}
	rec = s.do(t, "GET", cashPath, staffToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeBody(t, rec, &bag)
	assert.True(t, decimal.NewFromInt(300).Equal(bag.CashInBag))

	rec = s.do(t, "POST", fmt.Sprintf("/api/employees/%d/handover", staff.ID), staffToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, "POST", fmt.Sprintf("/api/employees/%d/handover", staff.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var handover models.HandoverResult
	decodeBody(t, rec, &handover)
	assert.Equal(t, 1, handover.Count)
	assert.Equal(t, []int64{txn.ID}, handover.TransactionIDs)

	rec = s.do(t, "GET", cashPath, staffToken, nil)
	decodeBody(t, rec, &bag)
	assert.True(t, bag.CashInBag.IsZero())

	rec = s.do(t, "POST", "/api/reconciliations", adminToken, map[string]any{
		"employee_id": staff.ID,
		"date":        today,
		"actual_cash": "300",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var recon models.Reconciliation
	decodeBody(t, rec, &recon)
	assert.Equal(t, models.ReconciliationVerified, recon.Status)
	assert.True(t, recon.Variance.IsZero())

	rec = s.do(t, "POST", "/api/reconciliations/close-day", adminToken, map[string]any{"date": today})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var closed models.CloseDayResult
	decodeBody(t, rec, &closed)
	assert.Equal(t, int64(1), closed.Closed)

	rec = s.do(t, "GET", fmt.Sprintf("/api/reconciliations/%d/%s", staff.ID, today), adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeBody(t, rec, &recon)
	assert.Equal(t, models.ReconciliationClosed, recon.Status)

	rec = s.do(t, "GET", "/api/reconciliations?date="+today, adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var records []models.Reconciliation
	decodeBody(t, rec, &records)
	assert.Len(t, records, 1)
}

func TestCollectionOwnership(t *testing.T) {
	s := newTestServer(t)
	s.employee(t, "office", auth.RoleAdmin)
	s.employee(t, "ravi", auth.RoleFieldStaff)
	other := s.employee(t, "meena", auth.RoleFieldStaff)
	adminToken := s.login(t, "office@example.in")
	staffToken := s.login(t, "ravi@example.in")

	rec := s.do(t, "POST", "/api/shops", adminToken, map[string]any{"name": "Kirana", "opening_balance": "500"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var shop models.Shop
	decodeBody(t, rec, &shop)

	rec = s.do(t, "POST", "/api/collections", staffToken, map[string]any{
		"employee_id":  other.ID,
		"shop_id":      shop.ID,
		"amount":       "100",
		"payment_mode": "upi",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, "GET", fmt.Sprintf("/api/collections?employee_id=%d", other.ID), staffToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, "GET", fmt.Sprintf("/api/employees/%d/cash-in-bag", other.ID), staffToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, "GET", "/api/collections", staffToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var txns []models.Transaction
	decodeBody(t, rec, &txns)
	assert.Empty(t, txns)
}

func TestLedgerErrorsMapToStatus(t *testing.T) {
	s := newTestServer(t)
	s.employee(t, "office", auth.RoleAdmin)
	adminToken := s.login(t, "office@example.in")

	rec := s.do(t, "POST", "/api/shops", adminToken, map[string]any{"zone": "north"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var errResp utils.ErrorResponse
	decodeBody(t, rec, &errResp)
	assert.Equal(t, "name", errResp.Field)

	rec = s.do(t, "GET", "/api/shops/999", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, "POST", "/api/shops", adminToken, map[string]any{"name": "Kirana", "opening_balance": "250"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var shop models.Shop
	decodeBody(t, rec, &shop)

	balancePath := fmt.Sprintf("/api/shops/%d/balance", shop.ID)
	rec = s.do(t, "POST", balancePath, adminToken, map[string]any{"mode": "override", "amount": "100"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	decodeBody(t, rec, &errResp)
	assert.Equal(t, "note_required", errResp.Code)

	rec = s.do(t, "POST", balancePath, adminToken, map[string]any{"mode": "override", "amount": "100", "note": "recount"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, "GET", fmt.Sprintf("/api/shops/%d/audit", shop.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []models.AuditLogEntry
	decodeBody(t, rec, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditKindOverride, entries[0].Kind)

	rec = s.do(t, "GET", fmt.Sprintf("/api/shops/%d/integrity", shop.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var integrity models.LedgerIntegrity
	decodeBody(t, rec, &integrity)
	assert.True(t, integrity.Consistent)

	rec = s.do(t, "DELETE", fmt.Sprintf("/api/shops/%d", shop.ID), adminToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMoneyFieldsAreRequired(t *testing.T) {
	s := newTestServer(t)
	s.employee(t, "office", auth.RoleAdmin)
	staff := s.employee(t, "ravi", auth.RoleFieldStaff)
	adminToken := s.login(t, "office@example.in")
	staffToken := s.login(t, "ravi@example.in")
	today := timeutil.Today()

	rec := s.do(t, "POST", "/api/shops", adminToken, map[string]any{"name": "Kirana", "opening_balance": "5000"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var shop models.Shop
	decodeBody(t, rec, &shop)

	// An override without an amount must not zero the balance
	rec = s.do(t, "POST", fmt.Sprintf("/api/shops/%d/balance", shop.ID), adminToken, map[string]any{"mode": "override", "note": "fix"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var errResp utils.ErrorResponse
	decodeBody(t, rec, &errResp)
	assert.Equal(t, "invalid_amount", errResp.Code)
	assert.Equal(t, "amount", errResp.Field)

	rec = s.do(t, "GET", fmt.Sprintf("/api/shops/%d", shop.ID), adminToken, nil)
	decodeBody(t, rec, &shop)
	assert.True(t, decimal.NewFromInt(5000).Equal(shop.CurrentBalance))

	rec = s.do(t, "POST", "/api/collections", staffToken, map[string]any{"shop_id": shop.ID, "amount": "400", "payment_mode": "cash"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, "POST", "/api/reconciliations", adminToken, map[string]any{
		"employee_id": staff.ID,
		"date":        today,
		"actual_cash": "400",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var recon models.Reconciliation
	decodeBody(t, rec, &recon)

	rec = s.do(t, "POST", "/api/reconciliations", adminToken, map[string]any{"employee_id": staff.ID, "date": today})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	decodeBody(t, rec, &errResp)
	assert.Equal(t, "actual_cash", errResp.Field)

	rec = s.do(t, "PUT", fmt.Sprintf("/api/reconciliations/%d", recon.ID), adminToken, map[string]any{"note": "recount"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	decodeBody(t, rec, &errResp)
	assert.Equal(t, "invalid_amount", errResp.Code)

	rec = s.do(t, "GET", fmt.Sprintf("/api/reconciliations/%d/%s", staff.ID, today), adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &recon)
	assert.Equal(t, models.ReconciliationVerified, recon.Status)
	assert.True(t, decimal.NewFromInt(400).Equal(recon.ActualCash))
}

func TestDeactivatedEmployeeIsLockedOut(t *testing.T) {
	s := newTestServer(t)
	s.employee(t, "office", auth.RoleAdmin)
	staff := s.employee(t, "ravi", auth.RoleFieldStaff)
	adminToken := s.login(t, "office@example.in")
	staffToken := s.login(t, "ravi@example.in")
	statusPath := fmt.Sprintf("/api/employees/%d/status", staff.ID)

	rec := s.do(t, "PUT", statusPath, adminToken, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, "PUT", statusPath, staffToken, map[string]any{"is_active": false})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, "PUT", statusPath, adminToken, map[string]any{"is_active": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, "GET", "/api/collections", staffToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, "PUT", statusPath, adminToken, map[string]any{"is_active": true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, "GET", "/api/collections", staffToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
