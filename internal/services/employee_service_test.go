package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"collection-backend/internal/apperr"
	"collection-backend/internal/auth"
	"collection-backend/internal/cache"
	"collection-backend/internal/config"
	"collection-backend/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEmployeeService(t *testing.T, f *fixture, identityCache *cache.IdentityCache) *EmployeeService {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Issuer = "collection-backend"
	cfg.JWT.ExpirationHours = 1
	return NewEmployeeService(f.store, auth.NewJWTManager(cfg), identityCache)
}

func TestCreateEmployeeAndLogin(t *testing.T) {
	f := newFixture(t)
	svc := newEmployeeService(t, f, nil)

	emp, err := svc.CreateEmployee(f.ctx, f.admin, &models.CreateEmployeeRequest{
		Name:     "Suresh",
		Email:    "Suresh@Example.in",
		Password: "collect-2024",
		Role:     "field_staff",
	})
	require.NoError(t, err)
	assert.Equal(t, "suresh@example.in", emp.Email)
	assert.NotEqual(t, "collect-2024", emp.PasswordHash)

	resp, err := svc.Login(f.ctx, "suresh@example.in", "collect-2024")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, emp.ID, resp.Employee.ID)

	claims, err := svc.JWTManager.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, emp.ID, claims.EmployeeID)
	assert.Equal(t, auth.RoleFieldStaff, claims.Role)

	_, err = svc.Login(f.ctx, "suresh@example.in", "wrong-password")
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))

	_, err = svc.Login(f.ctx, "nobody@example.in", "collect-2024")
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
}

func TestLoginRejectsInactiveEmployee(t *testing.T) {
	f := newFixture(t)
	svc := newEmployeeService(t, f, nil)

	hash, err := auth.HashPassword("long-password")
	require.NoError(t, err)
	emp := &models.Employee{Name: "Left", Email: "left@example.in", PasswordHash: hash, Role: "field_staff"}
	require.NoError(t, f.store.Repos().Employees.Create(f.ctx, emp))

	_, err = svc.Login(f.ctx, "left@example.in", "long-password")
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeInactive, e.Code)

	_, err = svc.ResolveIdentity(f.ctx, emp.ID)
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
}

func TestCreateEmployeeRoleRules(t *testing.T) {
	f := newFixture(t)
	svc := newEmployeeService(t, f, nil)

	req := func(email, role string) *models.CreateEmployeeRequest {
		return &models.CreateEmployeeRequest{Name: "x", Email: email, Password: "password-123", Role: role}
	}

	_, err := svc.CreateEmployee(f.ctx, f.staff, req("a@example.in", "field_staff"))
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))

	_, err = svc.CreateEmployee(f.ctx, f.admin, req("b@example.in", "admin"))
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))

	_, err = svc.CreateEmployee(f.ctx, f.superAdmin, req("b@example.in", "admin"))
	require.NoError(t, err)

	_, err = svc.CreateEmployee(f.ctx, f.admin, req("B@example.in", "field_staff"))
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	_, err = svc.CreateEmployee(f.ctx, f.admin, req("c@example.in", "driver"))
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = svc.CreateEmployee(f.ctx, f.admin, &models.CreateEmployeeRequest{Name: "x", Email: "d@example.in", Password: "short", Role: "field_staff"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	all, err := svc.ListEmployees(f.ctx, f.admin)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestResolveIdentityUsesCache(t *testing.T) {
	f := newFixture(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	svc := newEmployeeService(t, f, cache.NewIdentityCache(client, time.Minute))

	id, err := svc.ResolveIdentity(f.ctx, f.staff.EmployeeID)
	require.NoError(t, err)
	assert.Equal(t, f.staff, id)

	key := fmt.Sprintf("identity:%d", f.staff.EmployeeID)
	assert.True(t, mr.Exists(key))

	// A cached entry is served without touching the database.
	mr.Set(key, fmt.Sprintf(`{"employee_id":%d,"role":"admin","is_active":true}`, f.staff.EmployeeID))
	id, err = svc.ResolveIdentity(f.ctx, f.staff.EmployeeID)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, id.Role)

	_, err = svc.ResolveIdentity(f.ctx, 9999)
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
}

func TestBootstrapSuperAdminOnce(t *testing.T) {
	f := newFixture(t)
	svc := newEmployeeService(t, f, nil)

	// The fixture already seeded a super_admin.
	_, err := svc.Bootstrap(f.ctx, "Owner", "owner@example.in", "owner-password")
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	_, err = svc.Bootstrap(f.ctx, "Owner", "owner@example.in", "short")
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestSetActiveDropsCachedIdentity(t *testing.T) {
	f := newFixture(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	svc := newEmployeeService(t, f, cache.NewIdentityCache(client, time.Minute))

	_, err := svc.ResolveIdentity(f.ctx, f.staff.EmployeeID)
	require.NoError(t, err)
	key := fmt.Sprintf("identity:%d", f.staff.EmployeeID)
	require.True(t, mr.Exists(key))

	emp, err := svc.SetActive(f.ctx, f.admin, f.staff.EmployeeID, false)
	require.NoError(t, err)
	assert.False(t, emp.IsActive)
	assert.False(t, mr.Exists(key))

	_, err = svc.ResolveIdentity(f.ctx, f.staff.EmployeeID)
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeInactive, e.Code)

	emp, err = svc.SetActive(f.ctx, f.admin, f.staff.EmployeeID, true)
	require.NoError(t, err)
	assert.True(t, emp.IsActive)
	id, err := svc.ResolveIdentity(f.ctx, f.staff.EmployeeID)
	require.NoError(t, err)
	assert.Equal(t, f.staff, id)
}

func TestSetActiveRoleRules(t *testing.T) {
	f := newFixture(t)
	svc := newEmployeeService(t, f, nil)

	_, err := svc.SetActive(f.ctx, f.staff, f.staff2.EmployeeID, false)
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))

	_, err = svc.SetActive(f.ctx, f.admin, f.superAdmin.EmployeeID, false)
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))

	_, err = svc.SetActive(f.ctx, f.admin, f.admin.EmployeeID, false)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = svc.SetActive(f.ctx, f.admin, 9999, false)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	emp, err := svc.SetActive(f.ctx, f.superAdmin, f.admin.EmployeeID, false)
	require.NoError(t, err)
	assert.False(t, emp.IsActive)
}
