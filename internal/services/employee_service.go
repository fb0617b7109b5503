package services

import (
	"context"
	"strings"
	"time"

	"collection-backend/internal/apperr"
	"collection-backend/internal/auth"
	"collection-backend/internal/cache"
	"collection-backend/internal/logger"
	"collection-backend/internal/models"
	"collection-backend/internal/repositories"
	"collection-backend/internal/timeutil"
)

// EmployeeService manages staff accounts and resolves request identities.
type EmployeeService struct {
	Store      repositories.TxManager
	JWTManager *auth.JWTManager
	Cache      *cache.IdentityCache
	Now        func() time.Time
}

func NewEmployeeService(store repositories.TxManager, jwtManager *auth.JWTManager, identityCache *cache.IdentityCache) *EmployeeService {
	return &EmployeeService{
		Store:      store,
		JWTManager: jwtManager,
		Cache:      identityCache,
		Now:        timeutil.Now,
	}
}

// Login checks credentials and issues a token.
func (s *EmployeeService) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	emp, err := s.Store.Repos().Employees.GetByEmail(ctx, email)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.Unauthorized(apperr.CodeBadCredentials, "invalid email or password")
		}
		return nil, err
	}

	if !auth.VerifyPassword(emp.PasswordHash, password) {
		return nil, apperr.Unauthorized(apperr.CodeBadCredentials, "invalid email or password")
	}
	if !emp.IsActive {
		return nil, apperr.Unauthorized(apperr.CodeInactive, "account is deactivated")
	}

	token, err := s.JWTManager.GenerateToken(emp)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Info().Int64("employee_id", emp.ID).Str("role", emp.Role).Msg("login")
	return &models.AuthResponse{Token: token, Employee: emp}, nil
}

// CreateEmployee requires admin; creating an admin or super_admin requires super_admin.
func (s *EmployeeService) CreateEmployee(ctx context.Context, identity auth.Identity, req *models.CreateEmployeeRequest) (*models.Employee, error) {
	if err := identity.Require(auth.RoleAdmin); err != nil {
		return nil, err
	}

	role := auth.Role(req.Role)
	if !role.Valid() {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "role", "role must be field_staff, admin or super_admin")
	}
	if role != auth.RoleFieldStaff {
		if err := identity.Require(auth.RoleSuperAdmin); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "email", "name and email are required")
	}
	if len(req.Password) < 8 {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "password", "password must be at least 8 characters")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	emp := &models.Employee{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: hash,
		Role:         string(role),
		IsActive:     true,
	}
	if err := s.Store.Repos().Employees.Create(ctx, emp); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Int64("employee_id", emp.ID).
		Str("role", emp.Role).
		Int64("actor_id", identity.EmployeeID).
		Msg("employee created")
	return emp, nil
}

// SetActive activates or deactivates an employee. Changing an admin or
// super_admin requires super_admin, and nobody may deactivate themselves.
// The cached identity is dropped so the change applies to the next request.
func (s *EmployeeService) SetActive(ctx context.Context, identity auth.Identity, employeeID int64, active bool) (*models.Employee, error) {
	if err := identity.Require(auth.RoleAdmin); err != nil {
		return nil, err
	}
	if !active && identity.EmployeeID == employeeID {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "is_active", "you cannot deactivate your own account")
	}

	var emp *models.Employee
	err := s.Store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		current, err := repos.Employees.Get(ctx, employeeID)
		if err != nil {
			return err
		}
		if auth.Role(current.Role) != auth.RoleFieldStaff {
			if err := identity.Require(auth.RoleSuperAdmin); err != nil {
				return err
			}
		}
		if err := repos.Employees.SetActive(ctx, employeeID, active, s.Now()); err != nil {
			return err
		}
		emp, err = repos.Employees.Get(ctx, employeeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Cache.Invalidate(ctx, employeeID)

	log := logger.FromContext(ctx)
	log.Info().
		Int64("employee_id", employeeID).
		Bool("is_active", active).
		Int64("actor_id", identity.EmployeeID).
		Msg("employee status changed")
	return emp, nil
}

func (s *EmployeeService) ListEmployees(ctx context.Context, identity auth.Identity) ([]models.Employee, error) {
	if err := identity.Require(auth.RoleAdmin); err != nil {
		return nil, err
	}
	return s.Store.Repos().Employees.List(ctx)
}

// ResolveIdentity turns validated token claims into the identity passed to
// the core. The role comes from the employee record, not the token.
func (s *EmployeeService) ResolveIdentity(ctx context.Context, employeeID int64) (auth.Identity, error) {
	if cached, ok := s.Cache.Get(ctx, employeeID); ok {
		if !cached.IsActive {
			return auth.Identity{}, apperr.Unauthorized(apperr.CodeInactive, "account is deactivated")
		}
		return auth.Identity{EmployeeID: cached.EmployeeID, Role: auth.Role(cached.Role)}, nil
	}

	emp, err := s.Store.Repos().Employees.Get(ctx, employeeID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return auth.Identity{}, apperr.Unauthorized(apperr.CodeBadCredentials, "unknown employee")
		}
		return auth.Identity{}, err
	}

	s.Cache.Set(ctx, cache.CachedIdentity{EmployeeID: emp.ID, Role: emp.Role, IsActive: emp.IsActive})
	if !emp.IsActive {
		return auth.Identity{}, apperr.Unauthorized(apperr.CodeInactive, "account is deactivated")
	}
	return auth.Identity{EmployeeID: emp.ID, Role: auth.Role(emp.Role)}, nil
}

// Bootstrap creates the first super_admin. It is a conflict once any
// super_admin exists.
func (s *EmployeeService) Bootstrap(ctx context.Context, name, email, password string) (*models.Employee, error) {
	if len(password) < 8 {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "password", "password must be at least 8 characters")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	emp := &models.Employee{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         string(auth.RoleSuperAdmin),
		IsActive:     true,
	}

	err = s.Store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		n, err := repos.Employees.CountByRole(ctx, string(auth.RoleSuperAdmin))
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict(apperr.CodeDuplicate, "a super_admin already exists", nil)
		}
		return repos.Employees.Create(ctx, emp)
	})
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Info().Int64("employee_id", emp.ID).Msg("super_admin bootstrapped")
	return emp, nil
}
