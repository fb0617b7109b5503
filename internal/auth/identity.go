package auth

import (
	"context"
	"fmt"

	"collection-backend/internal/apperr"
)

// Role is the caller's role as resolved by the identity provider.
type Role string

const (
	RoleFieldStaff Role = "field_staff"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleFieldStaff, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Satisfies reports whether r meets required. super_admin is a superset of admin.
func (r Role) Satisfies(required Role) bool {
	if r == required {
		return true
	}
	return required == RoleAdmin && r == RoleSuperAdmin
}

// Identity is the request-scoped capability passed explicitly into every
// core operation. The core never derives it from global state.
type Identity struct {
	EmployeeID int64 `json:"employee_id"`
	Role       Role  `json:"role"`
}

// IsAdmin reports whether the identity carries admin privileges.
func (id Identity) IsAdmin() bool {
	return id.Role.Satisfies(RoleAdmin)
}

// Require returns an Unauthorized error unless the identity satisfies one of roles.
func (id Identity) Require(roles ...Role) error {
	for _, role := range roles {
		if id.Role.Satisfies(role) {
			return nil
		}
	}
	return apperr.Unauthorized(apperr.CodeForbiddenRole,
		fmt.Sprintf("role %q is not permitted to perform this operation", id.Role))
}

// RequireSelf returns an Unauthorized error unless the identity is employeeID.
func (id Identity) RequireSelf(employeeID int64) error {
	if id.EmployeeID != employeeID {
		return apperr.Unauthorized(apperr.CodeNotOwner, "employees may only act on their own records")
	}
	return nil
}

// RequireSelfOrAdmin allows admins through and otherwise requires a self match.
func (id Identity) RequireSelfOrAdmin(employeeID int64) error {
	if id.IsAdmin() {
		return nil
	}
	return id.RequireSelf(employeeID)
}

type identityKey struct{}

// WithIdentity stores the identity in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext extracts the identity placed by the auth middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
