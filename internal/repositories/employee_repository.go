package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"collection-backend/internal/apperr"
	"collection-backend/internal/models"

	"github.com/jmoiron/sqlx"
)

type EmployeeRepository struct {
	q querier
}

const employeeColumns = `id, name, email, phone, password_hash, role, is_active, created_at, updated_at`

func (r *EmployeeRepository) Create(ctx context.Context, emp *models.Employee) error {
	now := time.Now().UTC()
	emp.Email = strings.ToLower(strings.TrimSpace(emp.Email))
	emp.CreatedAt = now
	emp.UpdatedAt = now

	query := r.q.Rebind(`
		INSERT INTO employees (name, email, phone, password_hash, role, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := sqlx.GetContext(ctx, r.q, &emp.ID, query,
		emp.Name, emp.Email, emp.Phone, emp.PasswordHash, emp.Role, emp.IsActive, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict(apperr.CodeDuplicate, "employee with this email already exists", err)
		}
		return fmt.Errorf("failed to create employee: %w", err)
	}
	return nil
}

func (r *EmployeeRepository) Get(ctx context.Context, id int64) (*models.Employee, error) {
	query := r.q.Rebind(`SELECT ` + employeeColumns + ` FROM employees WHERE id = ?`)

	var emp models.Employee
	if err := sqlx.GetContext(ctx, r.q, &emp, query, id); err != nil {
		return nil, notFound(err, "employee", id)
	}
	return &emp, nil
}

func (r *EmployeeRepository) GetByEmail(ctx context.Context, email string) (*models.Employee, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	query := r.q.Rebind(`SELECT ` + employeeColumns + ` FROM employees WHERE email = ?`)

	var emp models.Employee
	if err := sqlx.GetContext(ctx, r.q, &emp, query, email); err != nil {
		return nil, notFound(err, "employee", email)
	}
	return &emp, nil
}

func (r *EmployeeRepository) List(ctx context.Context) ([]models.Employee, error) {
	employees := []models.Employee{}
	err := sqlx.SelectContext(ctx, r.q, &employees, `SELECT `+employeeColumns+` FROM employees ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return employees, nil
}

func (r *EmployeeRepository) CountByRole(ctx context.Context, role string) (int64, error) {
	var n int64
	query := r.q.Rebind(`SELECT COUNT(*) FROM employees WHERE role = ?`)
	if err := sqlx.GetContext(ctx, r.q, &n, query, role); err != nil {
		return 0, fmt.Errorf("failed to count employees: %w", err)
	}
	return n, nil
}

// SetActive flips an employee's active flag.
func (r *EmployeeRepository) SetActive(ctx context.Context, id int64, active bool, at time.Time) error {
	query := r.q.Rebind(`UPDATE employees SET is_active = ?, updated_at = ? WHERE id = ?`)

	res, err := r.q.ExecContext(ctx, query, active, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update employee: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("employee", id)
	}
	return nil
}
