package repositories

import (
	"context"
	"fmt"
	"time"

	"collection-backend/internal/models"

	"github.com/jmoiron/sqlx"
)

type ReconciliationRepository struct {
	q       querier
	dialect Dialect
}

const reconciliationColumns = `id, employee_id, business_date, expected_cash, actual_cash, variance, status, note,
	verified_by, verified_at, closed_at, created_at, updated_at`

// GetByKey returns the record for (employeeID, date).
func (r *ReconciliationRepository) GetByKey(ctx context.Context, employeeID int64, date string) (*models.Reconciliation, error) {
	query := r.q.Rebind(`SELECT ` + reconciliationColumns + ` FROM reconciliations WHERE employee_id = ? AND business_date = ?`)

	var rec models.Reconciliation
	if err := sqlx.GetContext(ctx, r.q, &rec, query, employeeID, date); err != nil {
		return nil, notFound(err, "reconciliation", fmt.Sprintf("%d/%s", employeeID, date))
	}
	return &rec, nil
}

// GetByIDForUpdate loads a record by id and locks its row.
func (r *ReconciliationRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Reconciliation, error) {
	query := r.q.Rebind(r.dialect.forUpdate(`SELECT ` + reconciliationColumns + ` FROM reconciliations WHERE id = ?`))

	var rec models.Reconciliation
	if err := sqlx.GetContext(ctx, r.q, &rec, query, id); err != nil {
		return nil, notFound(err, "reconciliation", id)
	}
	return &rec, nil
}

// Replace writes the single record for (EmployeeID, Date), overwriting any
// existing one. CreatedAt of an existing record is preserved.
func (r *ReconciliationRepository) Replace(ctx context.Context, rec *models.Reconciliation) (*models.Reconciliation, error) {
	now := rec.VerifiedAt.UTC()

	query := r.q.Rebind(`
		INSERT INTO reconciliations (
			employee_id, business_date, expected_cash, actual_cash, variance, status,
			note, verified_by, verified_at, closed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (employee_id, business_date) DO UPDATE SET
			expected_cash = excluded.expected_cash,
			actual_cash = excluded.actual_cash,
			variance = excluded.variance,
			status = excluded.status,
			note = excluded.note,
			verified_by = excluded.verified_by,
			verified_at = excluded.verified_at,
			closed_at = excluded.closed_at,
			updated_at = excluded.updated_at
	`)

	_, err := r.q.ExecContext(ctx, query,
		rec.EmployeeID,
		rec.Date,
		rec.ExpectedCash,
		rec.ActualCash,
		rec.Variance,
		rec.Status,
		rec.Note,
		rec.VerifiedBy,
		now,
		rec.ClosedAt,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to replace reconciliation: %w", err)
	}

	return r.GetByKey(ctx, rec.EmployeeID, rec.Date)
}

// CloseDay marks every record for date closed, whatever its status, and
// returns the number of records touched.
func (r *ReconciliationRepository) CloseDay(ctx context.Context, date string, at time.Time) (int64, error) {
	query := r.q.Rebind(`
		UPDATE reconciliations
		SET status = ?, closed_at = ?, updated_at = ?
		WHERE business_date = ?
	`)

	res, err := r.q.ExecContext(ctx, query, models.ReconciliationClosed, at.UTC(), at.UTC(), date)
	if err != nil {
		return 0, fmt.Errorf("failed to close day: %w", err)
	}
	return res.RowsAffected()
}

func (r *ReconciliationRepository) ListByDate(ctx context.Context, date string) ([]models.Reconciliation, error) {
	query := r.q.Rebind(`SELECT ` + reconciliationColumns + ` FROM reconciliations WHERE business_date = ? ORDER BY employee_id`)

	recs := []models.Reconciliation{}
	if err := sqlx.SelectContext(ctx, r.q, &recs, query, date); err != nil {
		return nil, fmt.Errorf("failed to list reconciliations: %w", err)
	}
	return recs, nil
}
