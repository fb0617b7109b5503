package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"collection-backend/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type TransactionRepository struct {
	q       querier
	dialect Dialect
}

const transactionColumns = `id, employee_id, shop_id, amount, payment_mode, status, reference, latitude, longitude,
	business_date, is_verified, verified_at, verified_by, created_at`

func (r *TransactionRepository) Insert(ctx context.Context, txn *models.Transaction) error {
	txn.CreatedAt = txn.CreatedAt.UTC()

	query := r.q.Rebind(`
		INSERT INTO transactions (
			employee_id, shop_id, amount, payment_mode, status, reference,
			latitude, longitude, business_date, is_verified, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := sqlx.GetContext(ctx, r.q, &txn.ID, query,
		txn.EmployeeID,
		txn.ShopID,
		txn.Amount,
		txn.PaymentMode,
		txn.Status,
		txn.Reference,
		txn.Latitude,
		txn.Longitude,
		txn.BusinessDate,
		txn.IsVerified,
		txn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) Get(ctx context.Context, id int64) (*models.Transaction, error) {
	query := r.q.Rebind(`SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`)

	var txn models.Transaction
	if err := sqlx.GetContext(ctx, r.q, &txn, query, id); err != nil {
		return nil, notFound(err, "transaction", id)
	}
	return &txn, nil
}

func (r *TransactionRepository) List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	var conditions []string
	var args []interface{}

	if filter.EmployeeID != 0 {
		conditions = append(conditions, "employee_id = ?")
		args = append(args, filter.EmployeeID)
	}
	if filter.ShopID != 0 {
		conditions = append(conditions, "shop_id = ?")
		args = append(args, filter.ShopID)
	}
	if filter.Date != "" {
		conditions = append(conditions, "business_date = ?")
		args = append(args, filter.Date)
	}
	if filter.PaymentMode != "" {
		conditions = append(conditions, "payment_mode = ?")
		args = append(args, filter.PaymentMode)
	}
	if filter.UnverifiedOnly {
		conditions = append(conditions, "is_verified = ?")
		args = append(args, false)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	query, args = paginate(query, args, filter.Limit, filter.Offset)

	txns := []models.Transaction{}
	if err := sqlx.SelectContext(ctx, r.q, &txns, r.q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, nil
}

// LockUnverifiedCash snapshots the employee's unverified cash transactions,
// locking the rows until the transaction ends.
func (r *TransactionRepository) LockUnverifiedCash(ctx context.Context, employeeID int64) ([]models.Transaction, error) {
	query := r.q.Rebind(r.dialect.forUpdate(`
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE employee_id = ? AND payment_mode = ? AND is_verified = ?
		ORDER BY id`))

	txns := []models.Transaction{}
	if err := sqlx.SelectContext(ctx, r.q, &txns, query, employeeID, models.PaymentModeCash, false); err != nil {
		return nil, fmt.Errorf("failed to lock unverified transactions: %w", err)
	}
	return txns, nil
}

// MarkVerified flips exactly the given ids that are still unverified and
// returns how many rows changed.
func (r *TransactionRepository) MarkVerified(ctx context.Context, ids []int64, verifiedBy int64, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`
		UPDATE transactions
		SET is_verified = ?, verified_at = ?, verified_by = ?
		WHERE id IN (?) AND is_verified = ?`,
		true, at.UTC(), verifiedBy, ids, false)
	if err != nil {
		return 0, fmt.Errorf("failed to build verify query: %w", err)
	}

	res, err := r.q.ExecContext(ctx, r.q.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark transactions verified: %w", err)
	}
	return res.RowsAffected()
}

// SumAmount totals the transactions matching filter. Money is stored with two
// decimal places, so the aggregate is rounded to the same scale.
func (r *TransactionRepository) SumAmount(ctx context.Context, filter models.AmountFilter) (decimal.Decimal, error) {
	var conditions []string
	var args []interface{}

	if filter.EmployeeID != 0 {
		conditions = append(conditions, "employee_id = ?")
		args = append(args, filter.EmployeeID)
	}
	if filter.Date != "" {
		conditions = append(conditions, "business_date = ?")
		args = append(args, filter.Date)
	}
	if filter.PaymentMode != "" {
		conditions = append(conditions, "payment_mode = ?")
		args = append(args, filter.PaymentMode)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.UnverifiedOnly {
		conditions = append(conditions, "is_verified = ?")
		args = append(args, false)
	}

	query := `SELECT COALESCE(SUM(amount), 0) FROM transactions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	var total decimal.Decimal
	if err := sqlx.GetContext(ctx, r.q, &total, r.q.Rebind(query), args...); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return total.Round(2), nil
}
