package repositories

import (
	"context"
	"fmt"

	"collection-backend/internal/models"

	"github.com/jmoiron/sqlx"
)

// AuditLogRepository is append-only: there is no update or delete.
type AuditLogRepository struct {
	q querier
}

const auditLogColumns = `id, shop_id, kind, previous_balance, new_balance, change_amount, note, actor_id, transaction_id, created_at`

func (r *AuditLogRepository) Append(ctx context.Context, entry *models.AuditLogEntry) error {
	entry.CreatedAt = entry.CreatedAt.UTC()

	query := r.q.Rebind(`
		INSERT INTO audit_logs (
			shop_id, kind, previous_balance, new_balance, change_amount,
			note, actor_id, transaction_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := sqlx.GetContext(ctx, r.q, &entry.ID, query,
		entry.ShopID,
		entry.Kind,
		entry.PreviousBalance,
		entry.NewBalance,
		entry.ChangeAmount,
		entry.Note,
		entry.ActorID,
		entry.TransactionID,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit log: %w", err)
	}
	return nil
}

// ListByShop returns a shop's audit trail, newest first.
func (r *AuditLogRepository) ListByShop(ctx context.Context, shopID int64, limit, offset int) ([]models.AuditLogEntry, error) {
	query, args := paginate(
		`SELECT `+auditLogColumns+` FROM audit_logs WHERE shop_id = ? ORDER BY id DESC`,
		[]interface{}{shopID}, limit, offset)

	entries := []models.AuditLogEntry{}
	if err := sqlx.SelectContext(ctx, r.q, &entries, r.q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return entries, nil
}

// Summarize counts a shop's entries and sums their change amounts.
func (r *AuditLogRepository) Summarize(ctx context.Context, shopID int64) (*models.AuditSummary, error) {
	query := r.q.Rebind(`
		SELECT COUNT(*) AS entries, COALESCE(SUM(change_amount), 0) AS sum_of_changes
		FROM audit_logs
		WHERE shop_id = ?
	`)

	var summary models.AuditSummary
	if err := sqlx.GetContext(ctx, r.q, &summary, query, shopID); err != nil {
		return nil, fmt.Errorf("failed to summarize audit logs: %w", err)
	}
	summary.SumOfChanges = summary.SumOfChanges.Round(2)
	return &summary, nil
}
