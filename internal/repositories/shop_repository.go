package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"collection-backend/internal/apperr"
	"collection-backend/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type ShopRepository struct {
	q       querier
	dialect Dialect
}

const shopColumns = `id, name, zone, address, opening_balance, current_balance, created_at, updated_at, deleted_at`

// Create inserts a shop whose current balance starts at its opening balance.
func (r *ShopRepository) Create(ctx context.Context, shop *models.Shop) error {
	now := time.Now().UTC()
	shop.CurrentBalance = shop.OpeningBalance
	shop.CreatedAt = now
	shop.UpdatedAt = now

	query := r.q.Rebind(`
		INSERT INTO shops (name, zone, address, opening_balance, current_balance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := sqlx.GetContext(ctx, r.q, &shop.ID, query,
		shop.Name, shop.Zone, shop.Address, shop.OpeningBalance, shop.CurrentBalance, now, now)
	if err != nil {
		return fmt.Errorf("failed to create shop: %w", err)
	}
	return nil
}

// Get returns a live shop. Tombstoned shops are NotFound.
func (r *ShopRepository) Get(ctx context.Context, id int64) (*models.Shop, error) {
	query := r.q.Rebind(`SELECT ` + shopColumns + ` FROM shops WHERE id = ? AND deleted_at IS NULL`)

	var shop models.Shop
	if err := sqlx.GetContext(ctx, r.q, &shop, query, id); err != nil {
		return nil, notFound(err, "shop", id)
	}
	return &shop, nil
}

// GetForUpdate is Get with a row lock held until the transaction ends.
func (r *ShopRepository) GetForUpdate(ctx context.Context, id int64) (*models.Shop, error) {
	query := r.q.Rebind(r.dialect.forUpdate(
		`SELECT ` + shopColumns + ` FROM shops WHERE id = ? AND deleted_at IS NULL`))

	var shop models.Shop
	if err := sqlx.GetContext(ctx, r.q, &shop, query, id); err != nil {
		return nil, notFound(err, "shop", id)
	}
	return &shop, nil
}

// UpdateBalance writes a new current balance. Callers must hold the row lock
// and append the matching audit entry in the same transaction.
func (r *ShopRepository) UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal, at time.Time) error {
	query := r.q.Rebind(`UPDATE shops SET current_balance = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`)

	res, err := r.q.ExecContext(ctx, query, balance, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update shop balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("shop", id)
	}
	return nil
}

// SoftDelete tombstones a shop. Deleting twice is NotFound.
func (r *ShopRepository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	query := r.q.Rebind(`UPDATE shops SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`)

	res, err := r.q.ExecContext(ctx, query, at.UTC(), at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete shop: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("shop", id)
	}
	return nil
}

func (r *ShopRepository) List(ctx context.Context, filter models.ShopFilter) ([]models.Shop, error) {
	var conditions []string
	var args []interface{}

	if !filter.IncludeDeleted {
		conditions = append(conditions, "deleted_at IS NULL")
	}
	if filter.Zone != "" {
		conditions = append(conditions, "zone = ?")
		args = append(args, filter.Zone)
	}

	query := `SELECT ` + shopColumns + ` FROM shops`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY name, id"
	query, args = paginate(query, args, filter.Limit, filter.Offset)

	shops := []models.Shop{}
	if err := sqlx.SelectContext(ctx, r.q, &shops, r.q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}
	return shops, nil
}

// paginate appends LIMIT/OFFSET, defaulting to 100 rows.
func paginate(query string, args []interface{}, limit, offset int) (string, []interface{}) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return query + " LIMIT ? OFFSET ?", append(args, limit, offset)
}
