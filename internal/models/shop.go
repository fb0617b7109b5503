package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Shop is a collection point. CurrentBalance is the amount the shop owes and
// is only ever changed through the ledger.
type Shop struct {
	ID             int64           `db:"id" json:"id"`
	Name           string          `db:"name" json:"name"`
	Zone           string          `db:"zone" json:"zone"`
	Address        string          `db:"address" json:"address"`
	OpeningBalance decimal.Decimal `db:"opening_balance" json:"opening_balance"`
	CurrentBalance decimal.Decimal `db:"current_balance" json:"current_balance"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
	DeletedAt      *time.Time      `db:"deleted_at" json:"deleted_at,omitempty"`
}

// IsDeleted reports whether the shop has been tombstoned.
func (s *Shop) IsDeleted() bool {
	return s.DeletedAt != nil
}

// CreateShopRequest is used when an admin registers a shop
type CreateShopRequest struct {
	Name           string          `json:"name" validate:"required,max=200"`
	Zone           string          `json:"zone" validate:"max=100"`
	Address        string          `json:"address"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// ShopFilter is used for listing shops
type ShopFilter struct {
	Zone           string
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// BalanceChangeRequest is the body of a manual ledger mutation.
// Mode "delta" applies a signed amount, "override" sets an absolute balance.
// Amount is a pointer so an omitted amount is told apart from zero.
type BalanceChangeRequest struct {
	Mode   string           `json:"mode" validate:"required,oneof=delta override"`
	Amount *decimal.Decimal `json:"amount"`
	Note   string           `json:"note"`
}
