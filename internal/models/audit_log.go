package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuditKind records which ledger operation produced an entry
type AuditKind string

const (
	AuditKindDelta      AuditKind = "delta"      // Signed transactional debit/credit
	AuditKindOverride   AuditKind = "override"   // Manual absolute correction, note mandatory
	AuditKindCollection AuditKind = "collection" // Field collection credited to the shop
)

// AuditLogEntry is an immutable record of one balance mutation.
// ChangeAmount is always NewBalance - PreviousBalance.
type AuditLogEntry struct {
	ID              int64           `db:"id" json:"id"`
	ShopID          int64           `db:"shop_id" json:"shop_id"`
	Kind            AuditKind       `db:"kind" json:"kind"`
	PreviousBalance decimal.Decimal `db:"previous_balance" json:"previous_balance"`
	NewBalance      decimal.Decimal `db:"new_balance" json:"new_balance"`
	ChangeAmount    decimal.Decimal `db:"change_amount" json:"change_amount"`
	Note            string          `db:"note" json:"note"`
	ActorID         int64           `db:"actor_id" json:"actor_id"`
	TransactionID   *int64          `db:"transaction_id" json:"transaction_id,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// AuditSummary aggregates a shop's audit trail
type AuditSummary struct {
	Entries      int64           `db:"entries" json:"entries"`
	SumOfChanges decimal.Decimal `db:"sum_of_changes" json:"sum_of_changes"`
}

// LedgerIntegrity compares a shop's stored balance against its audit trail
type LedgerIntegrity struct {
	ShopID         int64           `json:"shop_id"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	SumOfChanges   decimal.Decimal `json:"sum_of_changes"`
	Entries        int64           `json:"entries"`
	Drift          decimal.Decimal `json:"drift"` // current - (opening + sum)
	Consistent     bool            `json:"consistent"`
}
