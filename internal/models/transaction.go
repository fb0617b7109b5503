package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMode is how a collection was paid
type PaymentMode string

const (
	PaymentModeCash   PaymentMode = "cash"
	PaymentModeUPI    PaymentMode = "upi"
	PaymentModeCheque PaymentMode = "cheque"
)

// Valid reports whether m is a supported payment mode.
func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentModeCash, PaymentModeUPI, PaymentModeCheque:
		return true
	}
	return false
}

// TransactionStatus of a recorded collection
type TransactionStatus string

const TransactionStatusCompleted TransactionStatus = "completed"

// Transaction is one collection event recorded by a field agent.
// IsVerified flips false -> true at most once, on office handover.
type Transaction struct {
	ID           int64             `db:"id" json:"id"`
	EmployeeID   int64             `db:"employee_id" json:"employee_id"`
	ShopID       int64             `db:"shop_id" json:"shop_id"`
	Amount       decimal.Decimal   `db:"amount" json:"amount"`
	PaymentMode  PaymentMode       `db:"payment_mode" json:"payment_mode"`
	Status       TransactionStatus `db:"status" json:"status"`
	Reference    *string           `db:"reference" json:"reference,omitempty"`
	Latitude     *float64          `db:"latitude" json:"latitude,omitempty"`
	Longitude    *float64          `db:"longitude" json:"longitude,omitempty"`
	BusinessDate string            `db:"business_date" json:"date"` // IST date, YYYY-MM-DD
	IsVerified   bool              `db:"is_verified" json:"is_verified"`
	VerifiedAt   *time.Time        `db:"verified_at" json:"verified_at,omitempty"`
	VerifiedBy   *int64            `db:"verified_by" json:"verified_by,omitempty"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
}

// RecordCollectionRequest is the body of a field collection
type RecordCollectionRequest struct {
	EmployeeID  int64           `json:"employee_id" validate:"required"`
	ShopID      int64           `json:"shop_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentMode PaymentMode     `json:"payment_mode" validate:"required"`
	Reference   *string         `json:"reference"`
	Latitude    *float64        `json:"latitude" validate:"omitempty,latitude"`
	Longitude   *float64        `json:"longitude" validate:"omitempty,longitude"`
}

// TransactionFilter is used for listing transactions
type TransactionFilter struct {
	EmployeeID     int64
	ShopID         int64
	Date           string
	PaymentMode    PaymentMode
	UnverifiedOnly bool
	Limit          int
	Offset         int
}

// AmountFilter selects the transactions summed by SumAmount
type AmountFilter struct {
	EmployeeID     int64
	Date           string
	PaymentMode    PaymentMode
	Status         TransactionStatus
	UnverifiedOnly bool
}

// HandoverResult reports the transactions moved into office custody
type HandoverResult struct {
	EmployeeID     int64           `json:"employee_id"`
	Count          int             `json:"count"`
	Total          decimal.Decimal `json:"total"`
	TransactionIDs []int64         `json:"transaction_ids"`
	VerifiedAt     *time.Time      `json:"verified_at,omitempty"`
}
