package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReconciliationStatus of a day's cash match. "pending" is implicit: no record exists yet.
type ReconciliationStatus string

const (
	ReconciliationPending  ReconciliationStatus = "pending"
	ReconciliationVerified ReconciliationStatus = "verified"
	ReconciliationMismatch ReconciliationStatus = "mismatch"
	ReconciliationClosed   ReconciliationStatus = "closed"
)

// Overridable reports whether an admin may force this status on verify.
func (s ReconciliationStatus) Overridable() bool {
	return s == ReconciliationVerified || s == ReconciliationMismatch
}

// Reconciliation is the single record for (EmployeeID, Date). Verification
// replaces it in place; it is never appended.
type Reconciliation struct {
	ID           int64                `db:"id" json:"id"`
	EmployeeID   int64                `db:"employee_id" json:"employee_id"`
	Date         string               `db:"business_date" json:"date"`
	ExpectedCash decimal.Decimal      `db:"expected_cash" json:"expected_cash"`
	ActualCash   decimal.Decimal      `db:"actual_cash" json:"actual_cash"`
	Variance     decimal.Decimal      `db:"variance" json:"variance"` // actual - expected
	Status       ReconciliationStatus `db:"status" json:"status"`
	Note         *string              `db:"note" json:"note,omitempty"`
	VerifiedBy   int64                `db:"verified_by" json:"verified_by"`
	VerifiedAt   time.Time            `db:"verified_at" json:"verified_at"`
	ClosedAt     *time.Time           `db:"closed_at" json:"closed_at,omitempty"`
	CreatedAt    time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time            `db:"updated_at" json:"updated_at"`
}

// VerifyReconciliationRequest declares the cash an employee handed over for a date
type VerifyReconciliationRequest struct {
	EmployeeID   int64                 `json:"employee_id" validate:"required"`
	Date         string                `json:"date" validate:"required"`
	ActualCash   *decimal.Decimal      `json:"actual_cash"`
	Note         *string               `json:"note"`
	ForcedStatus *ReconciliationStatus `json:"forced_status"`
}

// OverrideReconciliationRequest re-verifies an existing record by id
type OverrideReconciliationRequest struct {
	ActualCash   *decimal.Decimal      `json:"actual_cash"`
	Note         *string               `json:"note"`
	ForcedStatus *ReconciliationStatus `json:"forced_status"`
}

// CloseDayRequest is the body of the end-of-day sweep
type CloseDayRequest struct {
	Date string `json:"date" validate:"required"`
}

// CloseDayResult reports how many records the sweep closed
type CloseDayResult struct {
	Date   string `json:"date"`
	Closed int64  `json:"closed"`
}
