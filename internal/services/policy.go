package services

import (
	"fmt"

	"collection-backend/internal/apperr"

	"github.com/shopspring/decimal"
)

// CollectionPolicy computes a shop's balance after collecting amount from it.
type CollectionPolicy func(current, collected decimal.Decimal) (decimal.Decimal, error)

// FloorAtZero never lets the balance go negative; any excess over the amount
// due is discarded.
func FloorAtZero(current, collected decimal.Decimal) (decimal.Decimal, error) {
	next := current.Sub(collected)
	if next.IsNegative() {
		return decimal.Zero, nil
	}
	return next, nil
}

// RejectOvercollection refuses collections larger than the amount due.
func RejectOvercollection(current, collected decimal.Decimal) (decimal.Decimal, error) {
	if collected.GreaterThan(current) {
		return decimal.Zero, apperr.Validation(apperr.CodeOvercollection, "amount",
			fmt.Sprintf("collected %s exceeds the shop balance of %s", collected.StringFixed(2), current.StringFixed(2)))
	}
	return current.Sub(collected), nil
}

// TrackAsCredit keeps the excess as a negative balance owed to the shop.
func TrackAsCredit(current, collected decimal.Decimal) (decimal.Decimal, error) {
	return current.Sub(collected), nil
}

// PolicyByName resolves the ledger.overcollection_policy setting.
func PolicyByName(name string) (CollectionPolicy, error) {
	switch name {
	case "", "floor":
		return FloorAtZero, nil
	case "reject":
		return RejectOvercollection, nil
	case "credit":
		return TrackAsCredit, nil
	default:
		return nil, fmt.Errorf("unknown overcollection policy %q", name)
	}
}
