package services

import (
	"context"
	"time"

	"collection-backend/internal/apperr"
	"collection-backend/internal/auth"
	"collection-backend/internal/logger"
	"collection-backend/internal/metrics"
	"collection-backend/internal/models"
	"collection-backend/internal/repositories"
	"collection-backend/internal/timeutil"

	"github.com/shopspring/decimal"
)

// HandoverService moves collected cash from field custody to the office.
type HandoverService struct {
	Store repositories.TxManager
	Now   func() time.Time
}

func NewHandoverService(store repositories.TxManager) *HandoverService {
	return &HandoverService{Store: store, Now: timeutil.Now}
}

// VerifyHandover marks every currently unverified cash transaction of the
// employee as verified. The snapshot and the update share one transaction, so
// collections recorded after the snapshot stay unverified. Nothing pending is
// a no-op, not an error; an unknown employee is NotFound.
func (s *HandoverService) VerifyHandover(ctx context.Context, identity auth.Identity, employeeID int64) (*models.HandoverResult, error) {
	if err := identity.Require(auth.RoleAdmin); err != nil {
		return nil, err
	}

	result := &models.HandoverResult{
		EmployeeID:     employeeID,
		Total:          decimal.Zero,
		TransactionIDs: []int64{},
	}

	err := s.Store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		if _, err := repos.Employees.Get(ctx, employeeID); err != nil {
			return err
		}

		pending, err := repos.Transactions.LockUnverifiedCash(ctx, employeeID)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}

		for _, txn := range pending {
			result.TransactionIDs = append(result.TransactionIDs, txn.ID)
			result.Total = result.Total.Add(txn.Amount)
		}

		verifiedAt := s.Now()
		updated, err := repos.Transactions.MarkVerified(ctx, result.TransactionIDs, identity.EmployeeID, verifiedAt)
		if err != nil {
			return err
		}
		if int(updated) != len(pending) {
			return apperr.Conflict(apperr.CodeInvalidStatus, "transactions changed during handover, retry", nil)
		}

		result.Count = len(pending)
		result.VerifiedAt = &verifiedAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Count > 0 {
		metrics.HandoverTransactions.Add(float64(result.Count))
		log := logger.FromContext(ctx)
		log.Info().
			Int64("employee_id", employeeID).
			Int("count", result.Count).
			Str("total", result.Total.StringFixed(2)).
			Int64("verified_by", identity.EmployeeID).
			Msg("handover verified")
	}
	return result, nil
}

// CashInBag is the unverified cash an employee collected on date.
func (s *HandoverService) CashInBag(ctx context.Context, identity auth.Identity, employeeID int64, date string) (decimal.Decimal, error) {
	if err := identity.RequireSelfOrAdmin(employeeID); err != nil {
		return decimal.Zero, err
	}
	day, err := timeutil.ParseDate(date)
	if err != nil {
		return decimal.Zero, apperr.Validation(apperr.CodeInvalidDate, "date", "date must be YYYY-MM-DD")
	}

	return s.Store.Repos().Transactions.SumAmount(ctx, models.AmountFilter{
		EmployeeID:     employeeID,
		Date:           day,
		PaymentMode:    models.PaymentModeCash,
		UnverifiedOnly: true,
	})
}
