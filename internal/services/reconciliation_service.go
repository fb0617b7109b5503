package services

import (
	"context"
	"strings"
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

// ReconciliationService matches declared cash against recorded collections.
type ReconciliationService struct {
	Store repositories.TxManager
	// BlockAfterClose rejects verification of a closed record with a conflict
	// instead of replacing it.
	BlockAfterClose bool
	Now             func() time.Time
}

func NewReconciliationService(store repositories.TxManager, blockAfterClose bool) *ReconciliationService {
	return &ReconciliationService{Store: store, BlockAfterClose: blockAfterClose, Now: timeutil.Now}
}

type verification struct {
	actualCash   decimal.Decimal
	note         *string
	forcedStatus *models.ReconciliationStatus
}

func newVerification(actualCash *decimal.Decimal, note *string, forced *models.ReconciliationStatus) (verification, error) {
	if actualCash == nil {
		return verification{}, apperr.Validation(apperr.CodeInvalidAmount, "actual_cash", "actual cash is required")
	}
	actual := *actualCash
	if actual.IsNegative() {
		return verification{}, apperr.Validation(apperr.CodeInvalidAmount, "actual_cash", "actual cash cannot be negative")
	}
	if err := validateScale(actual, "actual_cash"); err != nil {
		return verification{}, err
	}

	if note != nil {
		trimmed := strings.TrimSpace(*note)
		if trimmed == "" {
			note = nil
		} else {
			note = &trimmed
		}
	}

	if forced != nil {
		if !forced.Overridable() {
			return verification{}, apperr.Validation(apperr.CodeInvalidStatus, "forced_status", "forced status must be verified or mismatch")
		}
		if note == nil {
			return verification{}, apperr.Validation(apperr.CodeNoteRequired, "note", "a note is required when forcing a status")
		}
	}
	return verification{actualCash: actual, note: note, forcedStatus: forced}, nil
}

// Verify recomputes expected cash for (employeeID, date) and replaces the
// single reconciliation record for that key.
func (s *ReconciliationService) Verify(ctx context.Context, identity auth.Identity, req *models.VerifyReconciliationRequest) (*models.Reconciliation, error) {
	if err := identity.Require(auth.RoleAdmin); err != nil {
		return nil, err
	}
	date, err := timeutil.ParseDate(req.Date)
	if err != nil {
		return nil, apperr.Validation(apperr.CodeInvalidDate, "date", "date must be YYYY-MM-DD")
	}
	v, err := newVerification(req.ActualCash, req.Note, req.ForcedStatus)
	if err != nil {
		return nil, err
	}

	var rec *models.Reconciliation
	err = s.Store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		if _, err := repos.Employees.Get(ctx, req.EmployeeID); err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				return apperr.Validation(apperr.CodeInvalidInput, "employee_id", "unknown employee")
			}
			return err
		}
		if s.BlockAfterClose {
			existing, err := repos.Reconciliations.GetByKey(ctx, req.EmployeeID, date)
			if err != nil && apperr.KindOf(err) != apperr.KindNotFound {
				return err
			}
			if existing != nil && existing.Status == models.ReconciliationClosed {
				return dayClosed(date)
			}
		}

		rec, err = s.replace(ctx, repos, identity, req.EmployeeID, date, v)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logVerified(ctx, rec, identity)
	return rec, nil
}

// VerifyByID re-verifies an existing record. Unlike Verify it never creates.
func (s *ReconciliationService) VerifyByID(ctx context.Context, identity auth.Identity, id int64, req *models.OverrideReconciliationRequest) (*models.Reconciliation, error) {
	if err := identity.Require(auth.RoleAdmin); err != nil {
		return nil, err
	}
	v, err := newVerification(req.ActualCash, req.Note, req.ForcedStatus)
	if err != nil {
		return nil, err
	}

	var rec *models.Reconciliation
	err = s.Store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		existing, err := repos.Reconciliations.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if s.BlockAfterClose && existing.Status == models.ReconciliationClosed {
			return dayClosed(existing.Date)
		}

		rec, err = s.replace(ctx, repos, identity, existing.EmployeeID, existing.Date, v)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logVerified(ctx, rec, identity)
	return rec, nil
}

// replace evaluates expected cash fresh and writes the record. Status is the
// forced one when supplied, otherwise verified iff variance is zero.
func (s *ReconciliationService) replace(ctx context.Context, repos *repositories.Repositories, identity auth.Identity, employeeID int64, date string, v verification) (*models.Reconciliation, error) {
	expected, err := expectedCash(ctx, repos, employeeID, date)
	if err != nil {
		return nil, err
	}

	variance := v.actualCash.Sub(expected)
	status := models.ReconciliationMismatch
	if variance.IsZero() {
		status = models.ReconciliationVerified
	}
	if v.forcedStatus != nil {
		status = *v.forcedStatus
	}

	return repos.Reconciliations.Replace(ctx, &models.Reconciliation{
		EmployeeID:   employeeID,
		Date:         date,
		ExpectedCash: expected,
		ActualCash:   v.actualCash,
		Variance:     variance,
		Status:       status,
		Note:         v.note,
		VerifiedBy:   identity.EmployeeID,
		VerifiedAt:   s.Now(),
	})
}

// CloseDay moves every record for date to closed, whatever its status.
// Transactions and balances are untouched.
func (s *ReconciliationService) CloseDay(ctx context.Context, identity auth.Identity, date string) (*models.CloseDayResult, error) {
	if err := identity.Require(auth.RoleAdmin); err != nil {
		return nil, err
	}
	day, err := timeutil.ParseDate(date)
	if err != nil {
		return nil, apperr.Validation(apperr.CodeInvalidDate, "date", "date must be YYYY-MM-DD")
	}

	var closed int64
	err = s.Store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		closed, err = repos.Reconciliations.CloseDay(ctx, day, s.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.DaysClosed.Inc()
	log := logger.FromContext(ctx)
	log.Info().
		Str("date", day).
		Int64("closed", closed).
		Int64("actor_id", identity.EmployeeID).
		Msg("day closed")
	return &models.CloseDayResult{Date: day, Closed: closed}, nil
}

// Get returns the record for (employeeID, date). A known employee with no
// record yet is reported as pending, with expected cash as of now.
func (s *ReconciliationService) Get(ctx context.Context, identity auth.Identity, employeeID int64, date string) (*models.Reconciliation, error) {
	if err := identity.Require(auth.RoleAdmin); err != nil {
		return nil, err
	}
	day, err := timeutil.ParseDate(date)
	if err != nil {
		return nil, apperr.Validation(apperr.CodeInvalidDate, "date", "date must be YYYY-MM-DD")
	}

	repos := s.Store.Repos()
	rec, err := repos.Reconciliations.GetByKey(ctx, employeeID, day)
	if err == nil || apperr.KindOf(err) != apperr.KindNotFound {
		return rec, err
	}

	if _, err := repos.Employees.Get(ctx, employeeID); err != nil {
		return nil, err
	}
	expected, err := expectedCash(ctx, repos, employeeID, day)
	if err != nil {
		return nil, err
	}
	return &models.Reconciliation{
		EmployeeID:   employeeID,
		Date:         day,
		ExpectedCash: expected,
		ActualCash:   decimal.Zero,
		Variance:     decimal.Zero,
		Status:       models.ReconciliationPending,
	}, nil
}

func (s *ReconciliationService) ListByDate(ctx context.Context, identity auth.Identity, date string) ([]models.Reconciliation, error) {
	if err := identity.Require(auth.RoleAdmin); err != nil {
		return nil, err
	}
	day, err := timeutil.ParseDate(date)
	if err != nil {
		return nil, apperr.Validation(apperr.CodeInvalidDate, "date", "date must be YYYY-MM-DD")
	}
	return s.Store.Repos().Reconciliations.ListByDate(ctx, day)
}

func (s *ReconciliationService) logVerified(ctx context.Context, rec *models.Reconciliation, identity auth.Identity) {
	metrics.ReconciliationsVerified.WithLabelValues(string(rec.Status)).Inc()
	log := logger.FromContext(ctx)
	log.Info().
		Int64("reconciliation_id", rec.ID).
		Int64("employee_id", rec.EmployeeID).
		Str("date", rec.Date).
		Str("expected", rec.ExpectedCash.StringFixed(2)).
		Str("actual", rec.ActualCash.StringFixed(2)).
		Str("variance", rec.Variance.StringFixed(2)).
		Str("status", string(rec.Status)).
		Int64("verified_by", identity.EmployeeID).
		Msg("reconciliation replaced")
}

func dayClosed(date string) error {
	return apperr.Conflict(apperr.CodeDayClosed, "reconciliation for "+date+" is closed", nil)
}

// expectedCash is the completed cash an employee collected on date.
func expectedCash(ctx context.Context, repos *repositories.Repositories, employeeID int64, date string) (decimal.Decimal, error) {
	return repos.Transactions.SumAmount(ctx, models.AmountFilter{
		EmployeeID:  employeeID,
		Date:        date,
		PaymentMode: models.PaymentModeCash,
		Status:      models.TransactionStatusCompleted,
	})
}
