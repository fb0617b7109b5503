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
)

// CollectionService records field collections and credits the ledger.
type CollectionService struct {
	Store  repositories.TxManager
	Policy CollectionPolicy
	Now    func() time.Time
}

func NewCollectionService(store repositories.TxManager, policy CollectionPolicy) *CollectionService {
	if policy == nil {
		policy = FloorAtZero
	}
	return &CollectionService{Store: store, Policy: policy, Now: timeutil.Now}
}

// RecordCollection inserts an unverified completed transaction and applies the
// collection to the shop's balance in the same database transaction.
func (s *CollectionService) RecordCollection(ctx context.Context, identity auth.Identity, req *models.RecordCollectionRequest) (*models.Transaction, error) {
	if err := identity.Require(auth.RoleFieldStaff); err != nil {
		return nil, err
	}
	if err := identity.RequireSelf(req.EmployeeID); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, apperr.Validation(apperr.CodeInvalidAmount, "amount", "amount must be greater than zero")
	}
	if err := validateScale(req.Amount, "amount"); err != nil {
		return nil, err
	}
	if !req.PaymentMode.Valid() {
		return nil, apperr.Validation(apperr.CodeInvalidPaymentMode, "payment_mode", "payment mode must be cash, upi or cheque")
	}

	now := s.Now()
	txn := &models.Transaction{
		EmployeeID:   req.EmployeeID,
		ShopID:       req.ShopID,
		Amount:       req.Amount,
		PaymentMode:  req.PaymentMode,
		Status:       models.TransactionStatusCompleted,
		Reference:    req.Reference,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		BusinessDate: timeutil.BusinessDate(now),
		CreatedAt:    now,
	}

	var entry *models.AuditLogEntry
	err := s.Store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		shop, err := repos.Shops.GetForUpdate(ctx, req.ShopID)
		if err != nil {
			return err
		}

		newBalance, err := s.Policy(shop.CurrentBalance, req.Amount)
		if err != nil {
			return err
		}

		if err := repos.Transactions.Insert(ctx, txn); err != nil {
			return err
		}

		entry, err = applyInTx(ctx, repos, shop, ledgerMutation{
			Kind:          models.AuditKindCollection,
			NewBalance:    newBalance,
			ActorID:       identity.EmployeeID,
			Note:          "collection via " + string(req.PaymentMode),
			TransactionID: &txn.ID,
			At:            now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.ObserveCollection(string(txn.PaymentMode), txn.Amount)
	log := logger.FromContext(ctx)
	log.Info().
		Int64("transaction_id", txn.ID).
		Int64("employee_id", txn.EmployeeID).
		Int64("shop_id", txn.ShopID).
		Str("amount", txn.Amount.StringFixed(2)).
		Str("payment_mode", string(txn.PaymentMode)).
		Str("new_balance", entry.NewBalance.StringFixed(2)).
		Msg("collection recorded")
	return txn, nil
}

// ListTransactions lists collections. Field staff only ever see their own.
func (s *CollectionService) ListTransactions(ctx context.Context, identity auth.Identity, filter models.TransactionFilter) ([]models.Transaction, error) {
	if !identity.IsAdmin() {
		if filter.EmployeeID != 0 && filter.EmployeeID != identity.EmployeeID {
			return nil, apperr.Unauthorized(apperr.CodeNotOwner, "employees may only list their own collections")
		}
		filter.EmployeeID = identity.EmployeeID
	}
	if filter.Date != "" {
		date, err := timeutil.ParseDate(filter.Date)
		if err != nil {
			return nil, apperr.Validation(apperr.CodeInvalidDate, "date", "date must be YYYY-MM-DD")
		}
		filter.Date = date
	}
	if filter.PaymentMode != "" && !filter.PaymentMode.Valid() {
		return nil, apperr.Validation(apperr.CodeInvalidPaymentMode, "payment_mode", "payment mode must be cash, upi or cheque")
	}
	return s.Store.Repos().Transactions.List(ctx, filter)
}
