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

// BalanceChange is either a signed delta or an absolute override.
type BalanceChange struct {
	Kind   models.AuditKind
	Amount decimal.Decimal
}

func Delta(amount decimal.Decimal) BalanceChange {
	return BalanceChange{Kind: models.AuditKindDelta, Amount: amount}
}

func Override(balance decimal.Decimal) BalanceChange {
	return BalanceChange{Kind: models.AuditKindOverride, Amount: balance}
}

// ledgerMutation is one balance write plus the audit entry that records it.
type ledgerMutation struct {
	Kind          models.AuditKind
	NewBalance    decimal.Decimal
	ActorID       int64
	Note          string
	TransactionID *int64
	At            time.Time
}

// applyInTx persists a new balance for a locked shop and appends its audit
// entry. It must run inside Store.WithTx.
func applyInTx(ctx context.Context, repos *repositories.Repositories, shop *models.Shop, m ledgerMutation) (*models.AuditLogEntry, error) {
	entry := &models.AuditLogEntry{
		ShopID:          shop.ID,
		Kind:            m.Kind,
		PreviousBalance: shop.CurrentBalance,
		NewBalance:      m.NewBalance,
		ChangeAmount:    m.NewBalance.Sub(shop.CurrentBalance),
		Note:            m.Note,
		ActorID:         m.ActorID,
		TransactionID:   m.TransactionID,
		CreatedAt:       m.At,
	}

	if err := repos.Shops.UpdateBalance(ctx, shop.ID, m.NewBalance, m.At); err != nil {
		return nil, err
	}
	if err := repos.AuditLogs.Append(ctx, entry); err != nil {
		return nil, err
	}

	shop.CurrentBalance = m.NewBalance
	shop.UpdatedAt = m.At
	metrics.BalanceChanges.WithLabelValues(string(m.Kind)).Inc()
	return entry, nil
}

// LedgerService owns shop balances and their audit trail.
type LedgerService struct {
	Store repositories.TxManager
	Now   func() time.Time
}

func NewLedgerService(store repositories.TxManager) *LedgerService {
	return &LedgerService{Store: store, Now: timeutil.Now}
}

// ApplyBalanceChange locks the shop, computes the new balance, persists it and
// appends exactly one audit entry, all in one transaction.
func (s *LedgerService) ApplyBalanceChange(ctx context.Context, identity auth.Identity, shopID int64, change BalanceChange, note string) (decimal.Decimal, error) {
	if err := identity.Require(auth.RoleAdmin); err != nil {
		return decimal.Zero, err
	}
	note = strings.TrimSpace(note)

	switch change.Kind {
	case models.AuditKindDelta:
		if change.Amount.IsZero() {
			return decimal.Zero, apperr.Validation(apperr.CodeInvalidAmount, "amount", "delta must be non-zero")
		}
	case models.AuditKindOverride:
		if note == "" {
			return decimal.Zero, apperr.Validation(apperr.CodeNoteRequired, "note", "a note is required for manual overrides")
		}
	default:
		return decimal.Zero, apperr.Validation(apperr.CodeInvalidInput, "mode", "mode must be delta or override")
	}
	if err := validateScale(change.Amount, "amount"); err != nil {
		return decimal.Zero, err
	}

	var newBalance decimal.Decimal
	err := s.Store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		shop, err := repos.Shops.GetForUpdate(ctx, shopID)
		if err != nil {
			return err
		}

		newBalance = change.Amount
		if change.Kind == models.AuditKindDelta {
			newBalance = shop.CurrentBalance.Add(change.Amount)
		}

		_, err = applyInTx(ctx, repos, shop, ledgerMutation{
			Kind:       change.Kind,
			NewBalance: newBalance,
			ActorID:    identity.EmployeeID,
			Note:       note,
			At:         s.Now(),
		})
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Int64("shop_id", shopID).
		Str("kind", string(change.Kind)).
		Str("new_balance", newBalance.StringFixed(2)).
		Int64("actor_id", identity.EmployeeID).
		Msg("balance changed")
	return newBalance, nil
}

func (s *LedgerService) CreateShop(ctx context.Context, identity auth.Identity, req *models.CreateShopRequest) (*models.Shop, error) {
	if err := identity.Require(auth.RoleAdmin); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "name", "shop name is required")
	}
	if err := validateScale(req.OpeningBalance, "opening_balance"); err != nil {
		return nil, err
	}

	shop := &models.Shop{
		Name:           name,
		Zone:           strings.TrimSpace(req.Zone),
		Address:        strings.TrimSpace(req.Address),
		OpeningBalance: req.OpeningBalance,
	}
	if err := s.Store.Repos().Shops.Create(ctx, shop); err != nil {
		return nil, err
	}
	return shop, nil
}

func (s *LedgerService) GetShop(ctx context.Context, shopID int64) (*models.Shop, error) {
	return s.Store.Repos().Shops.Get(ctx, shopID)
}

// ListShops returns live shops; tombstoned ones are included only for admins.
func (s *LedgerService) ListShops(ctx context.Context, identity auth.Identity, filter models.ShopFilter) ([]models.Shop, error) {
	if !identity.IsAdmin() {
		filter.IncludeDeleted = false
	}
	return s.Store.Repos().Shops.List(ctx, filter)
}

// DeleteShop tombstones a shop. Its balance and audit trail are kept.
func (s *LedgerService) DeleteShop(ctx context.Context, identity auth.Identity, shopID int64) error {
	if err := identity.Require(auth.RoleAdmin); err != nil {
		return err
	}
	if err := s.Store.Repos().Shops.SoftDelete(ctx, shopID, s.Now()); err != nil {
		return err
	}
	log := logger.FromContext(ctx)
	log.Info().Int64("shop_id", shopID).Int64("actor_id", identity.EmployeeID).Msg("shop deleted")
	return nil
}

// AuditTrail returns a shop's audit entries, newest first.
func (s *LedgerService) AuditTrail(ctx context.Context, identity auth.Identity, shopID int64, limit, offset int) ([]models.AuditLogEntry, error) {
	if err := identity.Require(auth.RoleAdmin); err != nil {
		return nil, err
	}
	if _, err := s.Store.Repos().Shops.Get(ctx, shopID); err != nil {
		return nil, err
	}
	return s.Store.Repos().AuditLogs.ListByShop(ctx, shopID, limit, offset)
}

// CheckIntegrity verifies current balance = opening balance + Σ change amounts.
// The stored balance is authoritative; a non-zero drift means the audit trail
// no longer explains it.
func (s *LedgerService) CheckIntegrity(ctx context.Context, identity auth.Identity, shopID int64) (*models.LedgerIntegrity, error) {
	if err := identity.Require(auth.RoleAdmin); err != nil {
		return nil, err
	}

	var result *models.LedgerIntegrity
	err := s.Store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		shop, err := repos.Shops.Get(ctx, shopID)
		if err != nil {
			return err
		}
		summary, err := repos.AuditLogs.Summarize(ctx, shopID)
		if err != nil {
			return err
		}

		drift := shop.CurrentBalance.Sub(shop.OpeningBalance.Add(summary.SumOfChanges))
		result = &models.LedgerIntegrity{
			ShopID:         shop.ID,
			OpeningBalance: shop.OpeningBalance,
			CurrentBalance: shop.CurrentBalance,
			SumOfChanges:   summary.SumOfChanges,
			Entries:        summary.Entries,
			Drift:          drift,
			Consistent:     drift.IsZero(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.Consistent {
		log := logger.FromContext(ctx)
		log.Warn().
			Int64("shop_id", shopID).
			Str("drift", result.Drift.StringFixed(2)).
			Msg("ledger drift detected")
	}
	return result, nil
}

// validateScale rejects amounts with more than two decimal places.
func validateScale(amount decimal.Decimal, field string) error {
	if amount.Exponent() < -2 && !amount.Equal(amount.Round(2)) {
		return apperr.Validation(apperr.CodeInvalidAmount, field, "amounts carry at most two decimal places")
	}
	return nil
}
