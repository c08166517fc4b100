package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/foodorder/internal/models"
	"github.com/example/foodorder/internal/pricing"
)

var errSweepConflict = errors.New("expired grants changed during sweep")

// BonusRules configures cashback and grant lifetime.
type BonusRules struct {
	pricing.Rules
	TTL time.Duration
}

// DefaultBonusRules: 10% cashback, 30% max spend, 14 day grants.
var DefaultBonusRules = BonusRules{Rules: pricing.DefaultRules, TTL: 14 * 24 * time.Hour}

// Balance is the reconciled view of a customer's bonus.
// Cached is users.bonus_balance; Spendable is the ledger sum over live grants.
type Balance struct {
	Cached    int64 `json:"cached"`
	Spendable int64 `json:"spendable"`
}

// Usable is the amount an order may draw on: the smaller of both views, never negative.
func (b Balance) Usable() int64 {
	usable := b.Cached
	if b.Spendable < usable {
		usable = b.Spendable
	}
	if usable < 0 {
		return 0
	}
	return usable
}

// BonusLedger owns bonus grants and the cached user balance derived from them.
type BonusLedger struct {
	db    *gorm.DB
	rules BonusRules
	now   func() time.Time
	log   *zap.Logger
}

// NewBonusLedger constructs a BonusLedger.
func NewBonusLedger(db *gorm.DB, rules BonusRules, now func() time.Time, log *zap.Logger) *BonusLedger {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BonusLedger{db: db, rules: rules, now: now, log: log}
}

// WithTx returns a ledger writing through tx.
func (l *BonusLedger) WithTx(tx *gorm.DB) *BonusLedger {
	return &BonusLedger{db: tx, rules: l.rules, now: l.now, log: l.log}
}

// Rules exposes the configured rules.
func (l *BonusLedger) Rules() BonusRules {
	return l.rules
}

// Sweep closes every expired grant that still has an unused remainder and takes the
// remainder off the cached balance. Running it twice is a no-op.
//
// Lock order is user row, then grants, the same as order placement, so concurrent sweeps and
// placements for one customer serialize.
func (l *BonusLedger) Sweep(ctx context.Context, userID uuid.UUID) (int64, error) {
	var swept int64
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var users []models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").Where("id = ?", userID).Limit(1).
			Find(&users).Error; err != nil {
			return err
		}
		if len(users) == 0 {
			return nil
		}

		var grants []models.BonusTransaction
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND expires_at < ? AND used < amount", userID, l.now()).
			Find(&grants).Error; err != nil {
			return err
		}

		var err error
		swept, err = closeExpired(tx, userID, grants)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("sweep expired bonus: %w", err)
	}

	if swept > 0 {
		l.log.Info("expired bonus swept", zap.String("user_id", userID.String()), zap.Int64("amount", swept))
	}
	return swept, nil
}

// closeExpired marks grants fully used and subtracts their remainders from the cached balance.
// A grant that another writer closed since it was read fails the call, so a stale read can
// never be charged twice.
func closeExpired(tx *gorm.DB, userID uuid.UUID, grants []models.BonusTransaction) (int64, error) {
	if len(grants) == 0 {
		return 0, nil
	}

	var swept int64
	ids := make([]uuid.UUID, 0, len(grants))
	for _, g := range grants {
		swept += g.Remaining()
		ids = append(ids, g.ID)
	}

	res := tx.Model(&models.BonusTransaction{}).
		Where("id IN ? AND used < amount", ids).
		UpdateColumn("used", gorm.Expr("amount"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected != int64(len(grants)) {
		return 0, errSweepConflict
	}

	if err := tx.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("bonus_balance", gorm.Expr("bonus_balance - ?", swept)).Error; err != nil {
		return 0, err
	}
	return swept, nil
}

// Spendable sums the unused part of grants that have not expired.
func (l *BonusLedger) Spendable(ctx context.Context, userID uuid.UUID) (int64, error) {
	var total int64
	if err := l.db.WithContext(ctx).Model(&models.BonusTransaction{}).
		Where("user_id = ? AND expires_at >= ? AND used < amount", userID, l.now()).
		Select("COALESCE(SUM(amount - used), 0)").
		Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("sum spendable bonus: %w", err)
	}
	return total, nil
}

// Reconcile sweeps expired grants and returns both views of the balance.
func (l *BonusLedger) Reconcile(ctx context.Context, userID uuid.UUID) (Balance, error) {
	if _, err := l.Sweep(ctx, userID); err != nil {
		return Balance{}, err
	}

	var user models.User
	if err := l.db.WithContext(ctx).Select("id", "bonus_balance").First(&user, "id = ?", userID).Error; err != nil {
		return Balance{}, fmt.Errorf("load user balance: %w", err)
	}

	spendable, err := l.Spendable(ctx, userID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{Cached: user.BonusBalance, Spendable: spendable}, nil
}

// Debit consumes amount from live grants, soonest expiry first. It returns what was
// actually consumed; a shortfall is logged, not returned as an error.
func (l *BonusLedger) Debit(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, nil
	}

	var grants []models.BonusTransaction
	if err := l.db.WithContext(ctx).
		Where("user_id = ? AND expires_at >= ? AND used < amount", userID, l.now()).
		Order("expires_at ASC").Order("created_at ASC").
		Find(&grants).Error; err != nil {
		return 0, fmt.Errorf("load bonus grants: %w", err)
	}

	remaining := amount
	for _, g := range grants {
		if remaining == 0 {
			break
		}
		take := g.Remaining()
		if take > remaining {
			take = remaining
		}
		if err := l.db.WithContext(ctx).Model(&models.BonusTransaction{}).
			Where("id = ?", g.ID).
			UpdateColumn("used", gorm.Expr("used + ?", take)).Error; err != nil {
			return amount - remaining, fmt.Errorf("debit bonus grant: %w", err)
		}
		remaining -= take
	}

	if remaining > 0 {
		l.log.Warn("bonus debit stopped short of ledger capacity",
			zap.String("user_id", userID.String()),
			zap.Int64("requested", amount),
			zap.Int64("shortfall", remaining))
	}
	return amount - remaining, nil
}

// Grant credits amount as a new grant expiring after the configured TTL.
func (l *BonusLedger) Grant(ctx context.Context, userID uuid.UUID, orderID *uuid.UUID, amount int64) (*models.BonusTransaction, error) {
	if amount <= 0 {
		return nil, nil
	}

	grant := models.BonusTransaction{
		UserID:    userID,
		OrderID:   orderID,
		Amount:    amount,
		ExpiresAt: l.now().Add(l.rules.TTL),
	}
	if err := l.db.WithContext(ctx).Create(&grant).Error; err != nil {
		return nil, fmt.Errorf("create bonus grant: %w", err)
	}
	return &grant, nil
}

// ApplyBalanceDelta adds delta to the cached balance together with any profile updates
// in a single statement.
func (l *BonusLedger) ApplyBalanceDelta(ctx context.Context, userID uuid.UUID, delta int64, profile map[string]any) error {
	updates := map[string]any{}
	for k, v := range profile {
		updates[k] = v
	}
	if delta != 0 {
		updates["bonus_balance"] = gorm.Expr("bonus_balance + ?", delta)
	}
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = l.now()

	if err := l.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("update user balance: %w", err)
	}
	return nil
}

// List returns grants newest first with the total count.
func (l *BonusLedger) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.BonusTransaction, int64, error) {
	query := l.db.WithContext(ctx).Model(&models.BonusTransaction{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.BonusTransaction
	if err := query.Order("created_at desc").
		Limit(limit).Offset(offset).
		Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
