package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/foodorder/internal/models"
	"github.com/example/foodorder/internal/pricing"
)

// PromoResult is the outcome of evaluating a promo code. Inapplicable codes are not errors.
type PromoResult struct {
	Applicable bool       `json:"applicable"`
	Discount   int64      `json:"discount"`
	PromoID    *uuid.UUID `json:"promo_id,omitempty"`
	Code       string     `json:"code,omitempty"`
}

// PromoService evaluates promo codes against an order context.
type PromoService struct {
	db     *gorm.DB
	now    func() time.Time
	locked bool
}

// NewPromoService constructs a PromoService.
func NewPromoService(db *gorm.DB, now func() time.Time) *PromoService {
	if now == nil {
		now = time.Now
	}
	return &PromoService{db: db, now: now}
}

// WithTx returns a service reading through tx and locking the promo row until tx ends.
func (s *PromoService) WithTx(tx *gorm.DB) *PromoService {
	return &PromoService{db: tx, now: s.now, locked: true}
}

// Evaluate reports whether code applies to an order routed to branchID and the discount it gives.
func (s *PromoService) Evaluate(ctx context.Context, code string, branchID *uuid.UUID, subtotal, deliveryFee int64) (PromoResult, error) {
	code = models.NormalizePromoCode(code)
	if code == "" {
		return PromoResult{}, nil
	}

	query := s.db.WithContext(ctx)
	if s.locked {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var promo models.PromoCode
	if err := query.Preload("Branches").Where("code = ?", code).First(&promo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PromoResult{Code: code}, nil
		}
		return PromoResult{}, fmt.Errorf("load promo code: %w", err)
	}

	if !promo.UsableAt(s.now(), branchID) {
		return PromoResult{Code: code}, nil
	}

	id := promo.ID
	return PromoResult{
		Applicable: true,
		Discount:   pricing.PromoDiscount(subtotal, deliveryFee, promo.DiscountPercent, promo.AppliesToDelivery),
		PromoID:    &id,
		Code:       promo.Code,
	}, nil
}

// incrementPromoUsage bumps used_count only while the cap still allows it.
func incrementPromoUsage(tx *gorm.DB, promoID uuid.UUID) error {
	res := tx.Model(&models.PromoCode{}).
		Where("id = ? AND (max_uses IS NULL OR used_count < max_uses)", promoID).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return fmt.Errorf("increment promo usage: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPromoConflict
	}
	return nil
}
