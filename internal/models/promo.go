package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PromoCode struct {
	BaseModel
	Code              string    `gorm:"uniqueIndex" json:"code"`
	DiscountPercent   int       `json:"discount_percent"`
	AppliesToDelivery bool      `json:"applies_to_delivery"`
	ExpiresAt         time.Time `json:"expires_at"`
	MaxUses           *int      `json:"max_uses"`
	UsedCount         int       `gorm:"not null;default:0" json:"used_count"`
	Branches          []Branch  `gorm:"many2many:promo_code_branches;" json:"branches,omitempty"`
}

// BeforeSave stores codes case-normalized.
func (p *PromoCode) BeforeSave(tx *gorm.DB) error {
	p.Code = NormalizePromoCode(p.Code)
	return nil
}

// NormalizePromoCode trims and uppercases a client-supplied code.
func NormalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// UsableAt reports whether the promo can be applied at now for an order routed to branchID.
func (p *PromoCode) UsableAt(now time.Time, branchID *uuid.UUID) bool {
	if !now.Before(p.ExpiresAt) {
		return false
	}
	if p.MaxUses != nil && p.UsedCount >= *p.MaxUses {
		return false
	}
	if len(p.Branches) == 0 {
		return true
	}
	if branchID == nil {
		return false
	}
	for _, b := range p.Branches {
		if b.ID == *branchID {
			return true
		}
	}
	return false
}
