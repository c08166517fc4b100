package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a customer; accounts are created on first order by phone.
type User struct {
	BaseModel
	Name              string             `json:"name"`
	Phone             *string            `gorm:"uniqueIndex" json:"phone"`
	Email             *string            `gorm:"uniqueIndex" json:"email"`
	BonusBalance      int64              `gorm:"not null;default:0" json:"bonus_balance"`
	BonusTransactions []BonusTransaction `json:"bonus_transactions,omitempty"`
	Orders            []Order            `json:"orders,omitempty"`
}

// BonusTransaction is a single bonus grant with its own expiry. Used only grows up to Amount.
type BonusTransaction struct {
	BaseModel
	UserID    uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	OrderID   *uuid.UUID `gorm:"type:uuid" json:"order_id"`
	Amount    int64      `json:"amount"`
	Used      int64      `gorm:"not null;default:0" json:"used"`
	ExpiresAt time.Time  `gorm:"index" json:"expires_at"`
}

// Remaining returns the unused part of the grant.
func (b BonusTransaction) Remaining() int64 {
	if b.Used >= b.Amount {
		return 0
	}
	return b.Amount - b.Used
}

// ExpiredAt reports whether the grant can no longer be spent at now.
func (b BonusTransaction) ExpiredAt(now time.Time) bool {
	return b.ExpiresAt.Before(now)
}
