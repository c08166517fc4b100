package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderType string

const (
	OrderTypeDelivery OrderType = "delivery"
	OrderTypePickup   OrderType = "pickup"
)

// Valid reports whether t is a known fulfillment mode.
func (t OrderType) Valid() bool {
	return t == OrderTypeDelivery || t == OrderTypePickup
}

type OrderStatus string

const (
	OrderStatusCreated    OrderStatus = "created"
	OrderStatusAccepted   OrderStatus = "accepted"
	OrderStatusCooking    OrderStatus = "cooking"
	OrderStatusDelivering OrderStatus = "delivering"
	OrderStatusDone       OrderStatus = "done"
	OrderStatusCanceled   OrderStatus = "canceled"
)

// OrderStatuses lists the happy path in order, followed by canceled.
var OrderStatuses = []OrderStatus{
	OrderStatusCreated,
	OrderStatusAccepted,
	OrderStatusCooking,
	OrderStatusDelivering,
	OrderStatusDone,
	OrderStatusCanceled,
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are expected from s.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDone || s == OrderStatusCanceled
}

type Order struct {
	BaseModel
	Type          OrderType   `gorm:"type:varchar(16);index" json:"type"`
	Status        OrderStatus `gorm:"type:varchar(16);index" json:"status"`
	UserID        uuid.UUID   `gorm:"type:uuid;index" json:"user_id"`
	User          *User       `json:"user,omitempty"`
	CustomerName  string      `json:"customer_name"`
	CustomerPhone string      `json:"customer_phone"`
	ZoneID        *uuid.UUID  `gorm:"type:uuid" json:"zone_id"`
	BranchID      *uuid.UUID  `gorm:"type:uuid;index" json:"branch_id"`
	Address       string      `json:"address"`
	Comment       string      `json:"comment"`
	Subtotal      int64       `json:"subtotal"`
	DeliveryFee   int64       `json:"delivery_fee"`
	Discount      int64       `json:"discount"`
	Total         int64       `json:"total"`
	BonusEarned   int64       `json:"bonus_earned"`
	BonusUsed     int64       `json:"bonus_used"`
	PromoCodeID   *uuid.UUID  `gorm:"type:uuid" json:"promo_code_id"`
	PromoCode     string      `json:"promo_code"`
	PickupTime    *time.Time  `json:"pickup_time"`
	PickupCode    *string     `gorm:"uniqueIndex" json:"pickup_code"`
	PaidAt        *time.Time  `json:"paid_at"`
	Items         []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// OrderItem snapshots pricing and modifier names at order time.
type OrderItem struct {
	BaseModel
	OrderID     uuid.UUID  `gorm:"type:uuid;index" json:"order_id"`
	DishID      uuid.UUID  `gorm:"type:uuid" json:"dish_id"`
	VariantID   *uuid.UUID `gorm:"type:uuid" json:"variant_id"`
	DishName    string     `json:"dish_name"`
	VariantName string     `json:"variant_name"`
	Quantity    int        `json:"quantity"`
	UnitPrice   int64      `json:"unit_price"`
	LineTotal   int64      `json:"line_total"`
	Addons      string     `json:"addons"`
	Exclusions  string     `json:"exclusions"`
}
