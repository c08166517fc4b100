package models

import "github.com/google/uuid"

// Branch is a physical kitchen/store serving pickup and delivery orders.
type Branch struct {
	BaseModel
	Name         string  `json:"name"`
	AddressLine  string  `json:"address_line"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	WorkingHours string  `json:"working_hours"`
	ContactPhone string  `json:"contact_phone"`
	IsActive     bool    `json:"is_active"`
	Zones        []Zone  `json:"zones,omitempty"`
}

// Zone is a delivery area owned by a branch.
type Zone struct {
	BaseModel
	BranchID       uuid.UUID `gorm:"type:uuid;index" json:"branch_id"`
	Branch         *Branch   `json:"branch,omitempty"`
	Name           string    `json:"name"`
	DeliveryFee    int64     `json:"delivery_fee"`
	MinOrderAmount int64     `json:"min_order_amount"`
}
