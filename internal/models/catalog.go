package models

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ModifierKind distinguishes priced addons from exclusion labels.
type ModifierKind string

const (
	ModifierAddon     ModifierKind = "addon"
	ModifierExclusion ModifierKind = "exclusion"
)

// Valid reports whether k is a known modifier kind.
func (k ModifierKind) Valid() bool {
	return k == ModifierAddon || k == ModifierExclusion
}

type Category struct {
	BaseModel
	Name      string `json:"name"`
	NameUz    string `json:"name_uz"`
	Slug      string `gorm:"uniqueIndex" json:"slug"`
	SortOrder int    `json:"sort_order"`
	Dishes    []Dish `json:"dishes,omitempty"`
}

// DishStatus is a display badge ("new", "hit", ...). It has no pricing effect.
type DishStatus struct {
	BaseModel
	Name  string `json:"name"`
	Color string `json:"color"`
}

type Dish struct {
	BaseModel
	Name        string         `json:"name"`
	NameUz      string         `json:"name_uz"`
	Description string         `json:"description"`
	Image       string         `json:"image"`
	BasePrice   int64          `json:"base_price"`
	IsActive    bool           `gorm:"index" json:"is_active"`
	SortOrder   int            `json:"sort_order"`
	CategoryID  *uuid.UUID     `gorm:"type:uuid;index" json:"category_id"`
	Category    *Category      `json:"category,omitempty"`
	StatusID    *uuid.UUID     `gorm:"type:uuid" json:"status_id"`
	Status      *DishStatus    `json:"status,omitempty"`
	Variants    []DishVariant  `gorm:"constraint:OnDelete:CASCADE" json:"variants,omitempty"`
	Modifiers   []DishModifier `gorm:"constraint:OnDelete:CASCADE" json:"modifiers,omitempty"`
}

type DishVariant struct {
	BaseModel
	DishID     uuid.UUID `gorm:"type:uuid;index" json:"dish_id"`
	Name       string    `json:"name"`
	PriceDelta int64     `json:"price_delta"`
	SortOrder  int       `json:"sort_order"`
}

type DishModifier struct {
	BaseModel
	DishID uuid.UUID    `gorm:"type:uuid;index" json:"dish_id"`
	Name   string       `json:"name"`
	Kind   ModifierKind `gorm:"type:varchar(16)" json:"kind"`
	Price  int64        `json:"price"`
}

// BeforeSave keeps exclusions price-free; they are labels only.
func (m *DishModifier) BeforeSave(tx *gorm.DB) error {
	m.Kind = ModifierKind(strings.ToLower(strings.TrimSpace(string(m.Kind))))
	if m.Kind == "" {
		m.Kind = ModifierAddon
	}
	if m.Kind == ModifierExclusion {
		m.Price = 0
	}
	return nil
}

// Variant looks up a variant of the dish by id.
func (d *Dish) Variant(id uuid.UUID) (DishVariant, bool) {
	for _, v := range d.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return DishVariant{}, false
}

// Modifier looks up a modifier of the dish by id and kind.
func (d *Dish) Modifier(id uuid.UUID, kind ModifierKind) (DishModifier, bool) {
	for _, m := range d.Modifiers {
		if m.ID == id && m.Kind == kind {
			return m, true
		}
	}
	return DishModifier{}, false
}
