package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/foodorder/internal/models"
	"github.com/example/foodorder/internal/pricing"
)

// MaxQuantity bounds a single cart line.
const MaxQuantity = 1000

// CartItem is one selection in a client cart.
type CartItem struct {
	DishID       uuid.UUID   `json:"dish_id" validate:"required"`
	VariantID    *uuid.UUID  `json:"variant_id"`
	Quantity     int         `json:"quantity" validate:"gt=0,lte=1000"`
	AddonIDs     []uuid.UUID `json:"addon_ids"`
	ExclusionIDs []uuid.UUID `json:"exclusion_ids"`
}

// PricedLine is a cart item resolved against the live catalog.
type PricedLine struct {
	DishID      uuid.UUID  `json:"dish_id"`
	VariantID   *uuid.UUID `json:"variant_id"`
	DishName    string     `json:"dish_name"`
	VariantName string     `json:"variant_name"`
	Quantity    int        `json:"quantity"`
	UnitPrice   int64      `json:"unit_price"`
	LineTotal   int64      `json:"line_total"`
	Addons      []string   `json:"addons"`
	Exclusions  []string   `json:"exclusions"`
}

// PricingLine converts l for the calculator.
func (l PricedLine) PricingLine() pricing.Line {
	return pricing.Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity}
}

// OrderItem snapshots l for persistence.
func (l PricedLine) OrderItem() models.OrderItem {
	return models.OrderItem{
		DishID:      l.DishID,
		VariantID:   l.VariantID,
		DishName:    l.DishName,
		VariantName: l.VariantName,
		Quantity:    l.Quantity,
		UnitPrice:   l.UnitPrice,
		LineTotal:   l.LineTotal,
		Addons:      strings.Join(l.Addons, ", "),
		Exclusions:  strings.Join(l.Exclusions, ", "),
	}
}

// CatalogResolver prices cart items from active dishes.
type CatalogResolver struct {
	db *gorm.DB
}

// NewCatalogResolver constructs a CatalogResolver.
func NewCatalogResolver(db *gorm.DB) *CatalogResolver {
	return &CatalogResolver{db: db}
}

// WithTx returns a resolver reading through tx.
func (r *CatalogResolver) WithTx(tx *gorm.DB) *CatalogResolver {
	return &CatalogResolver{db: tx}
}

// Resolve prices every item. Unknown variant or modifier ids fail the whole cart.
func (r *CatalogResolver) Resolve(ctx context.Context, items []CartItem) ([]PricedLine, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 || item.Quantity > MaxQuantity {
			return nil, ErrInvalidQuantity
		}
		ids = append(ids, item.DishID)
	}

	var dishes []models.Dish
	if err := r.db.WithContext(ctx).
		Preload("Variants").
		Preload("Modifiers").
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&dishes).Error; err != nil {
		return nil, fmt.Errorf("load dishes: %w", err)
	}

	byID := make(map[uuid.UUID]*models.Dish, len(dishes))
	for i := range dishes {
		byID[dishes[i].ID] = &dishes[i]
	}

	var subtotal int64
	lines := make([]PricedLine, 0, len(items))
	for _, item := range items {
		dish, ok := byID[item.DishID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrDishNotFound, item.DishID)
		}

		line, err := priceLine(dish, item)
		if err != nil {
			return nil, err
		}
		if line.LineTotal > math.MaxInt64-subtotal {
			return nil, fmt.Errorf("%w: cart total out of range", ErrInvalidQuantity)
		}
		subtotal += line.LineTotal
		lines = append(lines, line)
	}

	return lines, nil
}

func priceLine(dish *models.Dish, item CartItem) (PricedLine, error) {
	line := PricedLine{
		DishID:   dish.ID,
		DishName: dish.Name,
		Quantity: item.Quantity,
	}

	var variantDelta int64
	if item.VariantID != nil {
		variant, ok := dish.Variant(*item.VariantID)
		if !ok {
			return PricedLine{}, fmt.Errorf("%w: %s", ErrVariantNotFound, *item.VariantID)
		}
		id := variant.ID
		line.VariantID = &id
		line.VariantName = variant.Name
		variantDelta = variant.PriceDelta
	}

	addonPrices := make([]int64, 0, len(item.AddonIDs))
	for _, id := range item.AddonIDs {
		addon, ok := dish.Modifier(id, models.ModifierAddon)
		if !ok {
			return PricedLine{}, fmt.Errorf("%w: addon %s", ErrModifierNotFound, id)
		}
		addonPrices = append(addonPrices, addon.Price)
		line.Addons = append(line.Addons, addon.Name)
	}

	for _, id := range item.ExclusionIDs {
		exclusion, ok := dish.Modifier(id, models.ModifierExclusion)
		if !ok {
			return PricedLine{}, fmt.Errorf("%w: exclusion %s", ErrModifierNotFound, id)
		}
		line.Exclusions = append(line.Exclusions, exclusion.Name)
	}

	line.UnitPrice = pricing.UnitPrice(dish.BasePrice, variantDelta, addonPrices...)
	if line.UnitPrice < 0 {
		return PricedLine{}, fmt.Errorf("%w: %s", ErrInvalidPrice, dish.Name)
	}
	if line.UnitPrice > math.MaxInt64/int64(item.Quantity) {
		return PricedLine{}, fmt.Errorf("%w: line total out of range", ErrInvalidQuantity)
	}
	line.LineTotal = line.PricingLine().Total()
	return line, nil
}
