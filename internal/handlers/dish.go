package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/foodorder/internal/models"
	"github.com/example/foodorder/internal/utils"
)

type variantRequest struct {
	ID         *uuid.UUID `json:"id"`
	Name       string     `json:"name" validate:"required,max=64"`
	PriceDelta int64      `json:"price_delta"`
	SortOrder  int        `json:"sort_order"`
}

type modifierRequest struct {
	ID    *uuid.UUID          `json:"id"`
	Name  string              `json:"name" validate:"required,max=64"`
	Kind  models.ModifierKind `json:"kind" validate:"required,oneof=addon exclusion"`
	Price int64               `json:"price" validate:"gte=0"`
}

type dishRequest struct {
	Name        string            `json:"name" validate:"required,max=128"`
	NameUz      string            `json:"name_uz" validate:"max=128"`
	Description string            `json:"description" validate:"max=2048"`
	Image       string            `json:"image" validate:"omitempty,url"`
	BasePrice   int64             `json:"base_price" validate:"gte=0"`
	IsActive    *bool             `json:"is_active"`
	SortOrder   int               `json:"sort_order"`
	CategoryID  *uuid.UUID        `json:"category_id"`
	StatusID    *uuid.UUID        `json:"status_id"`
	Variants    []variantRequest  `json:"variants" validate:"dive"`
	Modifiers   []modifierRequest `json:"modifiers" validate:"dive"`
}

func (r dishRequest) apply(dish *models.Dish) {
	dish.Name = r.Name
	dish.NameUz = r.NameUz
	dish.Description = r.Description
	dish.Image = r.Image
	dish.BasePrice = r.BasePrice
	dish.SortOrder = r.SortOrder
	dish.CategoryID = r.CategoryID
	dish.StatusID = r.StatusID
	if r.IsActive != nil {
		dish.IsActive = *r.IsActive
	}
}

// checkPrices rejects variants that would price the dish below zero.
func (r dishRequest) checkPrices() error {
	for _, v := range r.Variants {
		if r.BasePrice+v.PriceDelta < 0 {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "variant "+v.Name+" prices the dish below zero")
		}
	}
	return nil
}

// ListDishes returns dishes for the back office, inactive ones included.
func (h *CatalogHandler) ListDishes(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.WithContext(c.UserContext()).Model(&models.Dish{})

	if raw := c.Query("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid category_id")
		}
		query = query.Where("category_id = ?", id)
	}
	if search := c.Query("search"); search != "" {
		query = query.Where("LOWER(name) LIKE LOWER(?)", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var dishes []models.Dish
	if err := query.Preload("Variants").Preload("Modifiers").Preload("Status").
		Order("sort_order asc, created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&dishes).Error; err != nil {
		return err
	}

	return paginated(c, dishes, pg, total)
}

// GetDish returns a dish with its variants and modifiers.
func (h *CatalogHandler) GetDish(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	dish, err := h.loadDish(h.db.WithContext(c.UserContext()), id)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": dish})
}

func (h *CatalogHandler) loadDish(db *gorm.DB, id uuid.UUID) (*models.Dish, error) {
	var dish models.Dish
	err := db.Preload("Variants", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order asc")
	}).Preload("Modifiers").Preload("Category").Preload("Status").
		First(&dish, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "dish not found")
		}
		return nil, err
	}
	return &dish, nil
}

// CreateDish persists a dish together with its variants and modifiers.
func (h *CatalogHandler) CreateDish(c *fiber.Ctx) error {
	var req dishRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := req.checkPrices(); err != nil {
		return err
	}

	dish := models.Dish{IsActive: true}
	req.apply(&dish)
	for _, v := range req.Variants {
		dish.Variants = append(dish.Variants, models.DishVariant{Name: v.Name, PriceDelta: v.PriceDelta, SortOrder: v.SortOrder})
	}
	for _, m := range req.Modifiers {
		dish.Modifiers = append(dish.Modifiers, models.DishModifier{Name: m.Name, Kind: m.Kind, Price: m.Price})
	}

	if err := h.db.WithContext(c.UserContext()).Create(&dish).Error; err != nil {
		return serviceError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": dish})
}

// UpdateDish replaces the dish fields and reconciles its options: entries with a known id are
// updated, entries without one are created, and options missing from the payload are removed.
func (h *CatalogHandler) UpdateDish(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req dishRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := req.checkPrices(); err != nil {
		return err
	}

	var dish *models.Dish
	err = h.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		current, err := h.loadDish(tx, id)
		if err != nil {
			return err
		}

		req.apply(current)
		if err := tx.Omit("Variants", "Modifiers", "Category", "Status").Save(current).Error; err != nil {
			return err
		}

		if err := syncVariants(tx, current, req.Variants); err != nil {
			return err
		}
		if err := syncModifiers(tx, current, req.Modifiers); err != nil {
			return err
		}

		dish, err = h.loadDish(tx, id)
		return err
	})
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": dish})
}

func syncVariants(tx *gorm.DB, dish *models.Dish, reqs []variantRequest) error {
	keep := make([]uuid.UUID, 0, len(reqs))
	for _, r := range reqs {
		variant := models.DishVariant{DishID: dish.ID, Name: r.Name, PriceDelta: r.PriceDelta, SortOrder: r.SortOrder}
		if r.ID != nil {
			if _, ok := dish.Variant(*r.ID); !ok {
				return fiber.NewError(fiber.StatusBadRequest, "variant does not belong to dish")
			}
			variant.ID = *r.ID
			if err := tx.Model(&models.DishVariant{}).Where("id = ?", variant.ID).
				Updates(map[string]interface{}{"name": r.Name, "price_delta": r.PriceDelta, "sort_order": r.SortOrder}).Error; err != nil {
				return err
			}
		} else if err := tx.Create(&variant).Error; err != nil {
			return err
		}
		keep = append(keep, variant.ID)
	}

	stale := tx.Where("dish_id = ?", dish.ID)
	if len(keep) > 0 {
		stale = stale.Where("id NOT IN ?", keep)
	}
	return stale.Delete(&models.DishVariant{}).Error
}

func syncModifiers(tx *gorm.DB, dish *models.Dish, reqs []modifierRequest) error {
	keep := make([]uuid.UUID, 0, len(reqs))
	for _, r := range reqs {
		modifier := models.DishModifier{DishID: dish.ID, Name: r.Name, Kind: r.Kind, Price: r.Price}
		if r.ID != nil {
			existing, ok := findModifier(dish, *r.ID)
			if !ok {
				return fiber.NewError(fiber.StatusBadRequest, "modifier does not belong to dish")
			}
			modifier.BaseModel = existing.BaseModel
			if err := tx.Save(&modifier).Error; err != nil {
				return err
			}
		} else if err := tx.Create(&modifier).Error; err != nil {
			return err
		}
		keep = append(keep, modifier.ID)
	}

	stale := tx.Where("dish_id = ?", dish.ID)
	if len(keep) > 0 {
		stale = stale.Where("id NOT IN ?", keep)
	}
	return stale.Delete(&models.DishModifier{}).Error
}

func findModifier(dish *models.Dish, id uuid.UUID) (models.DishModifier, bool) {
	for _, m := range dish.Modifiers {
		if m.ID == id {
			return m, true
		}
	}
	return models.DishModifier{}, false
}

// DeleteDish removes a dish and its options. Past orders keep their snapshots.
func (h *CatalogHandler) DeleteDish(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	err = h.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("dish_id = ?", id).Delete(&models.DishVariant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("dish_id = ?", id).Delete(&models.DishModifier{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Dish{}, "id = ?", id).Error
	})
	if err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}
