package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/foodorder/internal/models"
	"github.com/example/foodorder/internal/utils"
)

// MarketingHandler manages branches, delivery zones and promo codes.
type MarketingHandler struct {
	db *gorm.DB
}

// NewMarketingHandler constructs MarketingHandler.
func NewMarketingHandler(db *gorm.DB) *MarketingHandler {
	return &MarketingHandler{db: db}
}

// Branches

// ListActiveBranches is the public list used by the checkout.
func (h *MarketingHandler) ListActiveBranches(c *fiber.Ctx) error {
	var items []models.Branch
	if err := h.db.Preload("Zones").Where("is_active = ?", true).Order("name asc").Find(&items).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": items})
}

func (h *MarketingHandler) ListBranches(c *fiber.Ctx) error {
	var items []models.Branch
	if err := h.db.Preload("Zones").Order("name asc").Find(&items).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": items})
}

type branchRequest struct {
	Name         string  `json:"name" validate:"required,max=128"`
	AddressLine  string  `json:"address_line" validate:"max=256"`
	Latitude     float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude    float64 `json:"longitude" validate:"gte=-180,lte=180"`
	WorkingHours string  `json:"working_hours" validate:"max=64"`
	ContactPhone string  `json:"contact_phone" validate:"max=32"`
	IsActive     *bool   `json:"is_active"`
}

func (r branchRequest) apply(item *models.Branch) {
	item.Name = r.Name
	item.AddressLine = r.AddressLine
	item.Latitude = r.Latitude
	item.Longitude = r.Longitude
	item.WorkingHours = r.WorkingHours
	item.ContactPhone = utils.NormalizePhone(r.ContactPhone)
	if r.IsActive != nil {
		item.IsActive = *r.IsActive
	}
}

func (h *MarketingHandler) CreateBranch(c *fiber.Ctx) error {
	var req branchRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	item := models.Branch{IsActive: true}
	req.apply(&item)
	if err := h.db.Create(&item).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": item})
}

func (h *MarketingHandler) UpdateBranch(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	var item models.Branch
	if err := h.db.First(&item, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "branch not found")
		}
		return err
	}
	var req branchRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.apply(&item)
	if err := h.db.Save(&item).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": item})
}

// DeleteBranch deactivates the branch; orders keep referencing it.
func (h *MarketingHandler) DeleteBranch(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	if err := h.db.Model(&models.Branch{}).Where("id = ?", id).Update("is_active", false).Error; err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Zones

type zoneRequest struct {
	BranchID       uuid.UUID `json:"branch_id" validate:"required"`
	Name           string    `json:"name" validate:"required,max=128"`
	DeliveryFee    int64     `json:"delivery_fee" validate:"gte=0"`
	MinOrderAmount int64     `json:"min_order_amount" validate:"gte=0"`
}

func (r zoneRequest) apply(item *models.Zone) {
	item.BranchID = r.BranchID
	item.Name = r.Name
	item.DeliveryFee = r.DeliveryFee
	item.MinOrderAmount = r.MinOrderAmount
}

func (h *MarketingHandler) ListZones(c *fiber.Ctx) error {
	query := h.db.Model(&models.Zone{})
	if raw := c.Query("branch_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid branch_id")
		}
		query = query.Where("branch_id = ?", id)
	}
	var items []models.Zone
	if err := query.Order("name asc").Find(&items).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": items})
}

func (h *MarketingHandler) CreateZone(c *fiber.Ctx) error {
	var req zoneRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.ensureBranch(req.BranchID); err != nil {
		return err
	}
	var item models.Zone
	req.apply(&item)
	if err := h.db.Create(&item).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": item})
}

func (h *MarketingHandler) UpdateZone(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	var item models.Zone
	if err := h.db.First(&item, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "zone not found")
		}
		return err
	}
	var req zoneRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.ensureBranch(req.BranchID); err != nil {
		return err
	}
	req.apply(&item)
	if err := h.db.Save(&item).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": item})
}

func (h *MarketingHandler) DeleteZone(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	if err := h.db.Delete(&models.Zone{}, "id = ?", id).Error; err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *MarketingHandler) ensureBranch(id uuid.UUID) error {
	var n int64
	if err := h.db.Model(&models.Branch{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "branch not found")
	}
	return nil
}

// Promo codes

type promoRequest struct {
	Code              string      `json:"code" validate:"required,max=64"`
	DiscountPercent   int         `json:"discount_percent" validate:"gte=0,lte=100"`
	AppliesToDelivery bool        `json:"applies_to_delivery"`
	ExpiresAt         time.Time   `json:"expires_at" validate:"required"`
	MaxUses           *int        `json:"max_uses" validate:"omitempty,gte=0"`
	BranchIDs         []uuid.UUID `json:"branch_ids"`
}

func (h *MarketingHandler) ListPromoCodes(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	var total int64
	if err := h.db.Model(&models.PromoCode{}).Count(&total).Error; err != nil {
		return err
	}
	var items []models.PromoCode
	if err := h.db.Preload("Branches").Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).Find(&items).Error; err != nil {
		return err
	}
	return paginated(c, items, pg, total)
}

func (h *MarketingHandler) CreatePromoCode(c *fiber.Ctx) error {
	var req promoRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	item := models.PromoCode{
		Code:              req.Code,
		DiscountPercent:   req.DiscountPercent,
		AppliesToDelivery: req.AppliesToDelivery,
		ExpiresAt:         req.ExpiresAt,
		MaxUses:           req.MaxUses,
	}
	err := h.db.Transaction(func(tx *gorm.DB) error {
		branches, err := h.branches(tx, req.BranchIDs)
		if err != nil {
			return err
		}
		item.Branches = branches
		return tx.Omit("Branches.*").Create(&item).Error
	})
	if err != nil {
		return serviceError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": item})
}

// UpdatePromoCode replaces the promo settings. The usage counter is left untouched.
func (h *MarketingHandler) UpdatePromoCode(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	var req promoRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	var item models.PromoCode
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&item, "id = ?", id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fiber.NewError(fiber.StatusNotFound, "promo code not found")
			}
			return err
		}

		item.Code = req.Code
		item.DiscountPercent = req.DiscountPercent
		item.AppliesToDelivery = req.AppliesToDelivery
		item.ExpiresAt = req.ExpiresAt
		item.MaxUses = req.MaxUses
		if err := tx.Omit("Branches", "UsedCount").Save(&item).Error; err != nil {
			return err
		}

		branches, err := h.branches(tx, req.BranchIDs)
		if err != nil {
			return err
		}
		item.Branches = branches
		return tx.Model(&item).Omit("Branches.*").Association("Branches").Replace(branches)
	})
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(fiber.Map{"success": true, "data": item})
}

func (h *MarketingHandler) DeletePromoCode(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	err = h.db.Transaction(func(tx *gorm.DB) error {
		item := models.PromoCode{BaseModel: models.BaseModel{ID: id}}
		if err := tx.Model(&item).Association("Branches").Clear(); err != nil {
			return err
		}
		return tx.Delete(&models.PromoCode{}, "id = ?", id).Error
	})
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *MarketingHandler) branches(tx *gorm.DB, ids []uuid.UUID) ([]models.Branch, error) {
	if len(ids) == 0 {
		return []models.Branch{}, nil
	}
	var branches []models.Branch
	if err := tx.Where("id IN ?", ids).Find(&branches).Error; err != nil {
		return nil, err
	}
	if len(branches) != len(ids) {
		return nil, fiber.NewError(fiber.StatusBadRequest, "unknown branch in branch_ids")
	}
	return branches, nil
}
