package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/foodorder/internal/models"
	"github.com/example/foodorder/internal/utils"
)

// CatalogHandler manages categories, dish statuses and dishes.
type CatalogHandler struct {
	db *gorm.DB
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(db *gorm.DB) *CatalogHandler {
	return &CatalogHandler{db: db}
}

// Menu returns categories with their active dishes, options included.
func (h *CatalogHandler) Menu(c *fiber.Ctx) error {
	var categories []models.Category
	if err := h.db.WithContext(c.UserContext()).
		Preload("Dishes", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("sort_order asc, name asc")
		}).
		Preload("Dishes.Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order asc")
		}).
		Preload("Dishes.Modifiers").
		Preload("Dishes.Status").
		Order("sort_order asc, name asc").
		Find(&categories).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": categories})
}

// ListCategories returns paginated categories.
func (h *CatalogHandler) ListCategories(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	var categories []models.Category
	var total int64

	if err := h.db.Model(&models.Category{}).Count(&total).Error; err != nil {
		return err
	}

	if err := h.db.Limit(pg.Limit).Offset(pg.Offset).Order("sort_order asc, created_at desc").
		Find(&categories).Error; err != nil {
		return err
	}

	return paginated(c, categories, pg, total)
}

// GetCategory returns a single category by ID.
func (h *CatalogHandler) GetCategory(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var category models.Category
	if err := h.db.First(&category, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "category not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": category})
}

type categoryRequest struct {
	Name      string `json:"name" validate:"required,max=128"`
	NameUz    string `json:"name_uz" validate:"max=128"`
	Slug      string `json:"slug" validate:"required,max=128"`
	SortOrder int    `json:"sort_order"`
}

func (r categoryRequest) apply(category *models.Category) {
	category.Name = r.Name
	category.NameUz = r.NameUz
	category.Slug = r.Slug
	category.SortOrder = r.SortOrder
}

// CreateCategory persists a new category.
func (h *CatalogHandler) CreateCategory(c *fiber.Ctx) error {
	var req categoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	var category models.Category
	req.apply(&category)
	if err := h.db.Create(&category).Error; err != nil {
		return serviceError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": category})
}

// UpdateCategory updates an existing category.
func (h *CatalogHandler) UpdateCategory(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var category models.Category
	if err := h.db.First(&category, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "category not found")
		}
		return err
	}

	var req categoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	req.apply(&category)
	if err := h.db.Save(&category).Error; err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": category})
}

// DeleteCategory removes a category by ID. Its dishes become uncategorized.
func (h *CatalogHandler) DeleteCategory(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Dish{}).Where("category_id = ?", id).
			UpdateColumn("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Category{}, "id = ?", id).Error
	})
	if err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Dish statuses

func (h *CatalogHandler) ListDishStatuses(c *fiber.Ctx) error {
	var items []models.DishStatus
	if err := h.db.Order("name asc").Find(&items).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": items})
}

type dishStatusRequest struct {
	Name  string `json:"name" validate:"required,max=64"`
	Color string `json:"color" validate:"max=16"`
}

func (h *CatalogHandler) CreateDishStatus(c *fiber.Ctx) error {
	var req dishStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	item := models.DishStatus{Name: req.Name, Color: req.Color}
	if err := h.db.Create(&item).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": item})
}

func (h *CatalogHandler) DeleteDishStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Dish{}).Where("status_id = ?", id).
			UpdateColumn("status_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.DishStatus{}, "id = ?", id).Error
	})
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
