package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/foodorder/internal/middleware"
	"github.com/example/foodorder/internal/models"
	"github.com/example/foodorder/internal/services"
	"github.com/example/foodorder/internal/utils"
)

// ProfileHandler manages customer profile and bonus endpoints.
type ProfileHandler struct {
	db     *gorm.DB
	ledger *services.BonusLedger
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(db *gorm.DB, ledger *services.BonusLedger) *ProfileHandler {
	return &ProfileHandler{db: db, ledger: ledger}
}

// GetProfile returns the authenticated customer with a reconciled bonus balance.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	balance, err := h.ledger.Reconcile(c.UserContext(), userID)
	if err != nil {
		return serviceError(err)
	}

	var user models.User
	if err := h.db.WithContext(c.UserContext()).First(&user, "id = ?", userID).Error; err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":              user.ID,
			"name":            user.Name,
			"phone":           user.Phone,
			"email":           user.Email,
			"bonus_balance":   balance.Usable(),
			"bonus_spendable": balance.Spendable,
			"created_at":      user.CreatedAt,
			"updated_at":      user.UpdatedAt,
		},
	})
}

type updateProfileRequest struct {
	Name  string `json:"name" validate:"max=128"`
	Email string `json:"email" validate:"omitempty,email"`
}

// UpdateProfile updates contact fields. Phone is the account key and cannot change here.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Email != "" {
		updates["email"] = req.Email
	}
	if len(updates) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}

	if err := h.ledger.ApplyBalanceDelta(c.UserContext(), userID, 0, updates); err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{"success": true, "message": "profile updated"})
}

// ListBonusTransactions returns bonus grants, newest first.
func (h *ProfileHandler) ListBonusTransactions(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	if _, err := h.ledger.Sweep(c.UserContext(), userID); err != nil {
		return serviceError(err)
	}

	pg := utils.ParsePagination(c)
	items, total, err := h.ledger.List(c.UserContext(), userID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}

	return paginated(c, items, pg, total)
}
