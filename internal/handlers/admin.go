package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/foodorder/internal/config"
	"github.com/example/foodorder/internal/models"
	"github.com/example/foodorder/internal/services"
	"github.com/example/foodorder/internal/utils"
)

// AdminHandler manages admin-only endpoints.
type AdminHandler struct {
	db     *gorm.DB
	cfg    *config.Config
	orders *services.OrderService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(db *gorm.DB, cfg *config.Config, orders *services.OrderService) *AdminHandler {
	return &AdminHandler{db: db, cfg: cfg, orders: orders}
}

type adminLoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login exchanges the configured admin credentials for an admin token.
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req adminLoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	if !utils.CheckAdminCredentials(h.cfg.AdminUsername, h.cfg.AdminPasswordHash, req.Username, req.Password) {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, utils.AdminID(req.Username), utils.RoleAdmin, h.cfg.TokenExpires)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"token":      token,
			"expires_in": int64(h.cfg.TokenExpires.Seconds()),
		},
	})
}

// DashboardStats returns aggregate statistics for the admin dashboard.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	db := h.db.WithContext(c.UserContext())

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		return err
	}

	var totalOrders int64
	if err := db.Model(&models.Order{}).Count(&totalOrders).Error; err != nil {
		return err
	}

	type statusCount struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}
	var statusCounts []statusCount
	if err := db.Model(&models.Order{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return err
	}

	ordersByStatus := make(map[string]int64)
	for _, sc := range statusCounts {
		ordersByStatus[sc.Status] = sc.Count
	}

	// Revenue counts paid orders only.
	var totalRevenue int64
	if err := db.Model(&models.Order{}).
		Where("status = ?", models.OrderStatusDone).
		Select("COALESCE(SUM(total), 0)").
		Scan(&totalRevenue).Error; err != nil {
		return err
	}

	var bonusOutstanding int64
	if err := db.Model(&models.User{}).
		Select("COALESCE(SUM(bonus_balance), 0)").
		Scan(&bonusOutstanding).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_users":       totalUsers,
			"total_orders":      totalOrders,
			"total_revenue":     totalRevenue,
			"bonus_outstanding": bonusOutstanding,
			"orders_by_status":  ordersByStatus,
		},
	})
}

// ListAllOrders returns orders filtered by status, type and branch.
func (h *AdminHandler) ListAllOrders(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	filter := services.OrderFilter{
		Status: models.OrderStatus(c.Query("status")),
		Type:   models.OrderType(c.Query("type")),
		Limit:  pg.Limit,
		Offset: pg.Offset,
	}

	if filter.Status != "" && !filter.Status.Valid() {
		return fiber.NewError(fiber.StatusBadRequest, "invalid status")
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return fiber.NewError(fiber.StatusBadRequest, "invalid type")
	}
	if raw := c.Query("branch_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid branch_id")
		}
		filter.BranchID = &id
	}

	orders, total, err := h.orders.ListOrders(c.UserContext(), filter)
	if err != nil {
		return serviceError(err)
	}

	return paginated(c, orders, pg, total)
}

// GetOrder returns any order by ID.
func (h *AdminHandler) GetOrder(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	order, err := h.orders.GetOrder(c.UserContext(), id, nil)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

type updateStatusRequest struct {
	Status models.OrderStatus `json:"status" validate:"required"`
}

// UpdateOrderStatus moves an order to a new status.
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req updateStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	res, err := h.orders.UpdateStatus(c.UserContext(), id, req.Status)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": res})
}
