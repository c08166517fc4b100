package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/foodorder/internal/middleware"
	"github.com/example/foodorder/internal/models"
	"github.com/example/foodorder/internal/services"
	"github.com/example/foodorder/internal/utils"
)

// OrderHandler manages cart pricing and order endpoints.
type OrderHandler struct {
	orders *services.OrderService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type cartRequest struct {
	Items      []services.CartItem `json:"items" validate:"required,min=1,dive"`
	Type       models.OrderType    `json:"type" validate:"required,oneof=delivery pickup"`
	ZoneID     *uuid.UUID          `json:"zone_id"`
	BranchID   *uuid.UUID          `json:"branch_id"`
	PromoCode  string              `json:"promo_code" validate:"max=64"`
	BonusToUse int64               `json:"bonus_to_use" validate:"gte=0"`
}

type createOrderRequest struct {
	cartRequest
	Address    string     `json:"address" validate:"max=512"`
	Comment    string     `json:"comment" validate:"max=1024"`
	PickupTime *time.Time `json:"pickup_time"`
	Name       string     `json:"name" validate:"max=128"`
	Phone      string     `json:"phone" validate:"max=32"`
}

func (r cartRequest) input(c *fiber.Ctx) services.PlaceOrderInput {
	in := services.PlaceOrderInput{
		Items:      r.Items,
		Type:       r.Type,
		ZoneID:     r.ZoneID,
		BranchID:   r.BranchID,
		PromoCode:  r.PromoCode,
		BonusToUse: r.BonusToUse,
	}
	if userID, ok := middleware.GetCurrentUserID(c); ok && !middleware.IsAdmin(c) {
		in.Customer.UserID = &userID
	}
	return in
}

// Quote prices a cart without placing an order.
func (h *OrderHandler) Quote(c *fiber.Ctx) error {
	var req cartRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	quote, err := h.orders.Quote(c.UserContext(), req.input(c))
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": quote})
}

// CreateOrder places an order for the authenticated customer or a guest identified by phone.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	in := req.input(c)
	in.Address = req.Address
	in.Comment = req.Comment
	in.PickupTime = req.PickupTime
	in.Customer.Name = req.Name
	in.Customer.Phone = req.Phone

	receipt, err := h.orders.PlaceOrder(c.UserContext(), in)
	if err != nil {
		return serviceError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": receipt})
}

type checkPromoRequest struct {
	Code        string     `json:"code" validate:"required,max=64"`
	BranchID    *uuid.UUID `json:"branch_id"`
	Subtotal    int64      `json:"subtotal" validate:"gte=0"`
	DeliveryFee int64      `json:"delivery_fee" validate:"gte=0"`
}

// CheckPromo reports whether a promo code applies and the discount it would give.
func (h *OrderHandler) CheckPromo(c *fiber.Ctx) error {
	var req checkPromoRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	res, err := h.orders.Promos().Evaluate(c.UserContext(), req.Code, req.BranchID, req.Subtotal, req.DeliveryFee)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": res})
}

// ListOrders returns the authenticated customer's order history.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	orders, total, err := h.orders.ListUserOrders(c.UserContext(), userID, pg.Limit, pg.Offset)
	if err != nil {
		return serviceError(err)
	}

	return paginated(c, orders, pg, total)
}

// GetOrder returns a single order owned by the authenticated customer.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	order, err := h.orders.GetOrder(c.UserContext(), id, &userID)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

// PickupQR streams the pickup code of an order as a PNG.
func (h *OrderHandler) PickupQR(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	png, err := h.orders.PickupQR(c.UserContext(), id, &userID)
	if err != nil {
		return serviceError(err)
	}

	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}
