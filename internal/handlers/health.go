package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// PingFunc checks an optional dependency.
type PingFunc func(ctx context.Context) error

// HealthHandler reports readiness of the backing stores.
type HealthHandler struct {
	db    *gorm.DB
	cache PingFunc
}

// NewHealthHandler constructs HealthHandler. cache may be nil.
func NewHealthHandler(db *gorm.DB, cache PingFunc) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	checks := fiber.Map{"database": "ok"}
	status := fiber.StatusOK

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.UserContext())
	}
	if err != nil {
		checks["database"] = err.Error()
		status = fiber.StatusServiceUnavailable
	}

	if h.cache != nil {
		checks["redis"] = "ok"
		if err := h.cache(c.UserContext()); err != nil {
			checks["redis"] = err.Error()
			status = fiber.StatusServiceUnavailable
		}
	}

	return c.Status(status).JSON(fiber.Map{"success": status == fiber.StatusOK, "data": checks})
}
