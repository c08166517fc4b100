package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/foodorder/internal/config"
	"github.com/example/foodorder/internal/handlers"
	"github.com/example/foodorder/internal/middleware"
	"github.com/example/foodorder/internal/services"
)

// Register wires up all HTTP routes. cachePing may be nil when Redis is not configured.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config, orders *services.OrderService, cachePing handlers.PingFunc) {
	catalogHandler := handlers.NewCatalogHandler(db)
	marketingHandler := handlers.NewMarketingHandler(db)
	orderHandler := handlers.NewOrderHandler(orders)
	profileHandler := handlers.NewProfileHandler(db, orders.Ledger())
	adminHandler := handlers.NewAdminHandler(db, cfg, orders)
	healthHandler := handlers.NewHealthHandler(db, cachePing)

	app.Get("/health", healthHandler.Check)

	api := app.Group("/api")

	// Public storefront
	api.Get("/menu", catalogHandler.Menu)
	api.Get("/dishes/:id", catalogHandler.GetDish)
	api.Get("/branches", marketingHandler.ListActiveBranches)
	api.Post("/promo/check", orderHandler.CheckPromo)
	api.Post("/admin/login", adminHandler.Login)

	// Group middleware runs for every /api route registered after it; public routes stay above.
	optional := api.Group("", middleware.OptionalAuth(cfg))
	optional.Post("/cart/quote", orderHandler.Quote)
	optional.Post("/orders", orderHandler.CreateOrder)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))
	protected.Get("/orders", orderHandler.ListOrders)
	protected.Get("/orders/:id", orderHandler.GetOrder)
	protected.Get("/orders/:id/pickup-qr", orderHandler.PickupQR)

	protected.Get("/profile", profileHandler.GetProfile)
	protected.Put("/profile", profileHandler.UpdateProfile)
	protected.Get("/profile/bonus", profileHandler.ListBonusTransactions)

	admin := api.Group("/admin", middleware.AuthMiddleware(cfg), middleware.RequireAdmin())
	admin.Get("/stats", adminHandler.DashboardStats)
	admin.Get("/orders", adminHandler.ListAllOrders)
	admin.Get("/orders/:id", adminHandler.GetOrder)
	admin.Patch("/orders/:id/status", adminHandler.UpdateOrderStatus)

	categories := admin.Group("/categories")
	categories.Get("/", catalogHandler.ListCategories)
	categories.Post("/", catalogHandler.CreateCategory)
	categories.Get("/:id", catalogHandler.GetCategory)
	categories.Put("/:id", catalogHandler.UpdateCategory)
	categories.Delete("/:id", catalogHandler.DeleteCategory)

	statuses := admin.Group("/dish-statuses")
	statuses.Get("/", catalogHandler.ListDishStatuses)
	statuses.Post("/", catalogHandler.CreateDishStatus)
	statuses.Delete("/:id", catalogHandler.DeleteDishStatus)

	dishes := admin.Group("/dishes")
	dishes.Get("/", catalogHandler.ListDishes)
	dishes.Post("/", catalogHandler.CreateDish)
	dishes.Get("/:id", catalogHandler.GetDish)
	dishes.Put("/:id", catalogHandler.UpdateDish)
	dishes.Delete("/:id", catalogHandler.DeleteDish)

	branches := admin.Group("/branches")
	branches.Get("/", marketingHandler.ListBranches)
	branches.Post("/", marketingHandler.CreateBranch)
	branches.Put("/:id", marketingHandler.UpdateBranch)
	branches.Delete("/:id", marketingHandler.DeleteBranch)

	zones := admin.Group("/zones")
	zones.Get("/", marketingHandler.ListZones)
	zones.Post("/", marketingHandler.CreateZone)
	zones.Put("/:id", marketingHandler.UpdateZone)
	zones.Delete("/:id", marketingHandler.DeleteZone)

	promos := admin.Group("/promo-codes")
	promos.Get("/", marketingHandler.ListPromoCodes)
	promos.Post("/", marketingHandler.CreatePromoCode)
	promos.Put("/:id", marketingHandler.UpdatePromoCode)
	promos.Delete("/:id", marketingHandler.DeletePromoCode)
}
