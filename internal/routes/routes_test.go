package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/foodorder/internal/config"
	"github.com/example/foodorder/internal/handlers"
	"github.com/example/foodorder/internal/models"
	"github.com/example/foodorder/internal/services"
	"github.com/example/foodorder/internal/testutil"
	"github.com/example/foodorder/internal/utils"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testServer struct {
	app *fiber.App
	db  *gorm.DB
	cfg *config.Config
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.NewDB(t)

	hash, err := utils.HashPassword("s3cret")
	require.NoError(t, err)
	cfg := &config.Config{
		JWTSecret:         "test-secret",
		TokenExpires:      time.Hour,
		AdminUsername:     "admin",
		AdminPasswordHash: hash,
	}

	orders := services.NewOrderService(db, services.DefaultBonusRules, zap.NewNop(),
		services.WithClock(testutil.Clock(testutil.Now)))

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(zap.NewNop())})
	Register(app, db, cfg, orders, nil)

	return &testServer{app: app, db: db, cfg: cfg}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	resp := s.raw(t, method, path, token, body)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func (s *testServer) raw(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	status, env := s.do(t, "POST", "/api/admin/login", "", fiber.Map{"username": "admin", "password": "s3cret"})
	require.Equal(t, fiber.StatusOK, status, env.Error)

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func (s *testServer) customerToken(t *testing.T, id uuid.UUID) string {
	t.Helper()
	token, err := utils.GenerateToken(s.cfg.JWTSecret, id, utils.RoleCustomer, time.Hour)
	require.NoError(t, err)
	return token
}

func decode(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, dst), string(env.Data))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	status, env := s.do(t, "GET", "/health", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, env.Success)
}

func TestAdminLogin(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, "POST", "/api/admin/login", "", fiber.Map{"username": "admin", "password": "wrong"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.False(t, env.Success)
	assert.Equal(t, "invalid credentials", env.Error)

	status, _ = s.do(t, "POST", "/api/admin/login", "", fiber.Map{"username": "admin"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	token := s.adminToken(t)
	status, _ = s.do(t, "GET", "/api/admin/stats", token, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = s.do(t, "GET", "/api/admin/stats", s.customerToken(t, uuid.New()), nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = s.do(t, "GET", "/api/admin/stats", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

// TestOrderLifecycle drives the storefront end to end: the back office sets up the catalog,
// a guest orders for pickup, then the customer and the kitchen follow the order.
func TestOrderLifecycle(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)

	status, env := s.do(t, "POST", "/api/admin/categories/", admin, fiber.Map{"name": "Pizza", "slug": "pizza"})
	require.Equal(t, fiber.StatusCreated, status, env.Error)
	var category models.Category
	decode(t, env, &category)

	status, env = s.do(t, "POST", "/api/admin/branches/", admin, fiber.Map{"name": "Central", "address_line": "Amir Temur 1"})
	require.Equal(t, fiber.StatusCreated, status, env.Error)
	var branch models.Branch
	decode(t, env, &branch)
	assert.True(t, branch.IsActive)

	status, env = s.do(t, "POST", "/api/admin/dishes/", admin, fiber.Map{
		"name":        "Margherita",
		"base_price":  1900,
		"category_id": category.ID,
		"variants":    []fiber.Map{{"name": "Large", "price_delta": 500}},
		"modifiers": []fiber.Map{
			{"name": "Extra cheese", "kind": "addon", "price": 240},
			{"name": "No onion", "kind": "exclusion", "price": 50},
		},
	})
	require.Equal(t, fiber.StatusCreated, status, env.Error)
	var dish models.Dish
	decode(t, env, &dish)
	require.Len(t, dish.Variants, 1)
	require.Len(t, dish.Modifiers, 2)
	assert.Equal(t, int64(0), dish.Modifiers[1].Price)

	status, env = s.do(t, "POST", "/api/admin/promo-codes/", admin, fiber.Map{
		"code":             "sale10",
		"discount_percent": 10,
		"expires_at":       "2026-04-01T00:00:00Z",
		"max_uses":         5,
		"branch_ids":       []uuid.UUID{branch.ID},
	})
	require.Equal(t, fiber.StatusCreated, status, env.Error)

	status, env = s.do(t, "GET", "/api/menu", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	var menu []models.Category
	decode(t, env, &menu)
	require.Len(t, menu, 1)
	require.Len(t, menu[0].Dishes, 1)

	cart := []fiber.Map{{
		"dish_id":       dish.ID,
		"variant_id":    dish.Variants[0].ID,
		"quantity":      2,
		"addon_ids":     []uuid.UUID{dish.Modifiers[0].ID},
		"exclusion_ids": []uuid.UUID{dish.Modifiers[1].ID},
	}}

	status, env = s.do(t, "POST", "/api/cart/quote", "", fiber.Map{
		"items": cart, "type": "pickup", "branch_id": branch.ID, "promo_code": "SALE10",
	})
	require.Equal(t, fiber.StatusOK, status, env.Error)
	var quote services.Quote
	decode(t, env, &quote)
	assert.Equal(t, int64(5280), quote.Totals.Subtotal)
	assert.Equal(t, int64(528), quote.Totals.Discount)
	assert.Equal(t, int64(4752), quote.Totals.Total)

	status, env = s.do(t, "POST", "/api/promo/check", "", fiber.Map{
		"code": "SALE10", "branch_id": uuid.New(), "subtotal": 5280,
	})
	require.Equal(t, fiber.StatusOK, status, env.Error)
	var promo services.PromoResult
	decode(t, env, &promo)
	assert.False(t, promo.Applicable)

	status, env = s.do(t, "POST", "/api/orders", "", fiber.Map{
		"items": cart, "type": "pickup", "branch_id": branch.ID, "promo_code": "SALE10",
		"name": "Dilnoza", "phone": "+998 90 111 22 33",
	})
	require.Equal(t, fiber.StatusCreated, status, env.Error)
	var receipt services.OrderReceipt
	decode(t, env, &receipt)
	assert.Equal(t, int64(4752), receipt.Total)
	assert.Equal(t, int64(475), receipt.BonusEarned)
	require.NotNil(t, receipt.PickupCode)
	assert.Equal(t, "100000", *receipt.PickupCode)
	require.Len(t, receipt.Items, 1)
	assert.Equal(t, "No onion", receipt.Items[0].Exclusions)

	var user models.User
	require.NoError(t, s.db.First(&user, "phone = ?", "+998901112233").Error)
	customer := s.customerToken(t, user.ID)

	status, env = s.do(t, "GET", "/api/profile", customer, nil)
	require.Equal(t, fiber.StatusOK, status, env.Error)
	var profile struct {
		Name         string `json:"name"`
		BonusBalance int64  `json:"bonus_balance"`
	}
	decode(t, env, &profile)
	assert.Equal(t, "Dilnoza", profile.Name)
	assert.Equal(t, int64(475), profile.BonusBalance)

	status, env = s.do(t, "GET", "/api/profile/bonus", customer, nil)
	require.Equal(t, fiber.StatusOK, status, env.Error)
	var grants []models.BonusTransaction
	decode(t, env, &grants)
	require.Len(t, grants, 1)
	assert.Equal(t, int64(475), grants[0].Amount)

	status, env = s.do(t, "GET", "/api/orders", customer, nil)
	require.Equal(t, fiber.StatusOK, status, env.Error)
	var history []models.Order
	decode(t, env, &history)
	require.Len(t, history, 1)
	assert.Equal(t, receipt.ID, history[0].ID)

	status, _ = s.do(t, "GET", "/api/orders/"+receipt.ID.String(), s.customerToken(t, uuid.New()), nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	resp := s.raw(t, "GET", "/api/orders/"+receipt.ID.String()+"/pickup-qr", customer, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	resp.Body.Close()

	statusPath := fmt.Sprintf("/api/admin/orders/%s/status", receipt.ID)
	status, env = s.do(t, "PATCH", statusPath, admin, fiber.Map{"status": "lost"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status, env.Error)

	status, env = s.do(t, "PATCH", statusPath, admin, fiber.Map{"status": "done"})
	require.Equal(t, fiber.StatusOK, status, env.Error)
	var result services.StatusResult
	decode(t, env, &result)
	assert.Equal(t, models.OrderStatusDone, result.Status)
	require.NotNil(t, result.PaidAt)

	status, _ = s.do(t, "PATCH", fmt.Sprintf("/api/admin/orders/%s/status", uuid.New()), admin, fiber.Map{"status": "done"})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, env = s.do(t, "GET", "/api/admin/orders?status=done&type=pickup", admin, nil)
	require.Equal(t, fiber.StatusOK, status, env.Error)
	var listed []models.Order
	decode(t, env, &listed)
	assert.Len(t, listed, 1)
}

func TestCreateOrder_Validation(t *testing.T) {
	s := newTestServer(t)
	branch := testutil.Branch(t, s.db, "Central")
	dish := testutil.Dish(t, s.db, "Plov", 3500)

	tests := []struct {
		name   string
		body   fiber.Map
		status int
	}{
		{
			name:   "empty cart",
			body:   fiber.Map{"items": []fiber.Map{}, "type": "pickup", "branch_id": branch.ID, "phone": "+998901112233"},
			status: fiber.StatusUnprocessableEntity,
		},
		{
			name:   "unknown type",
			body:   fiber.Map{"items": []fiber.Map{{"dish_id": dish.ID, "quantity": 1}}, "type": "drone", "phone": "+998901112233"},
			status: fiber.StatusUnprocessableEntity,
		},
		{
			name:   "quantity above cap",
			body:   fiber.Map{"items": []fiber.Map{{"dish_id": dish.ID, "quantity": 1 << 62}}, "type": "pickup", "branch_id": branch.ID, "phone": "+998901112233"},
			status: fiber.StatusUnprocessableEntity,
		},
		{
			name:   "unknown dish",
			body:   fiber.Map{"items": []fiber.Map{{"dish_id": uuid.New(), "quantity": 1}}, "type": "pickup", "branch_id": branch.ID, "phone": "+998901112233"},
			status: fiber.StatusBadRequest,
		},
		{
			name:   "guest without phone",
			body:   fiber.Map{"items": []fiber.Map{{"dish_id": dish.ID, "quantity": 1}}, "type": "pickup", "branch_id": branch.ID},
			status: fiber.StatusBadRequest,
		},
		{
			name:   "pickup without branch",
			body:   fiber.Map{"items": []fiber.Map{{"dish_id": dish.ID, "quantity": 1}}, "type": "pickup", "phone": "+998901112233"},
			status: fiber.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, env := s.do(t, "POST", "/api/orders", "", tc.body)
			assert.Equal(t, tc.status, status, env.Error)
			assert.False(t, env.Success)
		})
	}

	var n int64
	require.NoError(t, s.db.Model(&models.Order{}).Count(&n).Error)
	assert.Equal(t, int64(0), n)
}

func TestCreateOrder_AuthenticatedCustomer(t *testing.T) {
	s := newTestServer(t)
	branch := testutil.Branch(t, s.db, "Central")
	dish := testutil.Dish(t, s.db, "Family combo", 4752)
	user := testutil.User(t, s.db, "+998905556677", 1000)
	testutil.Grant(t, s.db, user.ID, 1000, 0, testutil.Now.Add(72*time.Hour))

	status, env := s.do(t, "POST", "/api/orders", s.customerToken(t, user.ID), fiber.Map{
		"items":        []fiber.Map{{"dish_id": dish.ID, "quantity": 1}},
		"type":         "pickup",
		"branch_id":    branch.ID,
		"bonus_to_use": 1000,
	})
	require.Equal(t, fiber.StatusCreated, status, env.Error)

	var receipt services.OrderReceipt
	decode(t, env, &receipt)
	assert.Equal(t, int64(1000), receipt.BonusUsed)
	assert.Equal(t, int64(3752), receipt.Total)
}

func TestCreateDish_RejectsVariantBelowZero(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)

	status, env := s.do(t, "POST", "/api/admin/dishes/", admin, fiber.Map{
		"name":       "Mini",
		"base_price": 1900,
		"variants":   []fiber.Map{{"name": "Bite", "price_delta": -5000}},
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status, env.Error)
	assert.Contains(t, env.Error, "below zero")

	var n int64
	require.NoError(t, s.db.Model(&models.Dish{}).Count(&n).Error)
	assert.Equal(t, int64(0), n)
}
