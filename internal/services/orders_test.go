package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/foodorder/internal/models"
	"github.com/example/foodorder/internal/testutil"
)

type orderFixture struct {
	db     *gorm.DB
	svc    *OrderService
	events *recordingPublisher
	pizza  testutil.PizzaFixture
	branch models.Branch
}

func newOrderFixture(t *testing.T, opts ...OrderServiceOption) orderFixture {
	t.Helper()
	db := testutil.NewDB(t)
	events := &recordingPublisher{}
	opts = append([]OrderServiceOption{
		WithClock(testutil.Clock(testutil.Now)),
		WithPublisher(events),
	}, opts...)

	return orderFixture{
		db:     db,
		svc:    NewOrderService(db, DefaultBonusRules, zap.NewNop(), opts...),
		events: events,
		pizza:  testutil.Pizza(t, db),
		branch: testutil.Branch(t, db, "Central"),
	}
}

// pizzaCart is two large pizzas with extra cheese and no onion: 5280 in total.
func (f orderFixture) pizzaCart() []CartItem {
	return []CartItem{{
		DishID:       f.pizza.Dish.ID,
		VariantID:    &f.pizza.Large.ID,
		Quantity:     2,
		AddonIDs:     []uuid.UUID{f.pizza.Cheese.ID},
		ExclusionIDs: []uuid.UUID{f.pizza.NoOnion.ID},
	}}
}

func (f orderFixture) pickup(phone string) PlaceOrderInput {
	return PlaceOrderInput{
		Items:    f.pizzaCart(),
		Type:     models.OrderTypePickup,
		BranchID: &f.branch.ID,
		Customer: Customer{Name: "Dilnoza", Phone: phone},
	}
}

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestPlaceOrder_PickupWithoutPromoOrBonus(t *testing.T) {
	f := newOrderFixture(t)

	receipt, err := f.svc.PlaceOrder(context.Background(), f.pickup("+998 90 111 22 33"))
	require.NoError(t, err)

	assert.Equal(t, int64(5280), receipt.Subtotal)
	assert.Equal(t, int64(0), receipt.DeliveryFee)
	assert.Equal(t, int64(0), receipt.Discount)
	assert.Equal(t, int64(5280), receipt.Total)
	assert.Equal(t, int64(528), receipt.BonusEarned)
	assert.Equal(t, int64(0), receipt.BonusUsed)
	assert.Equal(t, models.OrderStatusCreated, receipt.Status)
	require.NotNil(t, receipt.PickupCode)
	assert.Equal(t, "100000", *receipt.PickupCode)

	var user models.User
	require.NoError(t, f.db.First(&user, "phone = ?", "+998901112233").Error)
	assert.Equal(t, "Dilnoza", user.Name)
	assert.Equal(t, int64(528), user.BonusBalance)

	var grants []models.BonusTransaction
	require.NoError(t, f.db.Find(&grants, "user_id = ?", user.ID).Error)
	require.Len(t, grants, 1)
	assert.Equal(t, int64(528), grants[0].Amount)
	assert.Equal(t, receipt.ID, *grants[0].OrderID)
	assert.True(t, grants[0].ExpiresAt.Equal(testutil.Now.Add(14*day)))

	require.Len(t, f.events.events, 1)
	assert.Equal(t, EventOrderPlaced, f.events.events[0].Type)
	assert.Equal(t, receipt.ID, f.events.events[0].OrderID)
}

func TestPlaceOrder_WithPromo(t *testing.T) {
	f := newOrderFixture(t)
	promo := testutil.Promo(t, f.db, "SALE10", 10, testutil.Now.Add(day), intPtr(5))

	in := f.pickup("+998901112233")
	in.PromoCode = "sale10"
	receipt, err := f.svc.PlaceOrder(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, int64(528), receipt.Discount)
	assert.Equal(t, int64(4752), receipt.Total)
	assert.Equal(t, int64(475), receipt.BonusEarned)
	assert.Equal(t, "SALE10", receipt.PromoCode)

	var reloaded models.PromoCode
	require.NoError(t, f.db.First(&reloaded, "id = ?", promo.ID).Error)
	assert.Equal(t, 1, reloaded.UsedCount)
}

func TestPlaceOrder_InapplicablePromoIsIgnored(t *testing.T) {
	f := newOrderFixture(t)
	promo := testutil.Promo(t, f.db, "FULL", 10, testutil.Now.Add(day), intPtr(5))
	require.NoError(t, f.db.Model(&models.PromoCode{}).Where("id = ?", promo.ID).UpdateColumn("used_count", 5).Error)

	in := f.pickup("+998901112233")
	in.PromoCode = "FULL"
	receipt, err := f.svc.PlaceOrder(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, int64(0), receipt.Discount)
	assert.Equal(t, int64(5280), receipt.Total)
	assert.Empty(t, receipt.PromoCode)

	var reloaded models.PromoCode
	require.NoError(t, f.db.First(&reloaded, "id = ?", promo.ID).Error)
	assert.Equal(t, 5, reloaded.UsedCount)
}

func TestPlaceOrder_SpendsBonus(t *testing.T) {
	f := newOrderFixture(t)
	combo := testutil.Dish(t, f.db, "Family combo", 4752)
	user := testutil.User(t, f.db, "+998905556677", 1000)
	grant := testutil.Grant(t, f.db, user.ID, 1000, 0, testutil.Now.Add(5*day))

	receipt, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		Items:      []CartItem{{DishID: combo.ID, Quantity: 1}},
		Type:       models.OrderTypePickup,
		BranchID:   &f.branch.ID,
		Customer:   Customer{UserID: &user.ID},
		BonusToUse: 1000,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(4752), receipt.Subtotal)
	assert.Equal(t, int64(1000), receipt.BonusUsed)
	assert.Equal(t, int64(3752), receipt.Total)
	assert.Equal(t, int64(475), receipt.BonusEarned)

	assert.Equal(t, int64(1000), loadGrant(t, f.db, grant.ID).Used)
	assert.Equal(t, int64(475), loadUser(t, f.db, user.ID).BonusBalance)

	spendable, err := f.svc.Ledger().Spendable(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(475), spendable)
}

func TestPlaceOrder_BonusCappedAtThirtyPercent(t *testing.T) {
	f := newOrderFixture(t)
	combo := testutil.Dish(t, f.db, "Family combo", 4752)
	user := testutil.User(t, f.db, "+998905556677", 5000)
	testutil.Grant(t, f.db, user.ID, 5000, 0, testutil.Now.Add(5*day))

	receipt, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		Items:      []CartItem{{DishID: combo.ID, Quantity: 1}},
		Type:       models.OrderTypePickup,
		BranchID:   &f.branch.ID,
		Customer:   Customer{UserID: &user.ID},
		BonusToUse: 5000,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1425), receipt.BonusUsed)
	assert.Equal(t, int64(4752-1425), receipt.Total)
}

func TestPlaceOrder_SweepsExpiredBonusBeforeSpending(t *testing.T) {
	f := newOrderFixture(t)
	user := testutil.User(t, f.db, "+998905556677", 800)
	testutil.Grant(t, f.db, user.ID, 600, 0, testutil.Now.Add(-day))
	testutil.Grant(t, f.db, user.ID, 200, 0, testutil.Now.Add(day))

	in := f.pickup("")
	in.Customer = Customer{UserID: &user.ID}
	in.BonusToUse = 800
	receipt, err := f.svc.PlaceOrder(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, int64(200), receipt.BonusUsed)
	assert.Equal(t, int64(5080), receipt.Total)
	// 800 - 600 swept - 200 spent + 528 earned
	assert.Equal(t, int64(528), loadUser(t, f.db, user.ID).BonusBalance)
}

func TestPlaceOrder_CachedBalanceAboveLedgerIsClamped(t *testing.T) {
	f := newOrderFixture(t)
	user := testutil.User(t, f.db, "+998905556677", 1000)
	testutil.Grant(t, f.db, user.ID, 150, 0, testutil.Now.Add(day))

	in := f.pickup("")
	in.Customer = Customer{UserID: &user.ID}
	in.BonusToUse = 1000
	receipt, err := f.svc.PlaceOrder(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, int64(150), receipt.BonusUsed)
}

func TestPlaceOrder_SequentialPickupCodes(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	first, err := f.svc.PlaceOrder(ctx, f.pickup("+998901112233"))
	require.NoError(t, err)
	second, err := f.svc.PlaceOrder(ctx, f.pickup("+998901112233"))
	require.NoError(t, err)

	assert.Equal(t, "100000", *first.PickupCode)
	assert.Equal(t, "100001", *second.PickupCode)
	assert.Equal(t, int64(1), count(t, f.db, &models.User{}))
}

func TestPlaceOrder_DeliveryThroughZone(t *testing.T) {
	f := newOrderFixture(t)
	zone := testutil.Zone(t, f.db, f.branch, 700, 0)

	receipt, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		Items:    f.pizzaCart(),
		Type:     models.OrderTypeDelivery,
		ZoneID:   &zone.ID,
		Address:  "Amir Temur 1",
		Customer: Customer{Phone: "+998901112233"},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(700), receipt.DeliveryFee)
	assert.Equal(t, int64(5980), receipt.Total)
	assert.Equal(t, int64(528), receipt.BonusEarned)
	assert.Nil(t, receipt.PickupCode)

	order, err := f.svc.GetOrder(context.Background(), receipt.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, order.BranchID)
	assert.Equal(t, f.branch.ID, *order.BranchID)
	assert.Equal(t, zone.ID, *order.ZoneID)
}

func TestPlaceOrder_DeliveryThroughBranchHasNoFee(t *testing.T) {
	f := newOrderFixture(t)

	receipt, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		Items:    f.pizzaCart(),
		Type:     models.OrderTypeDelivery,
		BranchID: &f.branch.ID,
		Customer: Customer{Phone: "+998901112233"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), receipt.DeliveryFee)
	assert.Equal(t, int64(5280), receipt.Total)
}

func TestPlaceOrder_PromoScopedToResolvedBranch(t *testing.T) {
	f := newOrderFixture(t)
	zone := testutil.Zone(t, f.db, f.branch, 700, 0)
	other := testutil.Branch(t, f.db, "North")
	testutil.Promo(t, f.db, "NORTHONLY", 10, testutil.Now.Add(day), nil, other)
	testutil.Promo(t, f.db, "CENTRAL", 10, testutil.Now.Add(day), nil, f.branch)
	ctx := context.Background()

	in := PlaceOrderInput{
		Items:     f.pizzaCart(),
		Type:      models.OrderTypeDelivery,
		ZoneID:    &zone.ID,
		Customer:  Customer{Phone: "+998901112233"},
		PromoCode: "NORTHONLY",
	}
	receipt, err := f.svc.PlaceOrder(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, int64(0), receipt.Discount)

	in.PromoCode = "CENTRAL"
	receipt, err = f.svc.PlaceOrder(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, int64(528), receipt.Discount)
}

func TestPlaceOrder_ItemsResumToAggregates(t *testing.T) {
	f := newOrderFixture(t)
	salad := testutil.Dish(t, f.db, "Caesar", 1250)
	testutil.Promo(t, f.db, "SALE15", 15, testutil.Now.Add(day), nil)

	in := f.pickup("+998901112233")
	in.Items = append(in.Items, CartItem{DishID: salad.ID, Quantity: 3})
	in.PromoCode = "SALE15"
	receipt, err := f.svc.PlaceOrder(context.Background(), in)
	require.NoError(t, err)

	order, err := f.svc.GetOrder(context.Background(), receipt.ID, nil)
	require.NoError(t, err)
	require.Len(t, order.Items, 2)

	var sum int64
	for _, item := range order.Items {
		assert.Equal(t, item.UnitPrice*int64(item.Quantity), item.LineTotal)
		sum += item.LineTotal
	}
	assert.Equal(t, order.Subtotal, sum)
	assert.Equal(t, order.Subtotal+order.DeliveryFee-order.Discount-order.BonusUsed, order.Total)
	assert.Equal(t, int64(5280+3750), order.Subtotal)
}

func TestPlaceOrder_ValidationErrorsWriteNothing(t *testing.T) {
	f := newOrderFixture(t)
	inactive := testutil.Branch(t, f.db, "Closed")
	require.NoError(t, f.db.Model(&models.Branch{}).Where("id = ?", inactive.ID).UpdateColumn("is_active", false).Error)
	zone := testutil.Zone(t, f.db, f.branch, 700, 100000)
	missing := uuid.New()

	tests := []struct {
		name   string
		mutate func(*PlaceOrderInput)
		want   error
	}{
		{name: "no identity", mutate: func(in *PlaceOrderInput) { in.Customer = Customer{} }, want: ErrCustomerIdentityRequired},
		{name: "unknown type", mutate: func(in *PlaceOrderInput) { in.Type = "drone" }, want: ErrInvalidOrderType},
		{name: "empty cart", mutate: func(in *PlaceOrderInput) { in.Items = nil }, want: ErrEmptyCart},
		{name: "pickup without branch", mutate: func(in *PlaceOrderInput) { in.BranchID = nil }, want: ErrMissingBranch},
		{name: "pickup at inactive branch", mutate: func(in *PlaceOrderInput) { in.BranchID = &inactive.ID }, want: ErrBranchNotFound},
		{name: "delivery without zone or branch", mutate: func(in *PlaceOrderInput) {
			in.Type = models.OrderTypeDelivery
			in.BranchID = nil
		}, want: ErrMissingAddressContext},
		{name: "delivery to unknown zone", mutate: func(in *PlaceOrderInput) {
			in.Type = models.OrderTypeDelivery
			in.ZoneID = &missing
		}, want: ErrZoneNotFound},
		{name: "below zone minimum", mutate: func(in *PlaceOrderInput) {
			in.Type = models.OrderTypeDelivery
			in.ZoneID = &zone.ID
		}, want: ErrBelowMinimumOrder},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := f.pickup("+998901112233")
			tc.mutate(&in)

			_, err := f.svc.PlaceOrder(context.Background(), in)
			assert.ErrorIs(t, err, tc.want)
			assert.True(t, IsValidation(err))
		})
	}

	assert.Equal(t, int64(0), count(t, f.db, &models.Order{}))
	assert.Equal(t, int64(0), count(t, f.db, &models.User{}))
	assert.Empty(t, f.events.events)
}

type failingSequence struct{}

func (failingSequence) Next(context.Context, *gorm.DB) (string, error) {
	return "", errors.New("counter unavailable")
}

func TestPlaceOrder_RollsBackOnFailure(t *testing.T) {
	f := newOrderFixture(t, WithPickupSequence(failingSequence{}))
	user := testutil.User(t, f.db, "+998905556677", 900)
	testutil.Grant(t, f.db, user.ID, 600, 0, testutil.Now.Add(-day))
	testutil.Grant(t, f.db, user.ID, 300, 0, testutil.Now.Add(day))
	promo := testutil.Promo(t, f.db, "SALE10", 10, testutil.Now.Add(day), nil)

	in := f.pickup("")
	in.Customer = Customer{UserID: &user.ID, Name: "Renamed"}
	in.PromoCode = "SALE10"
	in.BonusToUse = 300

	_, err := f.svc.PlaceOrder(context.Background(), in)
	require.Error(t, err)

	reloaded := loadUser(t, f.db, user.ID)
	assert.Equal(t, int64(900), reloaded.BonusBalance)
	assert.NotEqual(t, "Renamed", reloaded.Name)

	var p models.PromoCode
	require.NoError(t, f.db.First(&p, "id = ?", promo.ID).Error)
	assert.Equal(t, 0, p.UsedCount)

	var grants []models.BonusTransaction
	require.NoError(t, f.db.Find(&grants, "user_id = ?", user.ID).Error)
	for _, g := range grants {
		assert.Equal(t, int64(0), g.Used)
	}
	assert.Equal(t, int64(0), count(t, f.db, &models.Order{}))
	assert.Empty(t, f.events.events)
}

func TestPlaceOrder_PublishFailureDoesNotFailOrder(t *testing.T) {
	f := newOrderFixture(t)
	f.events.err = errors.New("broker down")

	receipt, err := f.svc.PlaceOrder(context.Background(), f.pickup("+998901112233"))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, receipt.ID)
	assert.Len(t, f.events.events, 1)
}

func TestQuote_MatchesPlacementWithoutWriting(t *testing.T) {
	f := newOrderFixture(t)
	zone := testutil.Zone(t, f.db, f.branch, 700, 0)
	testutil.Promo(t, f.db, "SALE10", 10, testutil.Now.Add(day), nil)
	user := testutil.User(t, f.db, "+998905556677", 400)
	testutil.Grant(t, f.db, user.ID, 400, 0, testutil.Now.Add(day))

	in := PlaceOrderInput{
		Items:      f.pizzaCart(),
		Type:       models.OrderTypeDelivery,
		ZoneID:     &zone.ID,
		Customer:   Customer{UserID: &user.ID},
		PromoCode:  "SALE10",
		BonusToUse: 400,
	}

	quote, err := f.svc.Quote(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, int64(5280), quote.Totals.Subtotal)
	assert.Equal(t, int64(528), quote.Totals.Discount)
	assert.Equal(t, int64(400), quote.Totals.BonusUsed)
	assert.Equal(t, int64(5280+700-528-400), quote.Totals.Total)
	assert.True(t, quote.Promo.Applicable)
	assert.Equal(t, int64(0), count(t, f.db, &models.Order{}))

	receipt, err := f.svc.PlaceOrder(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, quote.Totals.Total, receipt.Total)
	assert.Equal(t, quote.Totals.BonusEarned, receipt.BonusEarned)
}

func TestUpdateStatus(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	receipt, err := f.svc.PlaceOrder(ctx, f.pickup("+998901112233"))
	require.NoError(t, err)

	res, err := f.svc.UpdateStatus(ctx, receipt.ID, models.OrderStatusCooking)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCooking, res.Status)
	assert.Nil(t, res.PaidAt)

	res, err = f.svc.UpdateStatus(ctx, receipt.ID, models.OrderStatusDone)
	require.NoError(t, err)
	require.NotNil(t, res.PaidAt)
	assert.True(t, res.PaidAt.Equal(testutil.Now))

	order, err := f.svc.GetOrder(ctx, receipt.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDone, order.Status)
	require.NotNil(t, order.PaidAt)

	// Administrative override: any known status is reachable.
	res, err = f.svc.UpdateStatus(ctx, receipt.ID, models.OrderStatusCreated)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCreated, res.Status)

	require.Len(t, f.events.events, 4)
	assert.Equal(t, EventOrderStatusChanged, f.events.events[3].Type)
}

func TestUpdateStatus_Errors(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, uuid.New(), models.OrderStatusAccepted)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	receipt, err := f.svc.PlaceOrder(ctx, f.pickup("+998901112233"))
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, receipt.ID, "lost")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateStatus_Guard(t *testing.T) {
	errTerminal := errors.New("order is closed")
	f := newOrderFixture(t)
	f.svc.StatusGuard = func(from, to models.OrderStatus) error {
		if from.Terminal() {
			return errTerminal
		}
		return nil
	}
	ctx := context.Background()

	receipt, err := f.svc.PlaceOrder(ctx, f.pickup("+998901112233"))
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, receipt.ID, models.OrderStatusCanceled)
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, receipt.ID, models.OrderStatusAccepted)
	assert.ErrorIs(t, err, errTerminal)

	order, err := f.svc.GetOrder(ctx, receipt.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCanceled, order.Status)
}

func TestOrderQueries(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	zone := testutil.Zone(t, f.db, f.branch, 500, 0)

	pickup, err := f.svc.PlaceOrder(ctx, f.pickup("+998901112233"))
	require.NoError(t, err)
	delivery, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{
		Items:    f.pizzaCart(),
		Type:     models.OrderTypeDelivery,
		ZoneID:   &zone.ID,
		Customer: Customer{Phone: "+998901112233"},
	})
	require.NoError(t, err)
	_, err = f.svc.PlaceOrder(ctx, f.pickup("+998909999999"))
	require.NoError(t, err)

	var owner models.User
	require.NoError(t, f.db.First(&owner, "phone = ?", "+998901112233").Error)

	orders, total, err := f.svc.ListUserOrders(ctx, owner.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, orders, 2)

	stranger := uuid.New()
	_, err = f.svc.GetOrder(ctx, pickup.ID, &stranger)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	all, total, err := f.svc.ListOrders(ctx, OrderFilter{Type: models.OrderTypePickup})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	_, total, err = f.svc.ListOrders(ctx, OrderFilter{BranchID: &f.branch.ID, Status: models.OrderStatusCreated})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	png, err := f.svc.PickupQR(ctx, pickup.ID, &owner.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, png)

	_, err = f.svc.PickupQR(ctx, delivery.ID, &owner.ID)
	assert.ErrorIs(t, err, ErrNoPickupCode)
}

func TestPlaceOrder_MergesNewPhone(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	user := testutil.User(t, f.db, "+998905556677", 0)
	other := testutil.User(t, f.db, "+998907778899", 0)

	in := f.pickup("+998 90 111 22 33")
	in.Customer.UserID = &user.ID
	_, err := f.svc.PlaceOrder(ctx, in)
	require.NoError(t, err)

	reloaded := loadUser(t, f.db, user.ID)
	require.NotNil(t, reloaded.Phone)
	assert.Equal(t, "+998901112233", *reloaded.Phone)
	assert.Equal(t, "Dilnoza", reloaded.Name)

	// A phone held by another account is not taken over.
	in.Customer.Phone = *other.Phone
	_, err = f.svc.PlaceOrder(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, "+998901112233", *loadUser(t, f.db, user.ID).Phone)
	assert.Equal(t, "+998907778899", *loadUser(t, f.db, other.ID).Phone)
	assert.Equal(t, int64(2), count(t, f.db, &models.User{}))
}
