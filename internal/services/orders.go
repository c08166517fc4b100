package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/foodorder/internal/models"
	"github.com/example/foodorder/internal/pricing"
	"github.com/example/foodorder/internal/utils"
)

// Customer identifies who places an order. UserID wins over Phone when both are set.
type Customer struct {
	UserID *uuid.UUID
	Name   string
	Phone  string
}

// PlaceOrderInput is everything needed to price and persist an order.
type PlaceOrderInput struct {
	Items      []CartItem
	Type       models.OrderType
	ZoneID     *uuid.UUID
	BranchID   *uuid.UUID
	Address    string
	PickupTime *time.Time
	Customer   Customer
	PromoCode  string
	BonusToUse int64
	Comment    string
}

// OrderReceipt is returned to the customer after placement.
type OrderReceipt struct {
	ID          uuid.UUID          `json:"id"`
	Type        models.OrderType   `json:"type"`
	Status      models.OrderStatus `json:"status"`
	PickupTime  *time.Time         `json:"pickup_time"`
	PickupCode  *string            `json:"pickup_code"`
	PromoCode   string             `json:"promo_code"`
	Subtotal    int64              `json:"subtotal"`
	DeliveryFee int64              `json:"delivery_fee"`
	Discount    int64              `json:"discount"`
	Total       int64              `json:"total"`
	BonusEarned int64              `json:"bonus_earned"`
	BonusUsed   int64              `json:"bonus_used"`
	CreatedAt   time.Time          `json:"created_at"`
	Items       []models.OrderItem `json:"items"`
}

// NewOrderReceipt projects a persisted order.
func NewOrderReceipt(order *models.Order) *OrderReceipt {
	return &OrderReceipt{
		ID:          order.ID,
		Type:        order.Type,
		Status:      order.Status,
		PickupTime:  order.PickupTime,
		PickupCode:  order.PickupCode,
		PromoCode:   order.PromoCode,
		Subtotal:    order.Subtotal,
		DeliveryFee: order.DeliveryFee,
		Discount:    order.Discount,
		Total:       order.Total,
		BonusEarned: order.BonusEarned,
		BonusUsed:   order.BonusUsed,
		CreatedAt:   order.CreatedAt,
		Items:       order.Items,
	}
}

// Quote is a priced cart without side effects.
type Quote struct {
	Lines    []PricedLine   `json:"lines"`
	Totals   pricing.Totals `json:"totals"`
	Promo    PromoResult    `json:"promo"`
	BranchID *uuid.UUID     `json:"branch_id"`
	ZoneID   *uuid.UUID     `json:"zone_id"`
	Balance  int64          `json:"bonus_balance"`
}

// StatusResult is returned by UpdateStatus.
type StatusResult struct {
	ID     uuid.UUID          `json:"id"`
	Status models.OrderStatus `json:"status"`
	PaidAt *time.Time         `json:"paid_at"`
}

// OrderFilter narrows the admin order listing.
type OrderFilter struct {
	Status   models.OrderStatus
	Type     models.OrderType
	BranchID *uuid.UUID
	Limit    int
	Offset   int
}

// StatusGuard may reject a transition. A nil guard allows any known status.
type StatusGuard func(from, to models.OrderStatus) error

// OrderService assembles orders and drives their lifecycle.
type OrderService struct {
	db        *gorm.DB
	catalog   *CatalogResolver
	promos    *PromoService
	ledger    *BonusLedger
	pickup    PickupSequence
	publisher Publisher
	log       *zap.Logger
	now       func() time.Time

	StatusGuard StatusGuard
}

// OrderServiceOption customizes an OrderService.
type OrderServiceOption func(*OrderService)

// WithPublisher sets where order events are sent.
func WithPublisher(p Publisher) OrderServiceOption {
	return func(s *OrderService) { s.publisher = p }
}

// WithPickupSequence overrides the pickup code source.
func WithPickupSequence(seq PickupSequence) OrderServiceOption {
	return func(s *OrderService) { s.pickup = seq }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) OrderServiceOption {
	return func(s *OrderService) { s.now = now }
}

// NewOrderService wires the order pipeline. Promo and ledger share the service clock.
func NewOrderService(db *gorm.DB, rules BonusRules, log *zap.Logger, opts ...OrderServiceOption) *OrderService {
	if log == nil {
		log = zap.NewNop()
	}
	s := &OrderService{
		db:        db,
		pickup:    NewDBPickupSequence(DefaultPickupCodeStart),
		publisher: NopPublisher{},
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.catalog = NewCatalogResolver(db)
	s.promos = NewPromoService(db, s.now)
	s.ledger = NewBonusLedger(db, rules, s.now, log)
	return s
}

// Catalog exposes the resolver used for pricing.
func (s *OrderService) Catalog() *CatalogResolver { return s.catalog }

// Promos exposes the promo evaluator.
func (s *OrderService) Promos() *PromoService { return s.promos }

// Ledger exposes the bonus ledger.
func (s *OrderService) Ledger() *BonusLedger { return s.ledger }

type route struct {
	branchID    *uuid.UUID
	zoneID      *uuid.UUID
	deliveryFee int64
	minOrder    int64
}

func resolveRoute(ctx context.Context, db *gorm.DB, kind models.OrderType, zoneID, branchID *uuid.UUID) (route, error) {
	switch kind {
	case models.OrderTypeDelivery:
		if zoneID != nil {
			var zone models.Zone
			if err := db.WithContext(ctx).Preload("Branch").First(&zone, "id = ?", *zoneID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return route{}, ErrZoneNotFound
				}
				return route{}, fmt.Errorf("load zone: %w", err)
			}
			if zone.Branch == nil || !zone.Branch.IsActive {
				return route{}, ErrBranchNotFound
			}
			branch := zone.BranchID
			zid := zone.ID
			return route{branchID: &branch, zoneID: &zid, deliveryFee: zone.DeliveryFee, minOrder: zone.MinOrderAmount}, nil
		}
		if branchID != nil {
			id, err := activeBranch(ctx, db, *branchID)
			if err != nil {
				return route{}, err
			}
			return route{branchID: &id}, nil
		}
		return route{}, ErrMissingAddressContext

	case models.OrderTypePickup:
		if branchID == nil {
			return route{}, ErrMissingBranch
		}
		id, err := activeBranch(ctx, db, *branchID)
		if err != nil {
			return route{}, err
		}
		return route{branchID: &id}, nil
	}

	return route{}, ErrInvalidOrderType
}

func activeBranch(ctx context.Context, db *gorm.DB, id uuid.UUID) (uuid.UUID, error) {
	var branch models.Branch
	if err := db.WithContext(ctx).Select("id").First(&branch, "id = ? AND is_active = ?", id, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, ErrBranchNotFound
		}
		return uuid.Nil, fmt.Errorf("load branch: %w", err)
	}
	return branch.ID, nil
}

func pricingLines(lines []PricedLine) []pricing.Line {
	out := make([]pricing.Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.PricingLine())
	}
	return out
}

// Quote prices a cart the way PlaceOrder would, without writing an order.
// The customer's balance is only considered when a user id is given.
func (s *OrderService) Quote(ctx context.Context, in PlaceOrderInput) (*Quote, error) {
	if !in.Type.Valid() {
		return nil, ErrInvalidOrderType
	}

	lines, err := s.catalog.Resolve(ctx, in.Items)
	if err != nil {
		return nil, err
	}

	rt, err := resolveRoute(ctx, s.db, in.Type, in.ZoneID, in.BranchID)
	if err != nil {
		return nil, err
	}

	subtotal := pricing.Subtotal(pricingLines(lines))
	if subtotal < rt.minOrder {
		return nil, ErrBelowMinimumOrder
	}

	promo, err := s.promos.Evaluate(ctx, in.PromoCode, rt.branchID, subtotal, rt.deliveryFee)
	if err != nil {
		return nil, err
	}

	var balance int64
	if in.Customer.UserID != nil {
		b, err := s.ledger.Reconcile(ctx, *in.Customer.UserID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		balance = b.Usable()
	}

	totals := s.ledger.Rules().Compute(pricing.Input{
		Lines:          pricingLines(lines),
		DeliveryFee:    rt.deliveryFee,
		Discount:       promo.Discount,
		RequestedBonus: in.BonusToUse,
		BonusBalance:   balance,
	})

	return &Quote{
		Lines:    lines,
		Totals:   totals,
		Promo:    promo,
		BranchID: rt.branchID,
		ZoneID:   rt.zoneID,
		Balance:  balance,
	}, nil
}

// PlaceOrder prices the cart and persists the order with its bonus and promo side effects
// in one transaction.
func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*OrderReceipt, error) {
	phone := utils.NormalizePhone(in.Customer.Phone)
	if in.Customer.UserID == nil && phone == "" {
		return nil, ErrCustomerIdentityRequired
	}
	if !in.Type.Valid() {
		return nil, ErrInvalidOrderType
	}

	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lines, err := s.catalog.WithTx(tx).Resolve(ctx, in.Items)
		if err != nil {
			return err
		}

		rt, err := resolveRoute(ctx, tx, in.Type, in.ZoneID, in.BranchID)
		if err != nil {
			return err
		}

		subtotal := pricing.Subtotal(pricingLines(lines))
		if subtotal < rt.minOrder {
			return ErrBelowMinimumOrder
		}

		promo, err := s.promos.WithTx(tx).Evaluate(ctx, in.PromoCode, rt.branchID, subtotal, rt.deliveryFee)
		if err != nil {
			return err
		}

		user, err := s.lockCustomer(ctx, tx, in.Customer.UserID, in.Customer.Name, phone)
		if err != nil {
			return err
		}

		ledger := s.ledger.WithTx(tx)
		swept, err := ledger.Sweep(ctx, user.ID)
		if err != nil {
			return err
		}
		spendable, err := ledger.Spendable(ctx, user.ID)
		if err != nil {
			return err
		}
		balance := Balance{Cached: user.BonusBalance - swept, Spendable: spendable}

		totals := ledger.Rules().Compute(pricing.Input{
			Lines:          pricingLines(lines),
			DeliveryFee:    rt.deliveryFee,
			Discount:       promo.Discount,
			RequestedBonus: in.BonusToUse,
			BonusBalance:   balance.Usable(),
		})

		order = models.Order{
			Type:          in.Type,
			Status:        models.OrderStatusCreated,
			UserID:        user.ID,
			CustomerName:  firstNonEmpty(in.Customer.Name, user.Name),
			CustomerPhone: firstNonEmpty(phone, deref(user.Phone)),
			ZoneID:        rt.zoneID,
			BranchID:      rt.branchID,
			Address:       in.Address,
			Comment:       in.Comment,
			Subtotal:      totals.Subtotal,
			DeliveryFee:   totals.DeliveryFee,
			Discount:      totals.Discount,
			Total:         totals.Total,
			BonusEarned:   totals.BonusEarned,
			BonusUsed:     totals.BonusUsed,
		}
		if promo.Applicable {
			order.PromoCodeID = promo.PromoID
			order.PromoCode = promo.Code
		}
		if in.Type == models.OrderTypePickup {
			code, err := s.pickup.Next(ctx, tx)
			if err != nil {
				return err
			}
			order.PickupCode = &code
			order.PickupTime = in.PickupTime
		}
		for _, line := range lines {
			order.Items = append(order.Items, line.OrderItem())
		}

		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		if _, err := ledger.Debit(ctx, user.ID, totals.BonusUsed); err != nil {
			return err
		}
		if _, err := ledger.Grant(ctx, user.ID, &order.ID, totals.BonusEarned); err != nil {
			return err
		}
		profile, err := s.profileMerge(ctx, tx, user, in.Customer.Name, phone)
		if err != nil {
			return err
		}
		if err := ledger.ApplyBalanceDelta(ctx, user.ID, totals.BonusEarned-totals.BonusUsed, profile); err != nil {
			return err
		}

		if promo.Applicable {
			if err := incrementPromoUsage(tx, *promo.PromoID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", order.UserID.String()),
		zap.String("type", string(order.Type)),
		zap.Int64("total", order.Total),
		zap.Int64("bonus_used", order.BonusUsed),
		zap.Int64("bonus_earned", order.BonusEarned))
	s.publish(ctx, newOrderEvent(EventOrderPlaced, &order, s.now()))

	return NewOrderReceipt(&order), nil
}

// lockCustomer finds the customer by id, then by phone, creating a new account when neither
// matches. The row stays locked until tx ends.
func (s *OrderService) lockCustomer(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, name, phone string) (*models.User, error) {
	locked := func() *gorm.DB {
		return tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var user models.User
	if userID != nil {
		err := locked().First(&user, "id = ?", *userID).Error
		if err == nil {
			return &user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("load user: %w", err)
		}
		if phone == "" {
			return nil, fmt.Errorf("%w: unknown user %s", ErrCustomerIdentityRequired, *userID)
		}
	}

	err := locked().First(&user, "phone = ?", phone).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load user by phone: %w", err)
	}

	user = models.User{Name: name, Phone: &phone}
	if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// profileMerge collects name and phone changes for user. A new phone is taken only while no
// other account holds it; otherwise the stored phone stays.
func (s *OrderService) profileMerge(ctx context.Context, tx *gorm.DB, user *models.User, name, phone string) (map[string]any, error) {
	updates := map[string]any{}
	if name != "" && name != user.Name {
		updates["name"] = name
	}
	if phone == "" || (user.Phone != nil && *user.Phone == phone) {
		return updates, nil
	}

	var holders int64
	if err := tx.WithContext(ctx).Model(&models.User{}).
		Where("phone = ? AND id <> ?", phone, user.ID).
		Count(&holders).Error; err != nil {
		return nil, fmt.Errorf("check phone owner: %w", err)
	}
	if holders > 0 {
		s.log.Info("phone belongs to another customer, keeping stored phone",
			zap.String("user_id", user.ID.String()))
		return updates, nil
	}
	updates["phone"] = phone
	return updates, nil
}

// UpdateStatus moves an order to status. Reaching done stamps the payment time.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status models.OrderStatus) (*StatusResult, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	var order models.Order
	var previous models.OrderStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("load order: %w", err)
		}

		if s.StatusGuard != nil {
			if err := s.StatusGuard(order.Status, status); err != nil {
				return err
			}
		}

		previous = order.Status
		updates := map[string]any{"status": status}
		if status == models.OrderStatusDone && order.PaidAt == nil {
			now := s.now()
			order.PaidAt = &now
			updates["paid_at"] = now
		}
		order.Status = status

		return tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order status changed",
		zap.String("order_id", order.ID.String()),
		zap.String("from", string(previous)),
		zap.String("to", string(status)))
	s.publish(ctx, newOrderEvent(EventOrderStatusChanged, &order, s.now()))

	return &StatusResult{ID: order.ID, Status: order.Status, PaidAt: order.PaidAt}, nil
}

// GetOrder loads an order with its items. A non-nil userID restricts it to that owner.
func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID, userID *uuid.UUID) (*models.Order, error) {
	query := s.db.WithContext(ctx).Preload("Items")
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}

	var order models.Order
	if err := query.First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	return &order, nil
}

// ListUserOrders returns the customer's orders newest first, sweeping expired bonus beforehand.
func (s *OrderService) ListUserOrders(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, int64, error) {
	if _, err := s.ledger.Sweep(ctx, userID); err != nil {
		return nil, 0, err
	}
	return s.listOrders(ctx, s.db.WithContext(ctx).Where("user_id = ?", userID), limit, offset)
}

// ListOrders returns orders for the back office.
func (s *OrderService) ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.BranchID != nil {
		query = query.Where("branch_id = ?", *filter.BranchID)
	}
	return s.listOrders(ctx, query, filter.Limit, filter.Offset)
}

func (s *OrderService) listOrders(ctx context.Context, query *gorm.DB, limit, offset int) ([]models.Order, int64, error) {
	var total int64
	if err := query.Model(&models.Order{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 20
	}

	var orders []models.Order
	if err := query.Preload("Items").
		Order("created_at desc").
		Limit(limit).Offset(offset).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// PickupQR renders the pickup code of an order as a PNG.
func (s *OrderService) PickupQR(ctx context.Context, orderID uuid.UUID, userID *uuid.UUID) ([]byte, error) {
	order, err := s.GetOrder(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if order.PickupCode == nil {
		return nil, ErrNoPickupCode
	}
	return PickupQRCode(*order.PickupCode)
}

func (s *OrderService) publish(ctx context.Context, event OrderEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("publish order event failed",
			zap.String("event", event.Type),
			zap.String("order_id", event.OrderID.String()),
			zap.Error(err))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
