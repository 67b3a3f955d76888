package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"naturalpuff/internal/broker"
	"naturalpuff/internal/models"
	"naturalpuff/internal/store"
	"naturalpuff/internal/util"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"
)

// ErrTotalMismatch is returned when the client-claimed total does not equal
// the sum of item subtotals computed from the catalog.
var ErrTotalMismatch = errors.New("claimed total does not match item subtotals")

// CheckoutService handles order creation
type CheckoutService struct {
	store          *store.Store
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(store *store.Store, eventPublisher *broker.EventPublisher) *CheckoutService {
	return &CheckoutService{
		store:          store,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	UserID          *string            `json:"user_id,omitempty"` // nil for guest checkout
	Items           []OrderItemRequest `json:"items" binding:"required,min=1"`
	CouponCode      string             `json:"coupon_code,omitempty"`
	ShippingDetails types.JSONText     `json:"shipping_details" binding:"required"`
	// ClaimedTotal, when set, must match the server-computed total in paise.
	ClaimedTotal int64 `json:"claimed_total,omitempty"`
}

// OrderItemRequest represents an item in an order
type OrderItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// CreateOrderResponse represents the response after creating an order
type CreateOrderResponse struct {
	OrderID     string `json:"order_id"`
	Status      string `json:"status"`
	TotalAmount int64  `json:"total_amount"`
	Discount    int64  `json:"discount_amount"`
}

// CreateOrder creates an order with item snapshots. The amount invariant is
// enforced here: totals are computed from catalog prices, never taken from
// the client, and a claimed total that disagrees is rejected outright.
func (s *CheckoutService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.CreateOrder")
	defer span.End()

	products, err := s.validateItems(ctx, req.Items)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_items").Inc()
		return nil, err
	}

	subtotal := calculateSubtotal(req.Items, products)

	var discount int64
	var couponCode *string
	if req.CouponCode != "" {
		coupon, err := s.store.GetCouponByCode(ctx, req.CouponCode)
		if err != nil {
			util.OrdersFailedTotal.WithLabelValues("invalid_coupon").Inc()
			return nil, fmt.Errorf("coupon lookup failed: %w", err)
		}
		discount, err = applyCoupon(coupon, subtotal, time.Now())
		if err != nil {
			util.OrdersFailedTotal.WithLabelValues("invalid_coupon").Inc()
			return nil, err
		}
		couponCode = &coupon.Code
	}

	total := subtotal - discount

	if err := validateClaimedTotal(req.ClaimedTotal, subtotal, discount); err != nil {
		util.OrdersFailedTotal.WithLabelValues("total_mismatch").Inc()
		return nil, err
	}

	order := &models.Order{
		ID:              uuid.New().String(),
		UserID:          req.UserID,
		TotalAmount:     total,
		DiscountAmount:  discount,
		CouponCode:      couponCode,
		Status:          models.OrderStatusCreated,
		ShippingDetails: req.ShippingDetails,
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	eventItems := make([]models.OrderItemData, 0, len(req.Items))
	for _, item := range req.Items {
		product := products[item.ProductID]
		items = append(items, models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   product.Price,
		})
		eventItems = append(eventItems, models.OrderItemData{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   product.Price,
		})
	}

	if err := s.store.CreateOrder(ctx, order, items); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.Int64("total_amount", order.TotalAmount))

	event := &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCreated,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Items:       eventItems,
	}
	if err := s.eventPublisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}

	return &CreateOrderResponse{
		OrderID:     order.ID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		Discount:    order.DiscountAmount,
	}, nil
}

// GetOrder retrieves an order with its items
func (s *CheckoutService) GetOrder(ctx context.Context, orderID string) (*models.Order, []models.OrderItem, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.store.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}

// validateItems checks that every requested product exists and is active
func (s *CheckoutService) validateItems(ctx context.Context, items []OrderItemRequest) (map[int64]*models.Product, error) {
	productIDs := make([]int64, len(items))
	for i, item := range items {
		productIDs[i] = item.ProductID
	}

	products, err := s.store.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	productMap := make(map[int64]*models.Product)
	for i := range products {
		productMap[products[i].ID] = &products[i]
	}

	for _, item := range items {
		if _, ok := productMap[item.ProductID]; !ok {
			return nil, fmt.Errorf("product %d not found or inactive", item.ProductID)
		}
	}

	return productMap, nil
}

// calculateSubtotal sums item subtotals from catalog prices
func calculateSubtotal(items []OrderItemRequest, products map[int64]*models.Product) int64 {
	var total int64
	for _, item := range items {
		product := products[item.ProductID]
		total += product.Price * int64(item.Quantity)
	}
	return total
}

// validateClaimedTotal rejects a client-claimed total that disagrees with
// the server-computed one. Zero means the client made no claim; totals are
// always the catalog-derived amounts either way.
func validateClaimedTotal(claimed, subtotal, discount int64) error {
	total := subtotal - discount
	if claimed != 0 && claimed != total {
		return fmt.Errorf("%w: claimed=%d computed=%d", ErrTotalMismatch, claimed, total)
	}
	return nil
}

// applyCoupon computes the discount for a subtotal, validating expiry and
// minimum order amount.
func applyCoupon(coupon *models.Coupon, subtotal int64, now time.Time) (int64, error) {
	if coupon.ExpiresAt != nil && now.After(*coupon.ExpiresAt) {
		return 0, fmt.Errorf("coupon %s has expired", coupon.Code)
	}
	if subtotal < coupon.MinOrderAmount {
		return 0, fmt.Errorf("coupon %s requires a minimum order of %d", coupon.Code, coupon.MinOrderAmount)
	}

	discount := subtotal * int64(coupon.DiscountPercent) / 100
	if coupon.MaxDiscount > 0 && discount > coupon.MaxDiscount {
		discount = coupon.MaxDiscount
	}
	return discount, nil
}
