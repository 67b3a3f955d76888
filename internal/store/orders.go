package store

import (
	"context"
	"database/sql"
	"fmt"

	"naturalpuff/internal/models"
)

// CreateOrder creates a new order together with its item snapshots in one
// transaction.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (id, user_id, total_amount, discount_amount, coupon_code, status, shipping_details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	row := tx.QueryRowxContext(ctx, query,
		order.ID, order.UserID, order.TotalAmount, order.DiscountAmount,
		order.CouponCode, order.Status, order.ShippingDetails)
	if err := row.Scan(&order.CreatedAt, &order.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	for i := range items {
		items[i].OrderID = order.ID
		if err := tx.QueryRowxContext(ctx, itemQuery,
			items[i].OrderID, items[i].ProductID, items[i].ProductName,
			items[i].Quantity, items[i].UnitPrice).Scan(&items[i].ID); err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByRazorpayOrderID retrieves an order by the provider order id
// column, the lookup key used by the webhook receiver.
func (s *Store) GetOrderByRazorpayOrderID(ctx context.Context, rzpOrderID string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE razorpay_order_id = $1", rzpOrderID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order for razorpay order %s: %w", rzpOrderID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1", orderID)
	return items, err
}

// GetOrdersByUserID retrieves orders for a user
func (s *Store) GetOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return orders, err
}

// ListOrders retrieves recent orders, optionally filtered by status
func (s *Store) ListOrders(ctx context.Context, status string, limit int) ([]models.Order, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var orders []models.Order
	if status != "" {
		err := s.db.SelectContext(ctx, &orders,
			"SELECT * FROM orders WHERE status = $1 ORDER BY created_at DESC LIMIT $2", status, limit)
		return orders, err
	}
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders ORDER BY created_at DESC LIMIT $1", limit)
	return orders, err
}

// TransitionOrderStatus moves an order to a new status, but only if the
// transition does not lower the monotonic rank of the stored status. The
// UPDATE is conditional on the status read in the same statement, so two
// writers racing on one order cannot interleave: the loser gets
// ErrStaleTransition and must re-read.
func (s *Store) TransitionOrderStatus(ctx context.Context, orderID, newStatus string) error {
	if !models.ValidStatus(newStatus) {
		return &models.ErrInvalidTransition{From: "?", To: newStatus}
	}

	current, err := s.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}

	if current.Status == newStatus {
		return nil
	}

	if !models.CanTransition(current.Status, newStatus) {
		return &models.ErrInvalidTransition{From: current.Status, To: newStatus}
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		newStatus, orderID, current.Status)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("order %s (%s -> %s): %w", orderID, current.Status, newStatus, ErrStaleTransition)
	}
	return nil
}

// SetPaymentReference stores the provider-side payment handle for an order
func (s *Store) SetPaymentReference(ctx context.Context, orderID string, ref *models.PaymentReference) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET payment_ref = $1, updated_at = NOW() WHERE id = $2",
		ref, orderID)
	return err
}

// SetRazorpayOrderID records the provider order id used for webhook lookup
func (s *Store) SetRazorpayOrderID(ctx context.Context, orderID, rzpOrderID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET razorpay_order_id = $1, updated_at = NOW() WHERE id = $2",
		rzpOrderID, orderID)
	return err
}

// MarkPaymentAttemptTime stamps the moment a payment path was initiated
func (s *Store) MarkPaymentAttemptTime(ctx context.Context, orderID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET payment_attempt_time = NOW(), updated_at = NOW() WHERE id = $1",
		orderID)
	return err
}

// SetShipmentDetails persists Shiprocket identifiers returned on shipment
// creation.
func (s *Store) SetShipmentDetails(ctx context.Context, orderID, srOrderID, srShipmentID, courierName, trackingURL string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET shiprocket_order_id = $1,
		    shiprocket_shipment_id = $2,
		    courier_name = NULLIF($3, ''),
		    tracking_url = NULLIF($4, ''),
		    updated_at = NOW()
		WHERE id = $5`,
		srOrderID, srShipmentID, courierName, trackingURL, orderID)
	return err
}
