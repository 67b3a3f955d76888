package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Product represents a product in the catalog
type Product struct {
	ID        int64     `db:"id" json:"id"`
	SKU       string    `db:"sku" json:"sku"`
	Name      string    `db:"name" json:"name"`
	Price     int64     `db:"price" json:"price"` // paise
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Coupon represents a discount coupon applied at checkout
type Coupon struct {
	ID              int64      `db:"id" json:"id"`
	Code            string     `db:"code" json:"code"`
	DiscountPercent int        `db:"discount_percent" json:"discount_percent"`
	MaxDiscount     int64      `db:"max_discount" json:"max_discount"` // paise, 0 = uncapped
	MinOrderAmount  int64      `db:"min_order_amount" json:"min_order_amount"`
	Active          bool       `db:"active" json:"active"`
	ExpiresAt       *time.Time `db:"expires_at" json:"expires_at,omitempty"`
}

// Order represents a customer order. UserID is nullable because guest
// checkout is supported.
type Order struct {
	ID                   string            `db:"id" json:"id"`
	UserID               *string           `db:"user_id" json:"user_id,omitempty"`
	TotalAmount          int64             `db:"total_amount" json:"total_amount"` // paise
	DiscountAmount       int64             `db:"discount_amount" json:"discount_amount"`
	CouponCode           *string           `db:"coupon_code" json:"coupon_code,omitempty"`
	Status               string            `db:"status" json:"status"`
	PaymentRef           *PaymentReference `db:"payment_ref" json:"payment_ref,omitempty"`
	RazorpayOrderID      *string           `db:"razorpay_order_id" json:"razorpay_order_id,omitempty"`
	ShippingDetails      types.JSONText    `db:"shipping_details" json:"shipping_details,omitempty"`
	ShiprocketOrderID    *string           `db:"shiprocket_order_id" json:"shiprocket_order_id,omitempty"`
	ShiprocketShipmentID *string           `db:"shiprocket_shipment_id" json:"shiprocket_shipment_id,omitempty"`
	TrackingURL          *string           `db:"tracking_url" json:"tracking_url,omitempty"`
	CourierName          *string           `db:"courier_name" json:"courier_name,omitempty"`
	PaymentAttemptTime   *time.Time        `db:"payment_attempt_time" json:"payment_attempt_time,omitempty"`
	CreatedAt            time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time         `db:"updated_at" json:"updated_at"`
}

// OrderItem snapshots the product at purchase time so later catalog edits
// do not change historical orders.
type OrderItem struct {
	ID          int64  `db:"id" json:"id"`
	OrderID     string `db:"order_id" json:"order_id"`
	ProductID   int64  `db:"product_id" json:"product_id"`
	ProductName string `db:"product_name" json:"product_name"`
	Quantity    int    `db:"quantity" json:"quantity"`
	UnitPrice   int64  `db:"unit_price" json:"unit_price"` // paise
}

// Payment methods
const (
	PaymentMethodRazorpay = "razorpay"
	PaymentMethodUPI      = "upi"
	PaymentMethodLink     = "payment_link"
)

// PaymentAttempt is the server-owned ledger of in-flight payments. One row
// per initiation, keyed by transaction reference, so reconciliation works
// even if the customer's browser storage is gone.
type PaymentAttempt struct {
	ID           string         `db:"id" json:"id"`
	OrderID      string         `db:"order_id" json:"order_id"`
	TxnRef       string         `db:"txn_ref" json:"txn_ref"`
	Method       string         `db:"method" json:"method"`
	PaymentApp   string         `db:"payment_app" json:"payment_app,omitempty"`
	Amount       int64          `db:"amount" json:"amount"` // paise
	Status       string         `db:"status" json:"status"`
	CustomerInfo types.JSONText `db:"customer_info" json:"customer_info,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// Payment attempt statuses
const (
	AttemptStatusInitiated = "INITIATED"
	AttemptStatusSucceeded = "SUCCEEDED"
	AttemptStatusFailed    = "FAILED"
)

// ProcessedEvent for webhook/event idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
