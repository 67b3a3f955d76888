package models

import "time"

// Event types
const (
	EventTypeOrderCreated    = "ORDER_CREATED"
	EventTypePaymentCaptured = "PAYMENT_CAPTURED"
	EventTypePaymentFailed   = "PAYMENT_FAILED"
	EventTypeOrderRefunded   = "ORDER_REFUNDED"
	EventTypeShipmentCreated = "SHIPMENT_CREATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published when an order row is created
type OrderCreatedEvent struct {
	BaseEvent
	OrderID     string          `json:"order_id"`
	UserID      *string         `json:"user_id,omitempty"`
	TotalAmount int64           `json:"total_amount"`
	Items       []OrderItemData `json:"items"`
}

// PaymentCapturedEvent published once a payment is confirmed, whether the
// confirmation came from the webhook, the reconciler or direct verification.
type PaymentCapturedEvent struct {
	BaseEvent
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Method    string `json:"method"`
	Amount    int64  `json:"amount"`
}

// PaymentFailedEvent published when a payment attempt terminally fails
type PaymentFailedEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
	Method  string `json:"method"`
	Reason  string `json:"reason"`
}

// OrderRefundedEvent published when the provider reports a refund
type OrderRefundedEvent struct {
	BaseEvent
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
}

// ShipmentCreatedEvent published after a Shiprocket shipment is created
type ShipmentCreatedEvent struct {
	BaseEvent
	OrderID           string `json:"order_id"`
	ShiprocketOrderID string `json:"shiprocket_order_id"`
	ShipmentID        string `json:"shipment_id"`
	CourierName       string `json:"courier_name,omitempty"`
	TrackingURL       string `json:"tracking_url,omitempty"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
}
