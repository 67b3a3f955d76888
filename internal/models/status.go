package models

import "fmt"

// Order statuses. The set is closed: every writer (checkout, webhook,
// reconciler, shipment worker, admin) goes through TransitionOrderStatus,
// which rejects anything not listed here.
const (
	OrderStatusCreated             = "created"
	OrderStatusPaymentInitiated    = "payment_initiated"
	OrderStatusVerificationPending = "verification_pending"
	OrderStatusPaymentFailed       = "payment_failed"
	OrderStatusPaid                = "paid"
	OrderStatusProcessing          = "processing"
	OrderStatusShipped             = "shipped"
	OrderStatusDelivered           = "delivered"
	OrderStatusCancelled           = "cancelled"
	OrderStatusRefunded            = "refunded"
)

// statusRank orders statuses monotonically. A transition is accepted only
// when the new rank is not lower than the stored one, so a late webhook
// carrying "paid" can never be clobbered by a stale "verification_pending"
// write, and vice versa a stale failure never downgrades a paid order.
var statusRank = map[string]int{
	OrderStatusCreated:             10,
	OrderStatusPaymentInitiated:    20,
	OrderStatusVerificationPending: 30,
	OrderStatusPaymentFailed:       35,
	OrderStatusPaid:                40,
	OrderStatusProcessing:          50,
	OrderStatusShipped:             60,
	OrderStatusDelivered:           70,
	OrderStatusCancelled:           80,
	OrderStatusRefunded:            90,
}

// StatusRank returns the monotonic rank for a status, or -1 if unknown.
func StatusRank(status string) int {
	rank, ok := statusRank[status]
	if !ok {
		return -1
	}
	return rank
}

// ValidStatus reports whether status belongs to the canonical set.
func ValidStatus(status string) bool {
	_, ok := statusRank[status]
	return ok
}

// StatusImpliesPaid reports whether a status can only be reached after a
// successful payment. cancelled is deliberately excluded: an order can be
// cancelled before any money moved, so rank alone cannot stand in for
// "has been paid".
func StatusImpliesPaid(status string) bool {
	switch status {
	case OrderStatusPaid, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusRefunded:
		return true
	}
	return false
}

// CanTransition reports whether an order may move from one status to
// another. Rules:
//   - ranks never decrease, except payment_failed -> payment_initiated,
//     which re-arms checkout after a user-initiated retry
//   - delivered, cancelled and refunded are terminal (paid and later
//     fulfillment states may still move to refunded)
//   - equal status is allowed so redelivered webhooks are a no-op write
func CanTransition(from, to string) bool {
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}

	if from == to {
		return true
	}

	switch from {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return false
	}

	// Retry path: a failed payment re-enters checkout from scratch.
	if from == OrderStatusPaymentFailed && to == OrderStatusPaymentInitiated {
		return true
	}

	return toRank >= fromRank
}

// ErrInvalidTransition is returned when a requested transition violates
// the monotonic status ordering.
type ErrInvalidTransition struct {
	From string
	To   string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid order status transition: %s -> %s", e.From, e.To)
}
