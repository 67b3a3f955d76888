package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"naturalpuff/internal/gateway"
	"naturalpuff/internal/models"
	"naturalpuff/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapEventStatus(t *testing.T) {
	cases := []struct {
		event   string
		status  string
		handled bool
	}{
		{"payment.authorized", models.OrderStatusVerificationPending, true},
		{"payment.captured", models.OrderStatusPaid, true},
		{"payment.failed", models.OrderStatusPaymentFailed, true},
		{"refund.created", models.OrderStatusRefunded, true},
		{"refund.processed", models.OrderStatusRefunded, true},
		{"order.paid", "", false},
		{"invoice.paid", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		status, handled := MapEventStatus(tc.event)
		assert.Equal(t, tc.handled, handled, "event %q", tc.event)
		assert.Equal(t, tc.status, status, "event %q", tc.event)
	}
}

func TestWebhookStatusesRespectOrdering(t *testing.T) {
	// Every status a webhook can produce must exist in the canonical set,
	// and an out-of-order authorized-after-captured delivery must be a
	// rejected downgrade, not a new state.
	for _, event := range []string{"payment.authorized", "payment.captured", "payment.failed", "refund.created"} {
		status, handled := MapEventStatus(event)
		assert.True(t, handled)
		assert.True(t, models.ValidStatus(status))
	}

	assert.False(t, models.CanTransition(models.OrderStatusPaid, models.OrderStatusVerificationPending))
}

type fakeWebhookStore struct {
	order         *models.Order
	processed     map[string]bool
	paymentRef    *models.PaymentReference
	transitionErr error
}

func (s *fakeWebhookStore) IsEventProcessed(_ context.Context, eventID string) (bool, error) {
	return s.processed[eventID], nil
}

func (s *fakeWebhookStore) MarkEventProcessed(_ context.Context, eventID, _ string) error {
	s.processed[eventID] = true
	return nil
}

func (s *fakeWebhookStore) GetOrderByRazorpayOrderID(_ context.Context, rzpOrderID string) (*models.Order, error) {
	if s.order != nil && s.order.RazorpayOrderID != nil && *s.order.RazorpayOrderID == rzpOrderID {
		return s.order, nil
	}
	return nil, fmt.Errorf("order: %w", store.ErrNotFound)
}

func (s *fakeWebhookStore) GetOrderByID(_ context.Context, id string) (*models.Order, error) {
	if s.order != nil && s.order.ID == id {
		return s.order, nil
	}
	return nil, fmt.Errorf("order: %w", store.ErrNotFound)
}

func (s *fakeWebhookStore) TransitionOrderStatus(_ context.Context, _, newStatus string) error {
	if s.transitionErr != nil {
		return s.transitionErr
	}
	if !models.CanTransition(s.order.Status, newStatus) {
		return &models.ErrInvalidTransition{From: s.order.Status, To: newStatus}
	}
	s.order.Status = newStatus
	return nil
}

func (s *fakeWebhookStore) SetPaymentReference(_ context.Context, _ string, ref *models.PaymentReference) error {
	s.paymentRef = ref
	return nil
}

type fakeDedupCache struct {
	seen map[string]bool
}

func (c *fakeDedupCache) IsEventSeen(_ context.Context, eventID string) (bool, error) {
	return c.seen[eventID], nil
}

func (c *fakeDedupCache) MarkEventSeen(_ context.Context, eventID string, _ time.Duration) (bool, error) {
	if c.seen[eventID] {
		return false, nil
	}
	c.seen[eventID] = true
	return true, nil
}

type fakeGateway struct {
	signatureValid bool
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string, _ map[string]interface{}) (*gateway.ProviderOrder, error) {
	return &gateway.ProviderOrder{ID: "order_fake", Amount: amount, Currency: currency, Receipt: receipt}, nil
}

func (g *fakeGateway) VerifySignature(_, _, _ string) bool { return g.signatureValid }

func (g *fakeGateway) VerifyWebhookSignature(_ []byte, _ string) bool { return g.signatureValid }

func (g *fakeGateway) QueryStatus(_ context.Context, _ string) (*gateway.StatusResult, error) {
	return &gateway.StatusResult{State: gateway.PaymentStatePending}, nil
}

type fakePublisher struct {
	captured, failed, refunded int
}

func (p *fakePublisher) PublishPaymentCaptured(_ context.Context, _ *models.PaymentCapturedEvent) error {
	p.captured++
	return nil
}

func (p *fakePublisher) PublishPaymentFailed(_ context.Context, _ *models.PaymentFailedEvent) error {
	p.failed++
	return nil
}

func (p *fakePublisher) PublishOrderRefunded(_ context.Context, _ *models.OrderRefundedEvent) error {
	p.refunded++
	return nil
}

func capturedWebhookBody() []byte {
	return []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_rzp1","method":"upi"}}}}`)
}

func TestWebhookRetryAfterFailureIsProcessed(t *testing.T) {
	rzpOrderID := "order_rzp1"
	order := &models.Order{
		ID:              "o1",
		Status:          models.OrderStatusPaymentInitiated,
		RazorpayOrderID: &rzpOrderID,
		TotalAmount:     49900,
	}
	st := &fakeWebhookStore{order: order, processed: map[string]bool{}}
	st.transitionErr = errors.New("connection refused")
	cache := &fakeDedupCache{seen: map[string]bool{}}
	pub := &fakePublisher{}
	ws := NewWebhookService(st, cache, &fakeGateway{signatureValid: true}, pub)

	// First delivery fails mid-processing. The dedup cache must not
	// remember it, or the provider's retry would be swallowed.
	err := ws.HandleWebhook(context.Background(), capturedWebhookBody(), "sig", "evt_1")
	require.Error(t, err)
	assert.False(t, cache.seen["evt_1"])
	assert.False(t, st.processed["evt_1"])
	assert.Equal(t, models.OrderStatusPaymentInitiated, order.Status)

	// The redelivery lands once the store recovers.
	st.transitionErr = nil
	require.NoError(t, ws.HandleWebhook(context.Background(), capturedWebhookBody(), "sig", "evt_1"))
	assert.Equal(t, models.OrderStatusPaid, order.Status)
	assert.Equal(t, 1, pub.captured)
	require.NotNil(t, st.paymentRef)
	assert.Equal(t, "pay_1", st.paymentRef.PaymentID)
	assert.True(t, cache.seen["evt_1"])
	assert.True(t, st.processed["evt_1"])
}

func TestWebhookDuplicateDeliveryNoOps(t *testing.T) {
	rzpOrderID := "order_rzp1"
	order := &models.Order{
		ID:              "o1",
		Status:          models.OrderStatusPaymentInitiated,
		RazorpayOrderID: &rzpOrderID,
		TotalAmount:     49900,
	}
	st := &fakeWebhookStore{order: order, processed: map[string]bool{}}
	cache := &fakeDedupCache{seen: map[string]bool{}}
	pub := &fakePublisher{}
	ws := NewWebhookService(st, cache, &fakeGateway{signatureValid: true}, pub)

	require.NoError(t, ws.HandleWebhook(context.Background(), capturedWebhookBody(), "sig", "evt_1"))
	require.NoError(t, ws.HandleWebhook(context.Background(), capturedWebhookBody(), "sig", "evt_1"))

	assert.Equal(t, models.OrderStatusPaid, order.Status)
	assert.Equal(t, 1, pub.captured, "redelivery publishes nothing")
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	st := &fakeWebhookStore{processed: map[string]bool{}}
	cache := &fakeDedupCache{seen: map[string]bool{}}
	ws := NewWebhookService(st, cache, &fakeGateway{signatureValid: false}, &fakePublisher{})

	err := ws.HandleWebhook(context.Background(), capturedWebhookBody(), "bad", "evt_1")
	assert.ErrorIs(t, err, ErrBadWebhookSignature)
	assert.False(t, cache.seen["evt_1"])
}
