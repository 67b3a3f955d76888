package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"naturalpuff/internal/gateway"
	"naturalpuff/internal/models"
	"naturalpuff/internal/store"
	"naturalpuff/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Webhook processing errors
var (
	ErrBadWebhookSignature = errors.New("webhook signature mismatch")
	ErrMalformedWebhook    = errors.New("malformed webhook payload")
)

// webhookStore is the slice of the store the webhook receiver needs
type webhookStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
	GetOrderByRazorpayOrderID(ctx context.Context, rzpOrderID string) (*models.Order, error)
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	TransitionOrderStatus(ctx context.Context, orderID, newStatus string) error
	SetPaymentReference(ctx context.Context, orderID string, ref *models.PaymentReference) error
}

// dedupCache is the fast-path duplicate check for webhook deliveries
type dedupCache interface {
	IsEventSeen(ctx context.Context, eventID string) (bool, error)
	MarkEventSeen(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
}

// paymentEventPublisher publishes payment outcome events
type paymentEventPublisher interface {
	PublishPaymentCaptured(ctx context.Context, event *models.PaymentCapturedEvent) error
	PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error
	PublishOrderRefunded(ctx context.Context, event *models.OrderRefundedEvent) error
}

// WebhookService processes Razorpay server-to-server callbacks. Every
// delivery is verified against the raw body, deduplicated by event id, and
// funneled through the same monotonic transition path as every other
// writer.
type WebhookService struct {
	store          webhookStore
	redis          dedupCache
	gateway        gateway.PaymentGateway
	eventPublisher paymentEventPublisher
	logger         *zap.Logger
}

// NewWebhookService creates a new webhook service
func NewWebhookService(
	store webhookStore,
	redis dedupCache,
	gw gateway.PaymentGateway,
	eventPublisher paymentEventPublisher,
) *WebhookService {
	return &WebhookService{
		store:          store,
		redis:          redis,
		gateway:        gw,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// webhookPayload mirrors the relevant slice of Razorpay's webhook body
type webhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string                 `json:"id"`
				OrderID string                 `json:"order_id"`
				Amount  int64                  `json:"amount"`
				Method  string                 `json:"method"`
				Notes   map[string]interface{} `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
		Refund struct {
			Entity struct {
				ID        string `json:"id"`
				PaymentID string `json:"payment_id"`
			} `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

// MapEventStatus maps a webhook event name to an order status. The second
// return is false for events we do not act on.
func MapEventStatus(event string) (string, bool) {
	switch {
	case event == "payment.authorized":
		return models.OrderStatusVerificationPending, true
	case event == "payment.captured":
		return models.OrderStatusPaid, true
	case event == "payment.failed":
		return models.OrderStatusPaymentFailed, true
	case strings.HasPrefix(event, "refund."):
		return models.OrderStatusRefunded, true
	default:
		return "", false
	}
}

// HandleWebhook verifies and applies one webhook delivery. body must be the
// raw request bytes. eventID comes from the X-Razorpay-Event-Id header and
// drives idempotency; redelivering the same event is a no-op.
func (ws *WebhookService) HandleWebhook(ctx context.Context, body []byte, signature, eventID string) error {
	ctx, span := util.StartSpan(ctx, "WebhookService.HandleWebhook")
	defer span.End()

	if !ws.gateway.VerifyWebhookSignature(body, signature) {
		util.SignatureVerificationsTotal.WithLabelValues("webhook", "rejected").Inc()
		return ErrBadWebhookSignature
	}
	util.SignatureVerificationsTotal.WithLabelValues("webhook", "accepted").Inc()

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}
	if payload.Event == "" {
		return fmt.Errorf("%w: missing event field", ErrMalformedWebhook)
	}

	newStatus, handled := MapEventStatus(payload.Event)
	if !handled {
		ws.logger.Info("Ignoring webhook event", zap.String("event", payload.Event))
		util.WebhookEventsTotal.WithLabelValues(payload.Event, "ignored").Inc()
		return nil
	}

	if eventID != "" {
		// Fast duplicate check in Redis, durable record in Postgres. Both
		// are read-only here: the event is recorded as seen only after it
		// was processed, so a delivery that fails below is retried by the
		// provider, not swallowed as a duplicate.
		if seen, err := ws.redis.IsEventSeen(ctx, eventID); err == nil && seen {
			util.WebhookEventsTotal.WithLabelValues(payload.Event, "duplicate").Inc()
			return nil
		}
		processed, err := ws.store.IsEventProcessed(ctx, eventID)
		if err != nil {
			return fmt.Errorf("failed to check event processed: %w", err)
		}
		if processed {
			util.WebhookEventsTotal.WithLabelValues(payload.Event, "duplicate").Inc()
			return nil
		}
	}

	order, err := ws.resolveOrder(ctx, &payload)
	if err != nil {
		util.WebhookEventsTotal.WithLabelValues(payload.Event, "order_not_found").Inc()
		return err
	}

	if err := ws.store.TransitionOrderStatus(ctx, order.ID, newStatus); err != nil {
		var invalid *models.ErrInvalidTransition
		if errors.Is(err, store.ErrStaleTransition) || errors.As(err, &invalid) {
			// A newer status already landed; the delivery is late, not wrong.
			ws.logger.Info("Webhook transition superseded",
				zap.String("order_id", order.ID),
				zap.String("event", payload.Event),
				zap.Error(err))
			util.StatusTransitionsTotal.WithLabelValues(newStatus, "superseded").Inc()
		} else {
			return fmt.Errorf("failed to transition order: %w", err)
		}
	} else {
		util.StatusTransitionsTotal.WithLabelValues(newStatus, "applied").Inc()
	}

	paymentID := payload.Payload.Payment.Entity.ID
	if newStatus == models.OrderStatusPaid && paymentID != "" {
		if err := ws.store.SetPaymentReference(ctx, order.ID, models.DirectReference(paymentID)); err != nil {
			ws.logger.Error("Failed to set payment reference", zap.Error(err))
		}
		util.PaymentsCapturedTotal.WithLabelValues(payload.Payload.Payment.Entity.Method, "webhook").Inc()
		ws.publishCaptured(ctx, order, paymentID, payload.Payload.Payment.Entity.Method)
	}

	if newStatus == models.OrderStatusPaymentFailed {
		util.PaymentsFailedTotal.WithLabelValues(payload.Payload.Payment.Entity.Method).Inc()
		ws.publishFailed(ctx, order, payload.Payload.Payment.Entity.Method, payload.Event)
	}

	if newStatus == models.OrderStatusRefunded {
		refundPaymentID := payload.Payload.Refund.Entity.PaymentID
		if refundPaymentID == "" {
			refundPaymentID = paymentID
		}
		ws.publishRefunded(ctx, order, refundPaymentID)
	}

	if eventID != "" {
		if err := ws.store.MarkEventProcessed(ctx, eventID, payload.Event); err != nil {
			ws.logger.Error("Failed to mark event processed", zap.Error(err))
		}
		if _, err := ws.redis.MarkEventSeen(ctx, eventID, 24*time.Hour); err != nil {
			ws.logger.Warn("Failed to record event in dedup cache", zap.Error(err))
		}
	}

	util.WebhookEventsTotal.WithLabelValues(payload.Event, "processed").Inc()
	ws.logger.Info("Webhook processed",
		zap.String("event", payload.Event),
		zap.String("order_id", order.ID),
		zap.String("new_status", newStatus))
	return nil
}

// resolveOrder finds our order from the webhook: by the provider order id
// column first, then by the order id we embed in payment notes.
func (ws *WebhookService) resolveOrder(ctx context.Context, payload *webhookPayload) (*models.Order, error) {
	if rzpOrderID := payload.Payload.Payment.Entity.OrderID; rzpOrderID != "" {
		order, err := ws.store.GetOrderByRazorpayOrderID(ctx, rzpOrderID)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	if notes := payload.Payload.Payment.Entity.Notes; notes != nil {
		if orderID, _ := notes["order_id"].(string); orderID != "" {
			return ws.store.GetOrderByID(ctx, orderID)
		}
	}

	return nil, fmt.Errorf("webhook carries no resolvable order: %w", store.ErrNotFound)
}

func (ws *WebhookService) publishCaptured(ctx context.Context, order *models.Order, paymentID, method string) {
	event := &models.PaymentCapturedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentCaptured,
			Timestamp: time.Now(),
		},
		OrderID:   order.ID,
		PaymentID: paymentID,
		Method:    method,
		Amount:    order.TotalAmount,
	}
	if err := ws.eventPublisher.PublishPaymentCaptured(ctx, event); err != nil {
		ws.logger.Error("Failed to publish PaymentCaptured event", zap.Error(err))
	}
}

func (ws *WebhookService) publishFailed(ctx context.Context, order *models.Order, method, reason string) {
	event := &models.PaymentFailedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentFailed,
			Timestamp: time.Now(),
		},
		OrderID: order.ID,
		Method:  method,
		Reason:  reason,
	}
	if err := ws.eventPublisher.PublishPaymentFailed(ctx, event); err != nil {
		ws.logger.Error("Failed to publish PaymentFailed event", zap.Error(err))
	}
}

func (ws *WebhookService) publishRefunded(ctx context.Context, order *models.Order, paymentID string) {
	event := &models.OrderRefundedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderRefunded,
			Timestamp: time.Now(),
		},
		OrderID:   order.ID,
		PaymentID: paymentID,
	}
	if err := ws.eventPublisher.PublishOrderRefunded(ctx, event); err != nil {
		ws.logger.Error("Failed to publish OrderRefunded event", zap.Error(err))
	}
}
