package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"naturalpuff/internal/broker"
	"naturalpuff/internal/gateway"
	"naturalpuff/internal/models"
	"naturalpuff/internal/redisclient"
	"naturalpuff/internal/store"
	"naturalpuff/internal/upi"
	"naturalpuff/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reconciliation errors
var (
	ErrOrderUnresolvable = errors.New("could not resolve order for verification")
	ErrBadSignature      = errors.New("payment signature mismatch")
)

const (
	paymentStateCacheTTL = 15 * time.Second
	reconcileLockTTL     = 10 * time.Second

	// attemptExpiry is the horizon after which a still-pending attempt is
	// abandoned instead of re-queried upstream forever.
	attemptExpiry = 24 * time.Hour
)

// ReconcileService determines the true outcome of a payment when the
// client-side signal is missing or untrusted, and finalizes the order
// status exactly once through the monotonic transition path.
type ReconcileService struct {
	store          *store.Store
	redis          *redisclient.Client
	gateway        gateway.PaymentGateway
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewReconcileService creates a new reconcile service
func NewReconcileService(
	store *store.Store,
	redis *redisclient.Client,
	gw gateway.PaymentGateway,
	eventPublisher *broker.EventPublisher,
) *ReconcileService {
	return &ReconcileService{
		store:          store,
		redis:          redis,
		gateway:        gw,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// VerifyDirect checks a claimed checkout success. Pure function of its
// inputs: it recomputes the signature and returns the verdict without
// touching order state, so repeated calls always agree.
func (rs *ReconcileService) VerifyDirect(razorpayOrderID, paymentID, signature string) bool {
	ok := rs.gateway.VerifySignature(razorpayOrderID, paymentID, signature)
	if ok {
		util.SignatureVerificationsTotal.WithLabelValues("direct", "accepted").Inc()
	} else {
		util.SignatureVerificationsTotal.WithLabelValues("direct", "rejected").Inc()
	}
	return ok
}

// FinalizeVerified applies a verified checkout success to the order. The
// signature is re-verified server-side even when the caller claims to have
// checked it: redirect parameters are never trusted on their own.
func (rs *ReconcileService) FinalizeVerified(ctx context.Context, razorpayOrderID, paymentID, signature string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "ReconcileService.FinalizeVerified")
	defer span.End()

	if !rs.VerifyDirect(razorpayOrderID, paymentID, signature) {
		return nil, ErrBadSignature
	}

	order, err := rs.store.GetOrderByRazorpayOrderID(ctx, razorpayOrderID)
	if err != nil {
		return nil, err
	}

	if err := rs.applyPaid(ctx, order, paymentID, models.PaymentMethodRazorpay, "verify"); err != nil {
		return nil, err
	}

	return rs.store.GetOrderByID(ctx, order.ID)
}

// ResolveOrderID implements the fallback chain of the verification page:
// explicit order id first, then the attempt ledger by transaction
// reference (Redis hint, then Postgres), then the order id embedded in the
// reference itself.
func (rs *ReconcileService) ResolveOrderID(ctx context.Context, orderID, txnRef string) (string, error) {
	if orderID != "" {
		return orderID, nil
	}
	if txnRef == "" {
		return "", ErrOrderUnresolvable
	}

	if attempt, err := rs.redis.GetCachedAttempt(ctx, txnRef); err == nil && attempt != nil {
		return attempt.OrderID, nil
	}

	attempt, err := rs.store.GetPaymentAttemptByTxnRef(ctx, txnRef)
	if err == nil {
		return attempt.OrderID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	if embedded := upi.OrderIDFromTxnRef(txnRef); embedded != "" {
		return embedded, nil
	}

	return "", ErrOrderUnresolvable
}

// StatusResult is the reconciler's verdict for an order
type StatusResult struct {
	OrderID     string `json:"order_id"`
	OrderStatus string `json:"order_status"`
	Payment     string `json:"payment"` // paid | failed | pending | cancelled
	PaymentID   string `json:"payment_id,omitempty"`
}

// CheckStatus determines the payment outcome for an order by asking the
// provider directly. Already-paid orders short-circuit without a provider
// round trip. The section is serialized against the webhook receiver with
// a best-effort lock; the conditional transition remains the real guard.
func (rs *ReconcileService) CheckStatus(ctx context.Context, orderID string) (*StatusResult, error) {
	ctx, span := util.StartSpan(ctx, "ReconcileService.CheckStatus")
	defer span.End()

	order, err := rs.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// The short-circuit keys on statuses that imply money moved, not on
	// rank: cancelled outranks paid but a cancelled order may never have
	// been paid at all.
	if models.StatusImpliesPaid(order.Status) {
		result := &StatusResult{OrderID: order.ID, OrderStatus: order.Status, Payment: "paid"}
		if order.PaymentRef != nil {
			result.PaymentID = order.PaymentRef.PaymentID
		}
		return result, nil
	}

	if order.Status == models.OrderStatusCancelled {
		return &StatusResult{OrderID: order.ID, OrderStatus: order.Status, Payment: "cancelled"}, nil
	}

	if state, err := rs.redis.GetCachedPaymentState(ctx, order.ID); err == nil && state == "pending" {
		// Recent provider answer was pending; skip the round trip.
		return &StatusResult{OrderID: order.ID, OrderStatus: order.Status, Payment: "pending"}, nil
	}

	locked, err := rs.redis.AcquireLock(ctx, "reconcile:"+order.ID, reconcileLockTTL)
	if err != nil {
		rs.logger.Warn("Reconcile lock unavailable", zap.Error(err))
	}
	if locked {
		defer func() {
			if err := rs.redis.ReleaseLock(context.Background(), "reconcile:"+order.ID); err != nil {
				rs.logger.Warn("Failed to release reconcile lock", zap.Error(err))
			}
		}()
	}

	providerStatus, err := rs.gateway.QueryStatus(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("provider status query failed: %w", err)
	}

	switch providerStatus.State {
	case gateway.PaymentStatePaid:
		if err := rs.applyPaid(ctx, order, providerStatus.PaymentID, providerStatus.Method, "poll"); err != nil {
			return nil, err
		}
		return &StatusResult{
			OrderID:     order.ID,
			OrderStatus: models.OrderStatusPaid,
			Payment:     "paid",
			PaymentID:   providerStatus.PaymentID,
		}, nil

	case gateway.PaymentStateFailed:
		rs.applyFailed(ctx, order, providerStatus.Method)
		return &StatusResult{
			OrderID:     order.ID,
			OrderStatus: models.OrderStatusPaymentFailed,
			Payment:     "failed",
		}, nil

	default:
		if err := rs.redis.CachePaymentState(ctx, order.ID, "pending", paymentStateCacheTTL); err != nil {
			rs.logger.Warn("Failed to cache payment state", zap.Error(err))
		}
		// Record that a check is outstanding; superseded transitions are fine.
		if err := rs.store.TransitionOrderStatus(ctx, order.ID, models.OrderStatusVerificationPending); err != nil &&
			!errors.Is(err, store.ErrStaleTransition) {
			rs.logger.Warn("Failed to mark verification pending",
				zap.String("order_id", order.ID), zap.Error(err))
		}
		return &StatusResult{OrderID: order.ID, OrderStatus: order.Status, Payment: "pending"}, nil
	}
}

// SweepStaleAttempts reconciles initiated attempts that never came back,
// replacing the human-only backstop for orders stuck mid-payment.
func (rs *ReconcileService) SweepStaleAttempts(ctx context.Context, olderThanMinutes int) error {
	util.ReconcileSweepsTotal.Inc()

	attempts, err := rs.store.ListStaleAttempts(ctx, olderThanMinutes, 100)
	if err != nil {
		return fmt.Errorf("failed to list stale attempts: %w", err)
	}

	for _, attempt := range attempts {
		if attemptExpired(attempt.CreatedAt, time.Now()) {
			// Past the horizon the attempt is abandoned, so the sweep set
			// cannot grow without bound on payments that never settle.
			if err := rs.store.UpdateAttemptStatus(ctx, attempt.ID, models.AttemptStatusFailed); err != nil {
				rs.logger.Warn("Failed to expire attempt", zap.Error(err))
			}
			rs.logger.Info("Abandoned stale payment attempt",
				zap.String("order_id", attempt.OrderID),
				zap.String("txn_ref", attempt.TxnRef))
			continue
		}

		result, err := rs.CheckStatus(ctx, attempt.OrderID)
		if err != nil {
			rs.logger.Warn("Sweep reconcile failed",
				zap.String("order_id", attempt.OrderID),
				zap.String("txn_ref", attempt.TxnRef),
				zap.Error(err))
			continue
		}
		if result.Payment == "pending" || result.Payment == "cancelled" {
			continue
		}
		status := models.AttemptStatusFailed
		if result.Payment == "paid" {
			status = models.AttemptStatusSucceeded
		}
		if err := rs.store.UpdateAttemptStatus(ctx, attempt.ID, status); err != nil {
			rs.logger.Warn("Failed to update attempt status", zap.Error(err))
		}
	}

	if len(attempts) > 0 {
		rs.logger.Info("Stale attempt sweep completed", zap.Int("count", len(attempts)))
	}
	return nil
}

// attemptExpired reports whether an attempt is past the abandonment horizon
func attemptExpired(createdAt, now time.Time) bool {
	return now.Sub(createdAt) >= attemptExpiry
}

// applyPaid transitions an order to paid, records the payment reference and
// publishes the captured event. Stale transitions mean another writer won
// the race with the same answer, which is success, not failure.
func (rs *ReconcileService) applyPaid(ctx context.Context, order *models.Order, paymentID, method, source string) error {
	if err := rs.store.TransitionOrderStatus(ctx, order.ID, models.OrderStatusPaid); err != nil {
		if errors.Is(err, store.ErrStaleTransition) {
			util.StatusTransitionsTotal.WithLabelValues(models.OrderStatusPaid, "superseded").Inc()
			return nil
		}
		var invalid *models.ErrInvalidTransition
		if errors.As(err, &invalid) && models.StatusImpliesPaid(invalid.From) {
			return nil
		}
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	util.StatusTransitionsTotal.WithLabelValues(models.OrderStatusPaid, "applied").Inc()

	if paymentID != "" {
		if err := rs.store.SetPaymentReference(ctx, order.ID, models.DirectReference(paymentID)); err != nil {
			rs.logger.Error("Failed to set payment reference", zap.Error(err))
		}
	}

	if attempt, err := rs.store.GetLatestAttemptByOrderID(ctx, order.ID); err == nil {
		if err := rs.store.UpdateAttemptStatus(ctx, attempt.ID, models.AttemptStatusSucceeded); err != nil {
			rs.logger.Warn("Failed to update attempt status", zap.Error(err))
		}
	}

	if method == "" {
		method = models.PaymentMethodUPI
	}
	util.PaymentsCapturedTotal.WithLabelValues(method, source).Inc()

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
	if err := rs.eventPublisher.PublishPaymentCaptured(ctx, event); err != nil {
		rs.logger.Error("Failed to publish PaymentCaptured event", zap.Error(err))
	}

	rs.logger.Info("Payment reconciled as paid",
		zap.String("order_id", order.ID),
		zap.String("payment_id", paymentID),
		zap.String("source", source))
	return nil
}

// applyFailed records a terminal provider failure. A paid order is never
// downgraded; the transition guard rejects it and we keep the paid state.
func (rs *ReconcileService) applyFailed(ctx context.Context, order *models.Order, method string) {
	if err := rs.store.TransitionOrderStatus(ctx, order.ID, models.OrderStatusPaymentFailed); err != nil {
		rs.logger.Info("Failure transition not applied",
			zap.String("order_id", order.ID), zap.Error(err))
		return
	}
	util.StatusTransitionsTotal.WithLabelValues(models.OrderStatusPaymentFailed, "applied").Inc()

	if attempt, err := rs.store.GetLatestAttemptByOrderID(ctx, order.ID); err == nil {
		if err := rs.store.UpdateAttemptStatus(ctx, attempt.ID, models.AttemptStatusFailed); err != nil {
			rs.logger.Warn("Failed to update attempt status", zap.Error(err))
		}
	}

	if method == "" {
		method = models.PaymentMethodUPI
	}
	util.PaymentsFailedTotal.WithLabelValues(method).Inc()

	event := &models.PaymentFailedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentFailed,
			Timestamp: time.Now(),
		},
		OrderID: order.ID,
		Method:  method,
		Reason:  "provider_reported_failure",
	}
	if err := rs.eventPublisher.PublishPaymentFailed(ctx, event); err != nil {
		rs.logger.Error("Failed to publish PaymentFailed event", zap.Error(err))
	}
}
