package worker

import (
	"context"
	"time"

	"naturalpuff/internal/broker"
	"naturalpuff/internal/models"
	"naturalpuff/internal/service"
	"naturalpuff/internal/util"

	"go.uber.org/zap"
)

// ShipmentWorker books shipments for captured payments. It consumes
// PaymentCaptured events so shipment creation survives API process
// restarts: an unacked event is redelivered and CreateShipment is
// idempotent on the shipment id.
type ShipmentWorker struct {
	consumer        *broker.Consumer
	eventHandler    *broker.EventHandler
	shippingService *service.ShippingService
	logger          *zap.Logger
}

// NewShipmentWorker creates a new shipment worker
func NewShipmentWorker(
	consumer *broker.Consumer,
	shippingService *service.ShippingService,
) *ShipmentWorker {
	eventHandler := broker.NewEventHandler()
	w := &ShipmentWorker{
		consumer:        consumer,
		eventHandler:    eventHandler,
		shippingService: shippingService,
		logger:          util.GetLogger(),
	}

	eventHandler.OnPaymentCaptured(func(ctx context.Context, event *models.PaymentCapturedEvent) error {
		return shippingService.CreateShipment(ctx, event.OrderID)
	})

	return w
}

// Start starts the worker
func (w *ShipmentWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting shipment worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ShipmentWorker) Stop() error {
	w.logger.Info("Stopping shipment worker")
	return w.consumer.Close()
}

// ReconcileWorker periodically sweeps payment attempts that were initiated
// but never verified, asking the provider for their true outcome. This is
// the server-side backstop for deep-link payments whose browser never came
// back.
type ReconcileWorker struct {
	reconciler        *service.ReconcileService
	interval          time.Duration
	staleAfterMinutes int
	logger            *zap.Logger
}

// NewReconcileWorker creates a new reconcile worker
func NewReconcileWorker(reconciler *service.ReconcileService, interval time.Duration, staleAfterMinutes int) *ReconcileWorker {
	return &ReconcileWorker{
		reconciler:        reconciler,
		interval:          interval,
		staleAfterMinutes: staleAfterMinutes,
		logger:            util.GetLogger(),
	}
}

// Start runs the sweep loop until the context is cancelled
func (w *ReconcileWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting reconcile worker",
		zap.Duration("interval", w.interval),
		zap.Int("stale_after_minutes", w.staleAfterMinutes))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Reconcile worker stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := w.reconciler.SweepStaleAttempts(ctx, w.staleAfterMinutes); err != nil {
				w.logger.Error("Stale attempt sweep failed", zap.Error(err))
			}
		}
	}
}
