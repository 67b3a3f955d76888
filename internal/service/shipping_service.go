package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"naturalpuff/internal/broker"
	"naturalpuff/internal/models"
	"naturalpuff/internal/shiprocket"
	"naturalpuff/internal/store"
	"naturalpuff/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ShippingAddress is the parsed form of an order's shipping_details JSON
type ShippingAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	Country string `json:"country"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

// ShippingService creates and tracks shipments for paid orders
type ShippingService struct {
	store          *store.Store
	client         *shiprocket.Client
	eventPublisher *broker.EventPublisher
	pickupLocation string
	logger         *zap.Logger
}

// NewShippingService creates a new shipping service
func NewShippingService(
	store *store.Store,
	client *shiprocket.Client,
	eventPublisher *broker.EventPublisher,
	pickupLocation string,
) *ShippingService {
	return &ShippingService{
		store:          store,
		client:         client,
		eventPublisher: eventPublisher,
		pickupLocation: pickupLocation,
		logger:         util.GetLogger(),
	}
}

// CreateShipment books a Shiprocket shipment for a paid order and persists
// the returned identifiers. Idempotent: an order that already has a
// shipment id is left alone.
func (ss *ShippingService) CreateShipment(ctx context.Context, orderID string) error {
	ctx, span := util.StartSpan(ctx, "ShippingService.CreateShipment")
	defer span.End()

	order, err := ss.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}

	if order.ShiprocketShipmentID != nil && *order.ShiprocketShipmentID != "" {
		ss.logger.Info("Shipment already exists",
			zap.String("order_id", order.ID),
			zap.String("shipment_id", *order.ShiprocketShipmentID))
		return nil
	}

	if !models.StatusImpliesPaid(order.Status) {
		return fmt.Errorf("order %s is not paid (status=%s)", order.ID, order.Status)
	}

	var addr ShippingAddress
	if err := json.Unmarshal(order.ShippingDetails, &addr); err != nil {
		return fmt.Errorf("shipping details malformed for order %s: %w", order.ID, err)
	}
	if addr.Country == "" {
		addr.Country = "India"
	}

	items, err := ss.store.GetOrderItemsByOrderID(ctx, order.ID)
	if err != nil {
		return err
	}

	srItems := make([]shiprocket.OrderItem, 0, len(items))
	for _, item := range items {
		srItems = append(srItems, shiprocket.OrderItem{
			Name:    item.ProductName,
			SKU:     fmt.Sprintf("NP-%d", item.ProductID),
			Units:   item.Quantity,
			Selling: item.UnitPrice / 100, // provider expects rupees
		})
	}

	resp, err := ss.client.CreateOrder(ctx, &shiprocket.CreateOrderRequest{
		OrderID:           order.ID,
		OrderDate:         order.CreatedAt.Format("2006-01-02 15:04"),
		PickupLocation:    ss.pickupLocation,
		BillingName:       addr.Name,
		BillingAddress:    addr.Address,
		BillingCity:       addr.City,
		BillingPincode:    addr.Pincode,
		BillingState:      addr.State,
		BillingCountry:    addr.Country,
		BillingEmail:      addr.Email,
		BillingPhone:      addr.Phone,
		ShippingIsBilling: true,
		OrderItems:        srItems,
		PaymentMethod:     "Prepaid",
		SubTotal:          order.TotalAmount / 100,
		Length:            15,
		Breadth:           10,
		Height:            10,
		Weight:            0.5,
	})
	if err != nil {
		return fmt.Errorf("shiprocket order creation failed: %w", err)
	}

	trackingURL := ""
	if resp.ShipmentID.String() != "" {
		trackingURL = "https://shiprocket.co/tracking/" + resp.ShipmentID.String()
	}

	if err := ss.store.SetShipmentDetails(ctx, order.ID,
		resp.OrderID.String(), resp.ShipmentID.String(), resp.CourierName, trackingURL); err != nil {
		return fmt.Errorf("failed to persist shipment details: %w", err)
	}

	if err := ss.store.TransitionOrderStatus(ctx, order.ID, models.OrderStatusProcessing); err != nil &&
		!errors.Is(err, store.ErrStaleTransition) {
		ss.logger.Warn("Failed to mark order processing",
			zap.String("order_id", order.ID), zap.Error(err))
	}

	util.ShipmentsCreatedTotal.Inc()
	ss.logger.Info("Shipment created",
		zap.String("order_id", order.ID),
		zap.String("shiprocket_order_id", resp.OrderID.String()),
		zap.String("shipment_id", resp.ShipmentID.String()))

	event := &models.ShipmentCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeShipmentCreated,
			Timestamp: time.Now(),
		},
		OrderID:           order.ID,
		ShiprocketOrderID: resp.OrderID.String(),
		ShipmentID:        resp.ShipmentID.String(),
		CourierName:       resp.CourierName,
		TrackingURL:       trackingURL,
	}
	if err := ss.eventPublisher.PublishShipmentCreated(ctx, event); err != nil {
		ss.logger.Error("Failed to publish ShipmentCreated event", zap.Error(err))
	}

	return nil
}

// CheckServiceability proxies a courier serviceability query
func (ss *ShippingService) CheckServiceability(ctx context.Context, req shiprocket.ServiceabilityRequest) (json.RawMessage, error) {
	return ss.client.CheckServiceability(ctx, req)
}

// TrackShipment proxies shipment tracking
func (ss *ShippingService) TrackShipment(ctx context.Context, shipmentID string) (json.RawMessage, error) {
	return ss.client.TrackShipment(ctx, shipmentID)
}

// GenerateLabel proxies label generation for a shipment
func (ss *ShippingService) GenerateLabel(ctx context.Context, shipmentIDs []string) (json.RawMessage, error) {
	return ss.client.GenerateLabel(ctx, shipmentIDs)
}

// GenerateInvoice proxies invoice generation for shiprocket order ids
func (ss *ShippingService) GenerateInvoice(ctx context.Context, orderIDs []string) (json.RawMessage, error) {
	return ss.client.GenerateInvoice(ctx, orderIDs)
}
