package api

import (
	"errors"
	"net/http"
	"strconv"

	"naturalpuff/internal/models"
	"naturalpuff/internal/shiprocket"
	"naturalpuff/internal/store"

	"github.com/gin-gonic/gin"
)

// checkServiceability proxies a courier serviceability query
func (h *Handler) checkServiceability(c *gin.Context) {
	var req struct {
		PickupPostcode   string  `json:"pickup_postcode" binding:"required"`
		DeliveryPostcode string  `json:"delivery_postcode" binding:"required"`
		WeightKg         float64 `json:"weight_kg"`
		COD              bool    `json:"cod"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.WeightKg <= 0 {
		req.WeightKg = 0.5
	}

	result, err := h.shipping.CheckServiceability(c.Request.Context(), shiprocket.ServiceabilityRequest{
		PickupPostcode:   req.PickupPostcode,
		DeliveryPostcode: req.DeliveryPostcode,
		WeightKg:         req.WeightKg,
		COD:              req.COD,
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Serviceability check failed", "details": err.Error()})
		return
	}

	c.Data(http.StatusOK, "application/json", result)
}

// trackShipment proxies shipment tracking
func (h *Handler) trackShipment(c *gin.Context) {
	shipmentID := c.Param("shipmentID")

	result, err := h.shipping.TrackShipment(c.Request.Context(), shipmentID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Tracking failed", "details": err.Error()})
		return
	}

	c.Data(http.StatusOK, "application/json", result)
}

// listOrders lists recent orders for the admin dashboard
func (h *Handler) listOrders(c *gin.Context) {
	status := c.Query("status")
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}

	orders, err := h.store.ListOrders(c.Request.Context(), status, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// updateOrderStatus applies a manual status override. Admin writes go
// through the same transition rules as every other writer: no dropdown
// can un-pay an order.
func (h *Handler) updateOrderStatus(c *gin.Context) {
	orderID := c.Param("id")

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if !models.ValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status", "status": req.Status})
		return
	}

	err := h.store.TransitionOrderStatus(c.Request.Context(), orderID, req.Status)
	if err != nil {
		var invalid *models.ErrInvalidTransition
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		case errors.As(err, &invalid):
			c.JSON(http.StatusConflict, gin.H{"error": "Transition not allowed", "details": err.Error()})
		case errors.Is(err, store.ErrStaleTransition):
			c.JSON(http.StatusConflict, gin.H{"error": "Order changed concurrently, retry", "details": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"order_id": orderID, "status": req.Status})
}

// createShipment books a shipment for a paid order
func (h *Handler) createShipment(c *gin.Context) {
	var req struct {
		OrderID string `json:"order_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.shipping.CreateShipment(c.Request.Context(), req.OrderID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Shipment creation failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order_id": req.OrderID, "status": "shipment_created"})
}

// generateLabel generates shipping labels
func (h *Handler) generateLabel(c *gin.Context) {
	var req struct {
		ShipmentIDs []string `json:"shipment_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	result, err := h.shipping.GenerateLabel(c.Request.Context(), req.ShipmentIDs)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Label generation failed", "details": err.Error()})
		return
	}

	c.Data(http.StatusOK, "application/json", result)
}

// generateInvoice generates invoices
func (h *Handler) generateInvoice(c *gin.Context) {
	var req struct {
		OrderIDs []string `json:"order_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	result, err := h.shipping.GenerateInvoice(c.Request.Context(), req.OrderIDs)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Invoice generation failed", "details": err.Error()})
		return
	}

	c.Data(http.StatusOK, "application/json", result)
}
