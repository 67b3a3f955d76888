package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"naturalpuff/internal/service"
	"naturalpuff/internal/store"

	"github.com/gin-gonic/gin"
)

// createRazorpayOrder creates a provider order for hosted checkout
func (h *Handler) createRazorpayOrder(c *gin.Context) {
	var req struct {
		OrderID string `json:"order_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	resp, err := h.payments.InitiateRazorpay(c.Request.Context(), req.OrderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to create payment order", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// verifyRazorpayPayment verifies a checkout signature. The endpoint is a
// pure verdict: it never mutates order state, callers follow up with the
// status endpoint or rely on the webhook.
func (h *Handler) verifyRazorpayPayment(c *gin.Context) {
	var req struct {
		RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
		RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
		RazorpaySignature string `json:"razorpay_signature" binding:"required"`
		Finalize          bool   `json:"finalize,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields", "details": err.Error()})
		return
	}

	if !req.Finalize {
		ok := h.reconciler.VerifyDirect(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"verified": false, "error": "Invalid signature"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"verified": true})
		return
	}

	order, err := h.reconciler.FinalizeVerified(c.Request.Context(),
		req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature)
	if err != nil {
		if errors.Is(err, service.ErrBadSignature) {
			c.JSON(http.StatusBadRequest, gin.H{"verified": false, "error": "Invalid signature"})
			return
		}
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to finalize payment", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"verified": true, "order": order})
}

// razorpayWebhook receives server-to-server payment callbacks. The raw
// body is read before any parsing because the signature covers the exact
// bytes on the wire.
func (h *Handler) razorpayWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	signature := c.GetHeader("X-Razorpay-Signature")
	eventID := c.GetHeader("X-Razorpay-Event-Id")

	err = h.webhooks.HandleWebhook(c.Request.Context(), body, signature, eventID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBadWebhookSignature):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook signature"})
		case errors.Is(err, service.ErrMalformedWebhook):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed webhook payload"})
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook processing failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// initiateUPI starts a direct UPI deep-link payment
func (h *Handler) initiateUPI(c *gin.Context) {
	var req service.UPIInitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	resp, err := h.payments.InitiateUPI(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to initiate payment", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// upiQR renders the deep link for a recorded attempt as a PNG QR code
func (h *Handler) upiQR(c *gin.Context) {
	txnRef := c.Query("txn_ref")
	if txnRef == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "txn_ref is required"})
		return
	}

	size := 256
	if s := c.Query("size"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil && parsed > 0 && parsed <= 1024 {
			size = parsed
		}
	}

	png, err := h.payments.BuildQR(c.Request.Context(), txnRef, size)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment attempt not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render QR"})
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// generatePaymentLink creates a hosted payment link for an order
func (h *Handler) generatePaymentLink(c *gin.Context) {
	var req service.LinkInitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	resp, err := h.payments.InitiateLink(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to generate payment link", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// checkPaymentStatus resolves an order (by id or transaction reference)
// and reconciles its payment outcome against the provider.
func (h *Handler) checkPaymentStatus(c *gin.Context) {
	var req struct {
		OrderID string `json:"order_id,omitempty"`
		TxnRef  string `json:"txn_ref,omitempty"`
	}
	// The verification page may also arrive via the UPI callback URL, in
	// which case identifiers are query parameters, not a JSON body.
	_ = c.ShouldBindJSON(&req)
	if req.OrderID == "" {
		req.OrderID = c.Query("order_id")
	}
	if req.TxnRef == "" {
		req.TxnRef = c.Query("txn_ref")
	}

	orderID, err := h.reconciler.ResolveOrderID(c.Request.Context(), req.OrderID, req.TxnRef)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Could not find order information",
		})
		return
	}

	result, err := h.reconciler.CheckStatus(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Status check failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
