package api

import (
	"net/http"
	"strconv"
	"time"

	"naturalpuff/internal/service"
	"naturalpuff/internal/store"
	"naturalpuff/internal/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	checkout   *service.CheckoutService
	payments   *service.PaymentService
	reconciler *service.ReconcileService
	webhooks   *service.WebhookService
	shipping   *service.ShippingService
	store      *store.Store
	jwtSecret  string
}

// NewHandler creates a new HTTP handler
func NewHandler(
	checkout *service.CheckoutService,
	payments *service.PaymentService,
	reconciler *service.ReconcileService,
	webhooks *service.WebhookService,
	shipping *service.ShippingService,
	store *store.Store,
	jwtSecret string,
) *Handler {
	return &Handler{
		checkout:   checkout,
		payments:   payments,
		reconciler: reconciler,
		webhooks:   webhooks,
		shipping:   shipping,
		store:      store,
		jwtSecret:  jwtSecret,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	// Checkout callers are browser clients on the storefront origin.
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", "X-Razorpay-Signature", "X-Razorpay-Event-Id")
	router.Use(cors.New(corsConfig))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/orders", h.createOrder)
		v1.GET("/orders/:id", h.getOrder)

		v1.POST("/payments/razorpay/order", h.createRazorpayOrder)
		v1.POST("/payments/razorpay/verify", h.verifyRazorpayPayment)
		v1.POST("/payments/razorpay/webhook", h.razorpayWebhook)

		v1.POST("/payments/upi/initiate", h.initiateUPI)
		v1.GET("/payments/upi/qr", h.upiQR)

		v1.POST("/payments/link", h.generatePaymentLink)
		v1.POST("/payments/status", h.checkPaymentStatus)

		v1.POST("/shipping/serviceability", h.checkServiceability)
		v1.GET("/shipping/track/:shipmentID", h.trackShipment)

		admin := v1.Group("/admin")
		admin.Use(jwtAuthMiddleware(h.jwtSecret))
		{
			admin.GET("/orders", h.listOrders)
			admin.PUT("/orders/:id/status", h.updateOrderStatus)
			admin.POST("/shipping/orders", h.createShipment)
			admin.POST("/shipping/label", h.generateLabel)
			admin.POST("/shipping/invoice", h.generateInvoice)
		}
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
