package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"naturalpuff/config"
	"naturalpuff/internal/api"
	"naturalpuff/internal/broker"
	"naturalpuff/internal/gateway"
	"naturalpuff/internal/redisclient"
	"naturalpuff/internal/service"
	"naturalpuff/internal/shiprocket"
	"naturalpuff/internal/store"
	"naturalpuff/internal/upi"
	"naturalpuff/internal/util"
	"naturalpuff/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting naturalpuff checkout service")

	tp, err := util.InitTracer("naturalpuff", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicPayments)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	rzpGateway := gateway.NewRazorpayGateway(
		cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.WebhookSecret)

	srClient := shiprocket.NewClient(
		cfg.Shiprocket.BaseURL, cfg.Shiprocket.Email, cfg.Shiprocket.Password)

	payee := upi.Payee{VPA: cfg.UPI.VPA, Name: cfg.UPI.PayeeName}

	checkoutService := service.NewCheckoutService(db, eventPublisher)
	paymentService := service.NewPaymentService(db, redisClient, rzpGateway, srClient,
		payee, cfg.Razorpay.KeyID, cfg.Server.AppBaseURL)
	reconcileService := service.NewReconcileService(db, redisClient, rzpGateway, eventPublisher)
	webhookService := service.NewWebhookService(db, redisClient, rzpGateway, eventPublisher)
	shippingService := service.NewShippingService(db, srClient, eventPublisher,
		cfg.Shiprocket.PickupLocation)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	shipmentConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicPayments, cfg.Kafka.ConsumerGroup)
	shipmentWorker := worker.NewShipmentWorker(shipmentConsumer, shippingService)
	go func() {
		if err := shipmentWorker.Start(workerCtx); err != nil {
			log.Printf("Shipment worker error: %v", err)
		}
	}()

	reconcileWorker := worker.NewReconcileWorker(reconcileService,
		time.Duration(cfg.Business.ReconcileIntervalSeconds)*time.Second,
		cfg.Business.StaleAttemptAfterMinutes)
	go func() {
		if err := reconcileWorker.Start(workerCtx); err != nil {
			log.Printf("Reconcile worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(checkoutService, paymentService, reconcileService,
		webhookService, shippingService, db, cfg.Auth.JWTSecret)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	shipmentWorker.Stop()

	log.Println("Server exited")
}
