package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"naturalpuff/internal/gateway"
	"naturalpuff/internal/models"
	"naturalpuff/internal/redisclient"
	"naturalpuff/internal/shiprocket"
	"naturalpuff/internal/store"
	"naturalpuff/internal/upi"
	"naturalpuff/internal/util"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"
)

const attemptCacheTTL = 30 * time.Minute

// PaymentService initiates the three payment paths: Razorpay hosted
// checkout, direct UPI deep-link, and a Shiprocket hosted payment link.
type PaymentService struct {
	store      *store.Store
	redis      *redisclient.Client
	gateway    gateway.PaymentGateway
	shiprocket *shiprocket.Client
	payee      upi.Payee
	keyID      string // Razorpay public key id, returned to checkout clients
	appBaseURL string
	logger     *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	store *store.Store,
	redis *redisclient.Client,
	gw gateway.PaymentGateway,
	sr *shiprocket.Client,
	payee upi.Payee,
	keyID string,
	appBaseURL string,
) *PaymentService {
	return &PaymentService{
		store:      store,
		redis:      redis,
		gateway:    gw,
		shiprocket: sr,
		payee:      payee,
		keyID:      keyID,
		appBaseURL: appBaseURL,
		logger:     util.GetLogger(),
	}
}

// RazorpayOrderResponse is returned to the client to open hosted checkout
type RazorpayOrderResponse struct {
	RazorpayOrderID string `json:"razorpay_order_id"`
	Amount          int64  `json:"amount"` // paise
	Currency        string `json:"currency"`
	KeyID           string `json:"key_id"`
}

// InitiateRazorpay creates a provider order for hosted checkout. The
// provider order id is persisted for webhook lookup and our order id rides
// along in notes so the reconciler can match payments later.
func (ps *PaymentService) InitiateRazorpay(ctx context.Context, orderID string) (*RazorpayOrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.InitiateRazorpay")
	defer span.End()

	order, err := ps.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	providerOrder, err := ps.gateway.CreateOrder(ctx, order.TotalAmount, "INR", order.ID,
		map[string]interface{}{"order_id": order.ID})
	if err != nil {
		return nil, fmt.Errorf("provider order creation failed: %w", err)
	}

	if err := ps.store.SetRazorpayOrderID(ctx, order.ID, providerOrder.ID); err != nil {
		return nil, fmt.Errorf("failed to persist provider order id: %w", err)
	}

	attempt := &models.PaymentAttempt{
		ID:      uuid.New().String(),
		OrderID: order.ID,
		TxnRef:  providerOrder.ID,
		Method:  models.PaymentMethodRazorpay,
		Amount:  order.TotalAmount,
		Status:  models.AttemptStatusInitiated,
	}
	if err := ps.store.CreatePaymentAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to record payment attempt: %w", err)
	}

	ps.markInitiated(ctx, order.ID)
	util.PaymentInitiationsTotal.WithLabelValues(models.PaymentMethodRazorpay).Inc()

	return &RazorpayOrderResponse{
		RazorpayOrderID: providerOrder.ID,
		Amount:          providerOrder.Amount,
		Currency:        providerOrder.Currency,
		KeyID:           ps.keyID,
	}, nil
}

// UPIInitiateRequest carries the deep-link inputs
type UPIInitiateRequest struct {
	OrderID      string         `json:"order_id" binding:"required"`
	PaymentApp   string         `json:"payment_app,omitempty"` // PhonePe, GPay, Paytm, ...
	CustomerInfo types.JSONText `json:"customer_info,omitempty"`
}

// UPIInitiateResponse is returned to the client for the app hand-off
type UPIInitiateResponse struct {
	DeepLink string `json:"deep_link"`
	TxnRef   string `json:"txn_ref"`
	QRPath   string `json:"qr_path"`
}

// InitiateUPI records a payment attempt in the server-owned ledger and
// builds the upi://pay deep link. The ledger row, not browser storage, is
// what reconciliation reads back after the app switch.
func (ps *PaymentService) InitiateUPI(ctx context.Context, req *UPIInitiateRequest) (*UPIInitiateResponse, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.InitiateUPI")
	defer span.End()

	order, err := ps.store.GetOrderByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	txnRef := upi.NewTxnRef(order.ID, time.Now())
	callback := fmt.Sprintf("%s/api/v1/payments/status?txn_ref=%s",
		ps.appBaseURL, url.QueryEscape(txnRef))

	link, err := upi.BuildLink(upi.LinkParams{
		Payee:       ps.payee,
		AmountPaise: order.TotalAmount,
		TxnRef:      txnRef,
		Note:        order.ID,
		CallbackURL: callback,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build deep link: %w", err)
	}

	attempt := &models.PaymentAttempt{
		ID:           uuid.New().String(),
		OrderID:      order.ID,
		TxnRef:       txnRef,
		Method:       models.PaymentMethodUPI,
		PaymentApp:   req.PaymentApp,
		Amount:       order.TotalAmount,
		Status:       models.AttemptStatusInitiated,
		CustomerInfo: req.CustomerInfo,
	}
	if err := ps.store.CreatePaymentAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to record payment attempt: %w", err)
	}

	if err := ps.redis.CacheAttempt(ctx, attempt, attemptCacheTTL); err != nil {
		ps.logger.Warn("Failed to cache payment attempt", zap.Error(err))
	}

	ps.markInitiated(ctx, order.ID)
	util.PaymentInitiationsTotal.WithLabelValues(models.PaymentMethodUPI).Inc()

	ps.logger.Info("UPI payment initiated",
		zap.String("order_id", order.ID),
		zap.String("txn_ref", txnRef),
		zap.String("payment_app", req.PaymentApp))

	return &UPIInitiateResponse{
		DeepLink: link,
		TxnRef:   txnRef,
		QRPath:   fmt.Sprintf("/api/v1/payments/upi/qr?txn_ref=%s", url.QueryEscape(txnRef)),
	}, nil
}

// BuildQR re-derives the deep link for a recorded attempt and renders it as
// a PNG QR code.
func (ps *PaymentService) BuildQR(ctx context.Context, txnRef string, size int) ([]byte, error) {
	attempt, err := ps.redis.GetCachedAttempt(ctx, txnRef)
	if err != nil || attempt == nil {
		attempt, err = ps.store.GetPaymentAttemptByTxnRef(ctx, txnRef)
		if err != nil {
			return nil, err
		}
	}

	link, err := upi.BuildLink(upi.LinkParams{
		Payee:       ps.payee,
		AmountPaise: attempt.Amount,
		TxnRef:      attempt.TxnRef,
		Note:        attempt.OrderID,
	})
	if err != nil {
		return nil, err
	}

	return upi.RenderQR(link, size)
}

// LinkInitiateRequest carries contact details for the hosted payment link
type LinkInitiateRequest struct {
	OrderID string `json:"order_id" binding:"required"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// LinkInitiateResponse points the browser at the hosted payment page
type LinkInitiateResponse struct {
	LinkID     string `json:"link_id"`
	PaymentURL string `json:"payment_url"`
	TxnRef     string `json:"txn_ref"`
}

// InitiateLink generates a Shiprocket-hosted payment link and stores it on
// the order as a link-kind payment reference.
func (ps *PaymentService) InitiateLink(ctx context.Context, req *LinkInitiateRequest) (*LinkInitiateResponse, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.InitiateLink")
	defer span.End()

	order, err := ps.store.GetOrderByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	link, err := ps.shiprocket.GeneratePaymentLink(ctx, &shiprocket.PaymentLinkRequest{
		OrderID: order.ID,
		Amount:  order.TotalAmount / 100, // provider expects rupees
		Purpose: "Natural Puff order " + order.ID,
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
	})
	if err != nil {
		return nil, fmt.Errorf("payment link generation failed: %w", err)
	}

	if err := ps.store.SetPaymentReference(ctx, order.ID,
		models.LinkReference(link.ID, link.URL, link.Status)); err != nil {
		return nil, fmt.Errorf("failed to persist payment reference: %w", err)
	}

	txnRef := upi.NewTxnRef(order.ID, time.Now())
	attempt := &models.PaymentAttempt{
		ID:      uuid.New().String(),
		OrderID: order.ID,
		TxnRef:  txnRef,
		Method:  models.PaymentMethodLink,
		Amount:  order.TotalAmount,
		Status:  models.AttemptStatusInitiated,
	}
	if err := ps.store.CreatePaymentAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to record payment attempt: %w", err)
	}

	ps.markInitiated(ctx, order.ID)
	util.PaymentInitiationsTotal.WithLabelValues(models.PaymentMethodLink).Inc()

	return &LinkInitiateResponse{
		LinkID:     link.ID,
		PaymentURL: link.URL,
		TxnRef:     txnRef,
	}, nil
}

// markInitiated moves the order to payment_initiated and stamps the attempt
// time. Best effort: a failure here must never block the hand-off to the
// payment app, it only costs us a less precise status.
func (ps *PaymentService) markInitiated(ctx context.Context, orderID string) {
	if err := ps.store.TransitionOrderStatus(ctx, orderID, models.OrderStatusPaymentInitiated); err != nil {
		ps.logger.Warn("Failed to mark order payment_initiated",
			zap.String("order_id", orderID),
			zap.Error(err))
		return
	}
	if err := ps.store.MarkPaymentAttemptTime(ctx, orderID); err != nil {
		ps.logger.Warn("Failed to stamp payment attempt time",
			zap.String("order_id", orderID),
			zap.Error(err))
	}
}
