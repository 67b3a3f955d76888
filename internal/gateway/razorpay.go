package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"naturalpuff/internal/util"

	razorpay "github.com/razorpay/razorpay-go"
	"go.uber.org/zap"
)

// RazorpayGateway implements PaymentGateway against the Razorpay API
type RazorpayGateway struct {
	client        *razorpay.Client
	keySecret     string
	webhookSecret string
	logger        *zap.Logger
}

// NewRazorpayGateway creates a gateway from API credentials. keySecret
// signs checkout payloads, webhookSecret signs server-to-server callbacks;
// they are distinct secrets in the Razorpay dashboard.
func NewRazorpayGateway(keyID, keySecret, webhookSecret string) *RazorpayGateway {
	return &RazorpayGateway{
		client:        razorpay.NewClient(keyID, keySecret),
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		logger:        util.GetLogger(),
	}
}

// CreateOrder creates a provider order. Amount is in minor units (paise).
// Notes carry our order id so QueryStatus can match payments back later.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]interface{}) (*ProviderOrder, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("invalid amount: %d", amount)
	}
	if currency == "" {
		currency = "INR"
	}

	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	order, err := g.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay order create failed: %w", err)
	}

	id, _ := order["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("razorpay order create returned no id")
	}

	return &ProviderOrder{
		ID:       id,
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
	}, nil
}

// VerifySignature checks the checkout signature: HMAC-SHA256 over
// "order_id|payment_id" keyed by the API secret, hex encoded. Pure function
// of its inputs, no side effects, so repeated calls give the same verdict.
func (g *RazorpayGateway) VerifySignature(orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	expected := hmacHex([]byte(g.keySecret), []byte(orderID+"|"+paymentID))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks the webhook signature: HMAC-SHA256 over the
// raw request body keyed by the webhook secret. The body must be the exact
// bytes received; re-serialized JSON will not match.
func (g *RazorpayGateway) VerifyWebhookSignature(body []byte, signature string) bool {
	if len(body) == 0 || signature == "" {
		return false
	}
	expected := hmacHex([]byte(g.webhookSecret), body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// QueryStatus asks Razorpay directly for the state of a payment belonging
// to one of our orders. UPI app-switch returns carry no usable parameters,
// so the match key is the order id we embed in payment notes.
func (g *RazorpayGateway) QueryStatus(ctx context.Context, orderID string) (*StatusResult, error) {
	resp, err := g.client.Payment.All(map[string]interface{}{"count": 100}, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay payment list failed: %w", err)
	}

	items, _ := resp["items"].([]interface{})
	for _, raw := range items {
		payment, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		notes, _ := payment["notes"].(map[string]interface{})
		if notes == nil {
			continue
		}
		if noteOrderID, _ := notes["order_id"].(string); noteOrderID != orderID {
			continue
		}

		paymentID, _ := payment["id"].(string)
		method, _ := payment["method"].(string)
		status, _ := payment["status"].(string)

		result := &StatusResult{PaymentID: paymentID, Method: method}
		switch status {
		case "captured":
			result.State = PaymentStatePaid
		case "failed":
			result.State = PaymentStateFailed
		default:
			result.State = PaymentStatePending
		}

		g.logger.Info("Provider status query matched payment",
			zap.String("order_id", orderID),
			zap.String("payment_id", paymentID),
			zap.String("provider_status", status))
		return result, nil
	}

	return &StatusResult{State: PaymentStatePending}, nil
}

func hmacHex(key, message []byte) string {
	h := hmac.New(sha256.New, key)
	h.Write(message)
	return hex.EncodeToString(h.Sum(nil))
}
