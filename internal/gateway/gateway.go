package gateway

import "context"

// PaymentState classifies a provider-side payment outcome
type PaymentState string

const (
	PaymentStatePaid    PaymentState = "paid"
	PaymentStateFailed  PaymentState = "failed"
	PaymentStatePending PaymentState = "pending"
)

// ProviderOrder is a payment order created on the provider side
type ProviderOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"` // minor units
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// StatusResult is the outcome of a direct provider status query
type StatusResult struct {
	State     PaymentState `json:"state"`
	PaymentID string       `json:"payment_id,omitempty"`
	Method    string       `json:"method,omitempty"`
}

// PaymentGateway is the single interface every payment concern goes
// through: provider order creation, signature checks for both the direct
// and webhook request shapes, and direct status queries for flows (UPI
// app-switch) that return without trustworthy parameters.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]interface{}) (*ProviderOrder, error)
	VerifySignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
	QueryStatus(ctx context.Context, orderID string) (*StatusResult, error)
}
