// Package upi builds upi://pay deep links that hand the browser off to an
// installed payment app (PhonePe, GPay, Paytm, BHIM).
package upi

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Payee identifies the merchant VPA shown inside the payment app
type Payee struct {
	VPA  string
	Name string
}

// LinkParams are the inputs for one deep link
type LinkParams struct {
	Payee       Payee
	AmountPaise int64
	TxnRef      string
	Note        string
	CallbackURL string
}

// NewTxnRef generates the transaction reference for a payment attempt.
// Format: order_<orderID>_<unix seconds>. The reference doubles as the
// lookup key into the payment_attempts ledger.
func NewTxnRef(orderID string, now time.Time) string {
	return fmt.Sprintf("order_%s_%d", orderID, now.Unix())
}

// OrderIDFromTxnRef recovers the order id embedded in a transaction
// reference, or "" when the reference does not match the expected shape.
func OrderIDFromTxnRef(txnRef string) string {
	if !strings.HasPrefix(txnRef, "order_") {
		return ""
	}
	rest := strings.TrimPrefix(txnRef, "order_")
	idx := strings.LastIndex(rest, "_")
	if idx <= 0 {
		return ""
	}
	return rest[:idx]
}

// BuildLink constructs the upi://pay URI. Amount is rendered with exactly
// two decimals, currency is fixed to INR.
func BuildLink(p LinkParams) (string, error) {
	if p.Payee.VPA == "" {
		return "", fmt.Errorf("payee VPA is required")
	}
	if p.AmountPaise <= 0 {
		return "", fmt.Errorf("invalid amount: %d", p.AmountPaise)
	}
	if p.TxnRef == "" {
		return "", fmt.Errorf("transaction reference is required")
	}

	q := url.Values{}
	q.Set("pa", p.Payee.VPA)
	q.Set("pn", p.Payee.Name)
	q.Set("am", formatAmount(p.AmountPaise))
	q.Set("cu", "INR")
	if p.Note != "" {
		q.Set("tn", p.Note)
	}
	q.Set("tr", p.TxnRef)
	if p.CallbackURL != "" {
		q.Set("url", p.CallbackURL)
	}

	return "upi://pay?" + q.Encode(), nil
}

// formatAmount renders paise as rupees with two decimals: 49900 -> "499.00"
func formatAmount(paise int64) string {
	return fmt.Sprintf("%d.%02d", paise/100, paise%100)
}
