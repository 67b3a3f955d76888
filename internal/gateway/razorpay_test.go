package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(secret, message string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(message))
	return hex.EncodeToString(h.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	g := NewRazorpayGateway("rzp_test_key", "test_secret", "webhook_secret")

	orderID := "order_MNqR7ZkXYZ"
	paymentID := "pay_MNqS8abcDEF"
	good := sign("test_secret", orderID+"|"+paymentID)

	assert.True(t, g.VerifySignature(orderID, paymentID, good))

	// Same inputs, same verdict.
	assert.True(t, g.VerifySignature(orderID, paymentID, good))
}

func TestVerifySignatureRejectsTampering(t *testing.T) {
	g := NewRazorpayGateway("rzp_test_key", "test_secret", "webhook_secret")

	orderID := "order_MNqR7ZkXYZ"
	paymentID := "pay_MNqS8abcDEF"
	good := sign("test_secret", orderID+"|"+paymentID)

	// Flip one hex character.
	tampered := []byte(good)
	if tampered[0] == 'a' {
		tampered[0] = 'b'
	} else {
		tampered[0] = 'a'
	}
	assert.False(t, g.VerifySignature(orderID, paymentID, string(tampered)))

	// Signature computed for a different payment.
	other := sign("test_secret", orderID+"|pay_other")
	assert.False(t, g.VerifySignature(orderID, paymentID, other))

	// Signature computed with the wrong secret.
	wrongKey := sign("other_secret", orderID+"|"+paymentID)
	assert.False(t, g.VerifySignature(orderID, paymentID, wrongKey))
}

func TestVerifySignatureRejectsEmptyInputs(t *testing.T) {
	g := NewRazorpayGateway("rzp_test_key", "test_secret", "webhook_secret")

	assert.False(t, g.VerifySignature("", "pay_x", "sig"))
	assert.False(t, g.VerifySignature("order_x", "", "sig"))
	assert.False(t, g.VerifySignature("order_x", "pay_x", ""))
}

func TestVerifyWebhookSignature(t *testing.T) {
	g := NewRazorpayGateway("rzp_test_key", "test_secret", "webhook_secret")

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_x"}}}}`)
	good := sign("webhook_secret", string(body))

	assert.True(t, g.VerifyWebhookSignature(body, good))

	// The webhook secret, not the key secret, signs the body.
	keySigned := sign("test_secret", string(body))
	assert.False(t, g.VerifyWebhookSignature(body, keySigned))

	// Re-serialized JSON with different whitespace must not verify.
	reserialized := []byte(`{"event": "payment.captured", "payload": {"payment": {"entity": {"id": "pay_x"}}}}`)
	assert.False(t, g.VerifyWebhookSignature(reserialized, good))

	assert.False(t, g.VerifyWebhookSignature(nil, good))
	assert.False(t, g.VerifyWebhookSignature(body, ""))
}
