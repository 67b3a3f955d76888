package upi

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTxnRef(t *testing.T) {
	now := time.Unix(1700000000, 0)
	ref := NewTxnRef("abc123", now)
	assert.Equal(t, "order_abc123_1700000000", ref)
}

func TestOrderIDFromTxnRef(t *testing.T) {
	assert.Equal(t, "abc123", OrderIDFromTxnRef("order_abc123_1700000000"))

	// UUID order ids contain underscores-free hyphens but the timestamp is
	// always the final segment.
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000",
		OrderIDFromTxnRef("order_550e8400-e29b-41d4-a716-446655440000_1700000000"))

	assert.Empty(t, OrderIDFromTxnRef("nonsense"))
	assert.Empty(t, OrderIDFromTxnRef("order_"))
	assert.Empty(t, OrderIDFromTxnRef(""))
}

func TestBuildLink(t *testing.T) {
	link, err := BuildLink(LinkParams{
		Payee:       Payee{VPA: "naturalpuff@upi", Name: "Natural Puff"},
		AmountPaise: 49900,
		TxnRef:      "order_abc123_1700000000",
		Note:        "Natural Puff order",
		CallbackURL: "https://shop.example.com/api/v1/payments/status?txn_ref=order_abc123_1700000000",
	})
	require.NoError(t, err)

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "upi", parsed.Scheme)

	q := parsed.Query()
	assert.Equal(t, "naturalpuff@upi", q.Get("pa"))
	assert.Equal(t, "Natural Puff", q.Get("pn"))
	assert.Equal(t, "499.00", q.Get("am"))
	assert.Equal(t, "INR", q.Get("cu"))
	assert.Equal(t, "order_abc123_1700000000", q.Get("tr"))
	assert.Equal(t, "Natural Puff order", q.Get("tn"))
	assert.Contains(t, q.Get("url"), "txn_ref=order_abc123")
}

func TestBuildLinkOmitsEmptyOptionalParams(t *testing.T) {
	link, err := BuildLink(LinkParams{
		Payee:       Payee{VPA: "naturalpuff@upi", Name: "Natural Puff"},
		AmountPaise: 100,
		TxnRef:      "order_x_1",
	})
	require.NoError(t, err)

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	q := parsed.Query()
	assert.False(t, q.Has("tn"))
	assert.False(t, q.Has("url"))
	assert.Equal(t, "1.00", q.Get("am"))
}

func TestBuildLinkValidation(t *testing.T) {
	_, err := BuildLink(LinkParams{AmountPaise: 100, TxnRef: "order_x_1"})
	assert.Error(t, err, "missing VPA")

	_, err = BuildLink(LinkParams{Payee: Payee{VPA: "a@b"}, TxnRef: "order_x_1"})
	assert.Error(t, err, "zero amount")

	_, err = BuildLink(LinkParams{Payee: Payee{VPA: "a@b"}, AmountPaise: 100})
	assert.Error(t, err, "missing txn ref")
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "499.00", formatAmount(49900))
	assert.Equal(t, "0.01", formatAmount(1))
	assert.Equal(t, "1.05", formatAmount(105))
	assert.Equal(t, "12345.67", formatAmount(1234567))
}
