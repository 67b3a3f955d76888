package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentReferenceRoundTrip(t *testing.T) {
	ref := LinkReference("link_123", "https://sr.to/abc", "created")

	val, err := ref.Value()
	require.NoError(t, err)

	var scanned PaymentReference
	require.NoError(t, scanned.Scan(val))

	assert.Equal(t, PaymentRefKindLink, scanned.Kind)
	assert.Equal(t, "link_123", scanned.LinkID)
	assert.Equal(t, "https://sr.to/abc", scanned.LinkURL)
	assert.Empty(t, scanned.PaymentID)
}

func TestPaymentReferenceKinds(t *testing.T) {
	direct := DirectReference("pay_ABC")
	assert.Equal(t, PaymentRefKindDirect, direct.Kind)
	assert.Equal(t, "pay_ABC", direct.PaymentID)
	assert.Empty(t, direct.LinkURL)
}

func TestPaymentReferenceScanNil(t *testing.T) {
	var ref PaymentReference
	assert.NoError(t, ref.Scan(nil))
	assert.Empty(t, ref.Kind)
}
