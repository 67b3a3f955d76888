package service

import (
	"testing"
	"time"

	"naturalpuff/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateSubtotal(t *testing.T) {
	items := []OrderItemRequest{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 1},
	}

	products := map[int64]*models.Product{
		1: {ID: 1, Price: 49900},
		2: {ID: 2, Price: 19900},
	}

	total := calculateSubtotal(items, products)

	expected := int64(2*49900 + 1*19900)
	assert.Equal(t, expected, total)
}

func TestApplyCouponPercent(t *testing.T) {
	coupon := &models.Coupon{Code: "PUFF10", DiscountPercent: 10}

	discount, err := applyCoupon(coupon, 49900, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(4990), discount)
}

func TestApplyCouponCap(t *testing.T) {
	coupon := &models.Coupon{Code: "PUFF50", DiscountPercent: 50, MaxDiscount: 10000}

	discount, err := applyCoupon(coupon, 100000, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(10000), discount, "discount capped at max_discount")
}

func TestApplyCouponExpired(t *testing.T) {
	expired := time.Now().Add(-time.Hour)
	coupon := &models.Coupon{Code: "OLD", DiscountPercent: 10, ExpiresAt: &expired}

	_, err := applyCoupon(coupon, 49900, time.Now())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestApplyCouponMinOrder(t *testing.T) {
	coupon := &models.Coupon{Code: "BIG", DiscountPercent: 10, MinOrderAmount: 100000}

	_, err := applyCoupon(coupon, 49900, time.Now())
	assert.Error(t, err)

	discount, err := applyCoupon(coupon, 100000, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(10000), discount)
}

func TestValidateClaimedTotal(t *testing.T) {
	// No claim: the server-computed total stands.
	assert.NoError(t, validateClaimedTotal(0, 49900, 0))

	// Exact agreement, with and without a discount.
	assert.NoError(t, validateClaimedTotal(49900, 49900, 0))
	assert.NoError(t, validateClaimedTotal(44910, 49900, 4990))

	// Any disagreement is rejected outright.
	err := validateClaimedTotal(100, 49900, 0)
	assert.ErrorIs(t, err, ErrTotalMismatch)
	assert.Contains(t, err.Error(), "claimed=100")
	assert.Contains(t, err.Error(), "computed=49900")

	// A claim that ignores the discount is still a mismatch.
	assert.ErrorIs(t, validateClaimedTotal(49900, 49900, 4990), ErrTotalMismatch)
}
