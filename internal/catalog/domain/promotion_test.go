package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func activePromo(t DiscountType, value int64) *Promotion {
	return &Promotion{
		DiscountType:  t,
		DiscountValue: decimal.NewFromInt(value),
		StartAt:       time.Now().Add(-time.Hour),
		EndAt:         time.Now().Add(time.Hour),
	}
}

func TestQuotePricePercent(t *testing.T) {
	quote := QuotePrice(decimal.NewFromInt(100000), activePromo(DiscountTypePercent, 50), time.Now())

	assert.True(t, quote.FinalPrice.Equal(decimal.NewFromInt(50000)), "final price = %s", quote.FinalPrice)
	assert.Equal(t, 50, quote.DiscountPercent)
}

func TestQuotePriceFixed(t *testing.T) {
	quote := QuotePrice(decimal.NewFromInt(100000), activePromo(DiscountTypeFixed, 30000), time.Now())

	assert.True(t, quote.FinalPrice.Equal(decimal.NewFromInt(70000)), "final price = %s", quote.FinalPrice)
	assert.Equal(t, 30, quote.DiscountPercent)
}

func TestQuotePriceFixedClampsAtZero(t *testing.T) {
	quote := QuotePrice(decimal.NewFromInt(20000), activePromo(DiscountTypeFixed, 30000), time.Now())

	assert.True(t, quote.FinalPrice.IsZero(), "final price = %s", quote.FinalPrice)
}

func TestQuotePriceNonPositiveBase(t *testing.T) {
	for _, base := range []int64{0, -1000} {
		quote := QuotePrice(decimal.NewFromInt(base), activePromo(DiscountTypePercent, 50), time.Now())

		assert.True(t, quote.FinalPrice.Equal(decimal.NewFromInt(base)))
		assert.Equal(t, 0, quote.DiscountPercent)
	}
}

func TestQuotePriceNoPromotion(t *testing.T) {
	quote := QuotePrice(decimal.NewFromInt(100000), nil, time.Now())

	assert.True(t, quote.FinalPrice.Equal(decimal.NewFromInt(100000)))
	assert.Equal(t, 0, quote.DiscountPercent)
}

func TestQuotePriceExpiredPromotion(t *testing.T) {
	promo := activePromo(DiscountTypePercent, 50)
	promo.EndAt = time.Now().Add(-time.Minute)

	quote := QuotePrice(decimal.NewFromInt(100000), promo, time.Now())

	assert.True(t, quote.FinalPrice.Equal(decimal.NewFromInt(100000)))
	assert.Equal(t, 0, quote.DiscountPercent)
}

func TestPromotionRemaining(t *testing.T) {
	now := time.Now()
	promo := &Promotion{StartAt: now.Add(-time.Hour), EndAt: now.Add(30 * time.Minute)}

	assert.InDelta(t, (30 * time.Minute).Seconds(), promo.Remaining(now).Seconds(), 1)
	assert.Equal(t, time.Duration(0), promo.Remaining(now.Add(time.Hour)))
}
