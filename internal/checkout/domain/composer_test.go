package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func draftItem(productID uint, qty int, price int64) DraftItem {
	return DraftItem{
		CartItemID: productID,
		ProductID:  productID,
		Quantity:   qty,
		UnitPrice:  decimal.NewFromInt(price),
	}
}

func readyComposer(t *testing.T) *Composer {
	t.Helper()
	c := NewComposer("u1")
	require.NoError(t, c.SetItems([]DraftItem{draftItem(1, 2, 50000)}))
	require.NoError(t, c.SelectAddress(7))
	require.NoError(t, c.SelectShipping(ShippingMethod{Code: "GHN", Fee: decimal.NewFromInt(20000)}))
	require.NoError(t, c.SelectPayment(PaymentMethodVNPay))
	return c
}

func TestComposerLinearProgression(t *testing.T) {
	c := NewComposer("u1")
	assert.Equal(t, StateSelectingAddress, c.State())

	require.NoError(t, c.SelectAddress(7))
	assert.Equal(t, StateSelectingShipping, c.State())

	require.NoError(t, c.SelectShipping(ShippingMethod{Code: "GHN", Fee: decimal.NewFromInt(20000)}))
	assert.Equal(t, StateSelectingPayment, c.State())

	require.NoError(t, c.SelectPayment(PaymentMethodCOD))
	assert.Equal(t, StateReadyToSubmit, c.State())
}

func TestComposerGuardsAreDistinct(t *testing.T) {
	anonymous := NewComposer("")
	assert.ErrorIs(t, anonymous.BeginSubmit(), ErrNotAuthenticated)

	c := NewComposer("u1")
	assert.ErrorIs(t, c.BeginSubmit(), ErrNoItems)

	require.NoError(t, c.SetItems([]DraftItem{draftItem(1, 1, 10000)}))
	assert.ErrorIs(t, c.BeginSubmit(), ErrNoAddress)

	require.NoError(t, c.SelectAddress(7))
	assert.ErrorIs(t, c.BeginSubmit(), ErrNoShipping)

	require.NoError(t, c.SelectShipping(ShippingMethod{Code: "GHN"}))
	assert.ErrorIs(t, c.BeginSubmit(), ErrNoPayment)

	require.NoError(t, c.SelectPayment(PaymentMethodCOD))
	assert.NoError(t, c.BeginSubmit())
}

func TestComposerRejectsInvalidDraftItems(t *testing.T) {
	c := NewComposer("u1")

	assert.ErrorIs(t, c.SetItems([]DraftItem{draftItem(0, 1, 10000)}), ErrInvalidDraft, "missing product id")
	assert.ErrorIs(t, c.SetItems([]DraftItem{draftItem(1, 1, 0)}), ErrInvalidDraft, "non-positive price")
	assert.ErrorIs(t, c.SetItems([]DraftItem{draftItem(1, 1, -500)}), ErrInvalidDraft, "negative price")
	assert.ErrorIs(t, c.SetItems([]DraftItem{draftItem(1, 0, 10000)}), ErrInvalidDraft, "zero quantity")

	// 整批拒绝：一行非法则全部不接受
	err := c.SetItems([]DraftItem{draftItem(1, 1, 10000), draftItem(2, 1, 0)})
	assert.ErrorIs(t, err, ErrInvalidDraft)
	items, _, _, _ := c.Draft()
	assert.Empty(t, items)
}

func TestComposerDoubleSubmitRejected(t *testing.T) {
	c := readyComposer(t)
	require.NoError(t, c.BeginSubmit())
	assert.ErrorIs(t, c.BeginSubmit(), ErrAlreadySubmitting)
}

func TestComposerNoBackwardTransitions(t *testing.T) {
	c := readyComposer(t)
	require.NoError(t, c.BeginSubmit())

	assert.ErrorIs(t, c.SelectAddress(9), ErrInvalidTransition)
	assert.ErrorIs(t, c.SelectShipping(ShippingMethod{Code: "GHTK"}), ErrInvalidTransition)
	assert.ErrorIs(t, c.SelectPayment(PaymentMethodCOD), ErrInvalidTransition)
	assert.ErrorIs(t, c.SetItems([]DraftItem{draftItem(2, 1, 10000)}), ErrInvalidTransition)
}

func TestComposerTerminalStates(t *testing.T) {
	c := readyComposer(t)
	require.NoError(t, c.BeginSubmit())
	require.NoError(t, c.Complete("123", "https://pay.example.com/x"))
	assert.Equal(t, StateCompleted, c.State())

	orderNo, paymentURL, failure := c.Result()
	assert.Equal(t, "123", orderNo)
	assert.Equal(t, "https://pay.example.com/x", paymentURL)
	assert.NoError(t, failure)

	assert.ErrorIs(t, c.BeginSubmit(), ErrInvalidTransition, "completed flow cannot be resubmitted")

	f := readyComposer(t)
	require.NoError(t, f.BeginSubmit())
	cause := errors.New("insufficient stock")
	require.NoError(t, f.Fail(cause))
	assert.Equal(t, StateFailed, f.State())
	_, _, failure = f.Result()
	assert.Equal(t, cause, failure, "server error kept verbatim")
}

func TestComposerResetReturnsToStart(t *testing.T) {
	c := readyComposer(t)
	require.NoError(t, c.BeginSubmit())
	require.NoError(t, c.Fail(errors.New("boom")))

	c.Reset()
	assert.Equal(t, StateSelectingAddress, c.State())
	items, addressID, _, payment := c.Draft()
	assert.Empty(t, items)
	assert.Zero(t, addressID)
	assert.Empty(t, payment)
}

func TestComposerTotals(t *testing.T) {
	c := NewComposer("u1")
	require.NoError(t, c.SetItems([]DraftItem{
		draftItem(1, 2, 50000),
		draftItem(2, 1, 30000),
	}))
	assert.True(t, decimal.NewFromInt(130000).Equal(c.ItemsAmount()))

	require.NoError(t, c.SelectAddress(7))
	require.NoError(t, c.SelectShipping(ShippingMethod{Code: "GHN", Fee: decimal.NewFromInt(20000)}))
	assert.True(t, decimal.NewFromInt(150000).Equal(c.Total()))
}
