package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewOrderStartsPending(t *testing.T) {
	o := NewOrder(Sell, dec("100"), dec("1.5"))

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, Pending, o.Status)
	assert.True(t, o.AmountOut.IsZero())
	assert.True(t, o.AmountFilled.IsZero())
	assert.True(t, o.CanonicalPrice().IsZero())
}

func TestIsAcceptablePrice(t *testing.T) {
	sell := NewOrder(Sell, dec("100"), dec("1.0"))
	buy := NewOrder(Buy, dec("100"), dec("1.0"))

	assert.True(t, sell.IsAcceptablePrice(dec("1.0")))
	assert.True(t, sell.IsAcceptablePrice(dec("1.2")))
	assert.False(t, sell.IsAcceptablePrice(dec("0.8")))

	assert.True(t, buy.IsAcceptablePrice(dec("1.0")))
	assert.True(t, buy.IsAcceptablePrice(dec("0.8")))
	assert.False(t, buy.IsAcceptablePrice(dec("1.2")))
}

func TestToken1AtPrice(t *testing.T) {
	sell := NewOrder(Sell, dec("100"), dec("1.0"))
	buy := NewOrder(Buy, dec("100"), dec("1.0"))

	assert.True(t, sell.Token1AtPrice(dec("1.5")).Equal(dec("150")))
	assert.True(t, buy.Token1AtPrice(dec("1.5")).Equal(dec("100")))
}

func TestFillZeroVolumeIsNoop(t *testing.T) {
	o := NewOrder(Sell, dec("100"), dec("1.0"))

	require.NoError(t, o.Fill(decimal.Zero, dec("1.0")))
	assert.Equal(t, Pending, o.Status)
	assert.True(t, o.AmountFilled.IsZero())
}

func TestFillRejectsBadVolume(t *testing.T) {
	o := NewOrder(Sell, dec("100"), dec("1.0"))

	var verr *ValidationError
	err := o.Fill(dec("-1"), dec("1.0"))
	require.ErrorAs(t, err, &verr)

	err = o.Fill(dec("100.01"), dec("1.0"))
	require.ErrorAs(t, err, &verr)

	assert.Equal(t, Pending, o.Status)
}

func TestFillSellOrder(t *testing.T) {
	o := NewOrder(Sell, dec("100"), dec("1.0"))

	require.NoError(t, o.Fill(dec("40"), dec("1.2")))
	assert.Equal(t, PartiallyFilled, o.Status)
	assert.True(t, o.AmountFilled.Equal(dec("40")))
	assert.True(t, o.AmountOut.Equal(dec("48")))
	assert.True(t, o.FilledPrice().Equal(dec("1.2")))
	assert.True(t, o.CanonicalPrice().Equal(dec("1.2")))
	assert.True(t, o.Remaining().Equal(dec("60")))

	require.NoError(t, o.Fill(dec("100"), dec("1.2")))
	assert.Equal(t, Filled, o.Status)
	assert.True(t, o.AmountOut.Equal(dec("120")))
}

func TestFilledPriceRoundTripBothSides(t *testing.T) {
	// The canonical price is quote-per-base for both sides; the accessor must
	// invert it for BUY only.
	sell := NewOrder(Sell, dec("100"), dec("1.0"))
	require.NoError(t, sell.Fill(dec("100"), dec("2")))
	assert.True(t, sell.CanonicalPrice().Equal(dec("2")))
	assert.True(t, sell.FilledPrice().Equal(dec("2")))

	buy := NewOrder(Buy, dec("50"), dec("2.5"))
	require.NoError(t, buy.Fill(dec("50"), dec("2")))
	assert.True(t, buy.CanonicalPrice().Equal(dec("2")))
	assert.True(t, buy.FilledPrice().Equal(dec("0.5")))
	assert.True(t, buy.AmountOut.Equal(dec("25")))
}

func TestFillBounds(t *testing.T) {
	o := NewOrder(Buy, dec("10"), dec("1.0"))
	require.NoError(t, o.Fill(dec("10"), dec("1.0")))

	assert.Equal(t, Filled, o.Status)
	assert.False(t, o.AmountFilled.IsNegative())
	assert.False(t, o.AmountFilled.GreaterThan(o.AmountIn))
}

func TestCloneIsolatesFills(t *testing.T) {
	o := NewOrder(Sell, dec("100"), dec("1.0"))
	c := o.Clone()

	require.NoError(t, c.Fill(dec("100"), dec("1.0")))
	assert.Equal(t, Pending, o.Status)
	assert.Equal(t, Filled, c.Status)
}

func TestOrderJSONRoundTrip(t *testing.T) {
	o := NewOrder(Buy, dec("50"), dec("2.5"))
	require.NoError(t, o.Fill(dec("20"), dec("2")))

	b, err := json.Marshal(o)
	require.NoError(t, err)

	var back Order
	require.NoError(t, json.Unmarshal(b, &back))

	assert.Equal(t, o.ID, back.ID)
	assert.Equal(t, o.Side, back.Side)
	assert.Equal(t, o.Status, back.Status)
	assert.True(t, back.CanonicalPrice().Equal(dec("2")))
	assert.True(t, back.FilledPrice().Equal(dec("0.5")))
	assert.True(t, back.AmountOut.Equal(o.AmountOut))
	assert.True(t, back.AmountFilled.Equal(dec("20")))
}
