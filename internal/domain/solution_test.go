package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSolutionSortsAndAggregates(t *testing.T) {
	sell := NewOrder(Sell, dec("100"), dec("1.0"))
	require.NoError(t, sell.Fill(dec("100"), dec("1.0")))
	buy := NewOrder(Buy, dec("100"), dec("1.2"))
	require.NoError(t, buy.Fill(dec("100"), dec("1.0")))

	s := NewSolution([]*Order{buy, sell})

	require.Len(t, s.Orders, 2)
	assert.Equal(t, sell.ID, s.Orders[0].ID)
	assert.True(t, s.ClearingPrice.Equal(dec("1.0")))
	assert.True(t, s.BuyVolume.Equal(dec("100")))
	assert.True(t, s.SellVolume.Equal(dec("100")))
	assert.True(t, s.MatchVolume().Equal(dec("10000")))

	assert.Len(t, s.BuyOrders(), 1)
	assert.Len(t, s.SellOrders(), 1)
	assert.Equal(t, buy, s.OrderByID(buy.ID))
	assert.Nil(t, s.OrderByID("missing"))
}

func TestAssertConservedPanicsOnImbalance(t *testing.T) {
	sell := NewOrder(Sell, dec("100"), dec("1.0"))
	require.NoError(t, sell.Fill(dec("100"), dec("1.0")))
	buy := NewOrder(Buy, dec("100"), dec("1.2"))
	require.NoError(t, buy.Fill(dec("100"), dec("1.0")))

	s := NewSolution([]*Order{sell, buy})
	assert.NotPanics(t, func() { s.AssertConserved() })

	// Claim more quote than any buyer spent.
	s.BuyVolume = dec("150")
	assert.Panics(t, func() { s.AssertConserved() })
}

func TestAssertConservedToleranceScalesWithVolume(t *testing.T) {
	// 1/3 rounds at division precision, so the buy output misses the exact
	// value by an amount proportional to the order size.
	sell := NewOrder(Sell, dec("1000000000000"), dec("1.0"))
	require.NoError(t, sell.Fill(dec("999999999999.9999"), dec("3")))
	buy := NewOrder(Buy, dec("3000000000000"), dec("3"))
	require.NoError(t, buy.Fill(dec("3000000000000"), dec("3")))

	s := NewSolution([]*Order{sell, buy})
	assert.NotPanics(t, func() { s.AssertConserved() })

	// A genuine imbalance at the same scale still trips the check.
	s.BuyVolume = s.BuyVolume.Add(dec("1000000"))
	assert.Panics(t, func() { s.AssertConserved() })
}

func TestSolutionCloneIsDeep(t *testing.T) {
	sell := NewOrder(Sell, dec("100"), dec("1.0"))
	s := NewSolution([]*Order{sell})

	c := s.Clone()
	require.NoError(t, c.Orders[0].Fill(dec("100"), dec("1.0")))

	assert.Equal(t, Pending, s.Orders[0].Status)
}
