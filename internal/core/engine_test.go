package core

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvra/batch-clearing/internal/adapter/in_memory"
	"github.com/solvra/batch-clearing/internal/auction"
	"github.com/solvra/batch-clearing/internal/domain"
	"github.com/solvra/batch-clearing/internal/port"
)

const symbol = "ATOM-USDT"

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestEngine() (*Engine, *in_memory.MemoryRepo) {
	repo := in_memory.NewMemoryRepo()
	return NewEngine(repo, in_memory.NewCache(), nil, Options{}), repo
}

func submit(t *testing.T, e *Engine, side domain.Side, amountIn, limit string) *domain.Order {
	t.Helper()
	o := domain.NewOrder(side, dec(amountIn), dec(limit))
	require.NoError(t, e.SubmitOrder(context.Background(), symbol, o))
	return o
}

func TestSubmitOrderValidation(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()
	var verr *domain.ValidationError

	reserved := domain.NewOrderWithID(auction.SyntheticOrderID, domain.Sell, dec("100"), dec("1.0"))
	require.ErrorAs(t, e.SubmitOrder(ctx, symbol, reserved), &verr)

	zero := domain.NewOrder(domain.Sell, dec("0"), dec("1.0"))
	require.ErrorAs(t, e.SubmitOrder(ctx, symbol, zero), &verr)

	freePrice := domain.NewOrder(domain.Buy, dec("100"), dec("0"))
	require.ErrorAs(t, e.SubmitOrder(ctx, symbol, freePrice), &verr)

	o := submit(t, e, domain.Sell, "100", "1.0")
	dup := domain.NewOrderWithID(o.ID, domain.Buy, dec("50"), dec("1.0"))
	require.ErrorAs(t, e.SubmitOrder(ctx, symbol, dup), &verr)
}

func TestSubmitAndGetOrder(t *testing.T) {
	e, repo := newTestEngine()
	ctx := context.Background()

	o := submit(t, e, domain.Sell, "100", "1.0")

	got, err := e.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.Equal(t, domain.Pending, got.Status)

	persisted, err := repo.LoadOrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, persisted.ID)

	_, err = e.GetOrder(ctx, "missing")
	require.Error(t, err)
}

func TestCancelOrder(t *testing.T) {
	e, repo := newTestEngine()
	ctx := context.Background()

	require.ErrorIs(t, e.CancelOrder(ctx, symbol, "x"), ErrSymbolNotFound)

	o := submit(t, e, domain.Sell, "100", "1.0")
	require.ErrorIs(t, e.CancelOrder(ctx, symbol, "missing"), ErrOrderNotFound)

	require.NoError(t, e.CancelOrder(ctx, symbol, o.ID))

	open, err := repo.LoadOpenOrders(ctx, symbol)
	require.NoError(t, err)
	assert.Empty(t, open)

	snap, err := e.Snapshot(ctx, symbol)
	require.NoError(t, err)
	assert.Empty(t, snap.AllOrders())
}

func TestCancelOrderInvalidatesCache(t *testing.T) {
	repo := in_memory.NewMemoryRepo()
	bookCache := in_memory.NewCache()
	e := NewEngine(repo, bookCache, nil, Options{})
	ctx := context.Background()

	o := domain.NewOrder(domain.Sell, dec("100"), dec("1.0"))
	require.NoError(t, e.SubmitOrder(ctx, symbol, o))

	cached, err := bookCache.GetBook(ctx, symbol)
	require.NoError(t, err)
	require.NotNil(t, cached)

	require.NoError(t, e.CancelOrder(ctx, symbol, o.ID))

	gone, err := bookCache.GetBook(ctx, symbol)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestSnapshotUnknownSymbol(t *testing.T) {
	e, _ := newTestEngine()
	_, err := e.Snapshot(context.Background(), "nope")
	require.ErrorIs(t, err, ErrSymbolNotFound)
}

func TestClearWithoutCommitLeavesBookIntact(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()

	sell := submit(t, e, domain.Sell, "100", "1.0")
	buy := submit(t, e, domain.Buy, "50", "1.0")

	price := dec("1.0")
	sol, err := e.Clear(ctx, symbol, &price, false)
	require.NoError(t, err)
	require.Len(t, sol.Orders, 2)
	assert.Equal(t, domain.Filled, sol.OrderByID(buy.ID).Status)
	assert.Equal(t, domain.PartiallyFilled, sol.OrderByID(sell.ID).Status)

	// Dry run: the live orders are untouched.
	snap, err := e.Snapshot(ctx, symbol)
	require.NoError(t, err)
	require.Len(t, snap.AllOrders(), 2)
	for _, o := range snap.AllOrders() {
		assert.Equal(t, domain.Pending, o.Status)
	}
}

func TestClearCommitSettlesBook(t *testing.T) {
	e, repo := newTestEngine()
	ctx := context.Background()

	sell := submit(t, e, domain.Sell, "100", "1.0")
	buy := submit(t, e, domain.Buy, "50", "1.0")

	price := dec("1.0")
	sol, err := e.Clear(ctx, symbol, &price, true)
	require.NoError(t, err)
	require.Len(t, sol.Orders, 2)

	// The filled buy leaves the book; the partial sell is replaced by its
	// pending remainder under the same id.
	snap, err := e.Snapshot(ctx, symbol)
	require.NoError(t, err)
	require.Len(t, snap.AllOrders(), 1)
	remainder := snap.AllOrders()[0]
	assert.Equal(t, sell.ID, remainder.ID)
	assert.Equal(t, domain.Pending, remainder.Status)
	assert.True(t, remainder.AmountIn.Equal(dec("50")))
	assert.True(t, remainder.CreatedAt.Equal(sell.CreatedAt), "remainder must keep its queue position")

	open, err := repo.LoadOpenOrders(ctx, symbol)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, sell.ID, open[0].ID)

	filled, err := repo.LoadOrderByID(ctx, buy.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Filled, filled.Status)
}

func TestClearDiscoversPriceWhenNil(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()

	submit(t, e, domain.Sell, "100", "0.9")
	submit(t, e, domain.Buy, "100", "1.0")

	sol, err := e.Clear(ctx, symbol, nil, false)
	require.NoError(t, err)
	require.Len(t, sol.Orders, 2)
	assert.True(t, sol.ClearingPrice.Equal(dec("1.0")))
}

func TestClearErrors(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()

	_, err := e.Clear(ctx, "nope", nil, false)
	require.ErrorIs(t, err, ErrSymbolNotFound)

	submit(t, e, domain.Sell, "100", "1.0")
	bad := dec("-1")
	var verr *domain.ValidationError
	_, err = e.Clear(ctx, symbol, &bad, false)
	require.ErrorAs(t, err, &verr)
}

func TestSolveBaseStrategy(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()

	submit(t, e, domain.Sell, "100", "0.9")
	submit(t, e, domain.Buy, "100", "1.1")

	sol, err := e.Solve(ctx, symbol, SolveParams{
		Strategy:    StrategyBase,
		TargetPrice: dec("0.95"),
		BuyBudget:   dec("50"),
		SellBudget:  dec("50"),
		Resolution:  10,
	})
	require.NoError(t, err)
	require.Len(t, sol.Orders, 2)
	assert.Nil(t, sol.OrderByID(auction.SyntheticOrderID))
}

func TestSolveStrategyErrors(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()

	_, err := e.Solve(ctx, symbol, SolveParams{Strategy: StrategyBase})
	require.ErrorIs(t, err, ErrSymbolNotFound)

	submit(t, e, domain.Sell, "100", "1.0")

	var verr *domain.ValidationError
	_, err = e.Solve(ctx, symbol, SolveParams{Strategy: "SIDEWAYS"})
	require.ErrorAs(t, err, &verr)

	_, err = e.Solve(ctx, symbol, SolveParams{Strategy: StrategyCFMMProfit})
	require.ErrorIs(t, err, ErrPoolNotFound)
}

func TestSolveCFMMProfitStrategy(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()

	submit(t, e, domain.Sell, "100", "0.9")
	submit(t, e, domain.Buy, "100", "1.1")
	require.NoError(t, e.RegisterPool(symbol, dec("800000"), dec("1000000"), decimal.Zero))

	sol, err := e.Solve(ctx, symbol, SolveParams{
		Strategy:   StrategyCFMMProfit,
		BuyBudget:  dec("50"),
		SellBudget: dec("50"),
		Resolution: 10,
	})
	require.NoError(t, err)
	require.NotNil(t, sol.OrderByID(auction.SyntheticOrderID))
}

func TestPoolLifecycle(t *testing.T) {
	e, _ := newTestEngine()

	_, err := e.PoolPrice(symbol)
	require.ErrorIs(t, err, ErrPoolNotFound)

	var verr *domain.ValidationError
	require.ErrorAs(t, e.RegisterPool(symbol, dec("0"), dec("1000"), decimal.Zero), &verr)

	require.NoError(t, e.RegisterPool(symbol, dec("1000000"), dec("950000"), dec("0.003")))

	price, err := e.PoolPrice(symbol)
	require.NoError(t, err)
	assert.True(t, price.Equal(dec("1000000").Div(dec("950000"))))

	q1, err := e.QuotePool(symbol, dec("1000"), port.DirectionSell)
	require.NoError(t, err)
	q2, err := e.QuotePool(symbol, dec("1000"), port.DirectionSell)
	require.NoError(t, err)
	assert.True(t, q1.Equal(q2))

	_, err = e.ExecutePool(symbol, dec("1000"), port.DirectionSell)
	require.NoError(t, err)

	moved, err := e.PoolPrice(symbol)
	require.NoError(t, err)
	assert.True(t, moved.LessThan(price))
}

func TestLoadOpenOrdersRestoresBooks(t *testing.T) {
	e, repo := newTestEngine()
	ctx := context.Background()

	o := submit(t, e, domain.Sell, "100", "1.0")

	restarted := NewEngine(repo, in_memory.NewCache(), nil, Options{})
	require.NoError(t, restarted.LoadOpenOrders(ctx, nil))

	snap, err := restarted.Snapshot(ctx, symbol)
	require.NoError(t, err)
	require.Len(t, snap.AllOrders(), 1)
	assert.Equal(t, o.ID, snap.AllOrders()[0].ID)
}
