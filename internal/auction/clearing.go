package auction

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/solvra/batch-clearing/internal/domain"
)

// MatchOrders clears the book against a single uniform price. The book itself
// is never mutated: the whole run operates on a deep copy.
//
// Orders that accept the price are split into buy and sell sides. The side
// with the larger quote-equivalent volume is predominant; every order on the
// other (minority) side is filled fully. Predominant orders are then walked in
// ascending limit-price order against the minority side's realized output: the
// first order that would overrun the budget receives the exact remainder and
// everything after it stays unfilled. At most one order ends up partially
// filled and realized value is conserved across sides.
func MatchOrders(book *Book, price decimal.Decimal) (*domain.Solution, error) {
	work := book.Clone()
	work.SortByLimitPrice()

	matched := work.AcceptablePrice(price)
	buys := matched.Buy()
	sells := matched.Sell()

	buyVolume := buys.Token1Sum(price)
	sellVolume := sells.Token1Sum(price)

	var err error
	if buyVolume.GreaterThan(sellVolume) {
		err = fillAtPrice(buys, sells, price)
	} else {
		err = fillAtPrice(sells, buys, price)
	}
	if err != nil {
		return nil, fmt.Errorf("match at %s: %w", price, err)
	}

	solution := domain.NewSolution(matched.Filled().Orders())
	solution.AssertConserved()
	return solution, nil
}

// fillAtPrice fully fills the minority side, then spends its realized output
// as the fill budget for the predominant side. Feasible by construction:
// minority volume never exceeds predominant volume.
func fillAtPrice(predominant, minority *Book, price decimal.Decimal) error {
	for _, o := range minority.Orders() {
		if err := o.Fill(o.AmountIn, price); err != nil {
			return err
		}
	}
	budget := minority.TotalAmountOut()

	var filled decimal.Decimal
	for _, o := range predominant.Orders() {
		if filled.Add(o.AmountIn).GreaterThan(budget) {
			return o.Fill(budget.Sub(filled), price)
		}
		if err := o.Fill(o.AmountIn, price); err != nil {
			return err
		}
		filled = filled.Add(o.AmountIn)
	}
	return nil
}
