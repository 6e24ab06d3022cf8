package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Conservation mismatches below these bounds are rounding noise from the
// reciprocal-price division, whose absolute error grows with order size.
// Anything beyond them means value was created or destroyed.
var (
	conservationFloor = decimal.New(1, -8)  // absolute, for small volumes
	conservationRel   = decimal.New(1, -12) // relative to the compared volume
)

func conservationTol(volume decimal.Decimal) decimal.Decimal {
	scaled := volume.Abs().Mul(conservationRel)
	if scaled.GreaterThan(conservationFloor) {
		return scaled
	}
	return conservationFloor
}

// Solution is the immutable result of one clearing run: the filled orders
// sorted ascending by limit price, plus the realized volume on each side.
// BuyVolume is the quote amount received by sellers, SellVolume the base
// amount received by buyers.
type Solution struct {
	Orders        []*Order        `json:"orders"`
	ClearingPrice decimal.Decimal `json:"clearing_price"`
	BuyVolume     decimal.Decimal `json:"buy_volume"`
	SellVolume    decimal.Decimal `json:"sell_volume"`
}

// NewSolution sorts the orders ascending by limit price and derives the
// clearing price and per-side volumes. The clearing price is by convention the
// canonical filled price of the lowest-limit order.
func NewSolution(orders []*Order) *Solution {
	sorted := make([]*Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LimitPrice.LessThan(sorted[j].LimitPrice)
	})

	s := &Solution{Orders: sorted}
	if len(sorted) > 0 {
		s.ClearingPrice = sorted[0].CanonicalPrice()
	}
	for _, o := range sorted {
		if o.Side == Sell {
			s.BuyVolume = s.BuyVolume.Add(o.AmountOut)
		} else {
			s.SellVolume = s.SellVolume.Add(o.AmountOut)
		}
	}
	return s
}

func (s *Solution) BuyOrders() []*Order {
	return s.bySide(Buy)
}

func (s *Solution) SellOrders() []*Order {
	return s.bySide(Sell)
}

func (s *Solution) bySide(side Side) []*Order {
	var res []*Order
	for _, o := range s.Orders {
		if o.Side == side {
			res = append(res, o)
		}
	}
	return res
}

func (s *Solution) OrderByID(id string) *Order {
	for _, o := range s.Orders {
		if o.ID == id {
			return o
		}
	}
	return nil
}

// MatchVolume is the buy-sell volume product. It is a search heuristic only,
// not a monetary quantity.
func (s *Solution) MatchVolume() decimal.Decimal {
	return s.BuyVolume.Mul(s.SellVolume)
}

func (s *Solution) Clone() *Solution {
	orders := make([]*Order, len(s.Orders))
	for i, o := range s.Orders {
		orders[i] = o.Clone()
	}
	return &Solution{
		Orders:        orders,
		ClearingPrice: s.ClearingPrice,
		BuyVolume:     s.BuyVolume,
		SellVolume:    s.SellVolume,
	}
}

// AssertConserved panics unless the quote received by sellers equals the
// quote spent by buyers, and symmetrically for the base token. A violation is
// an engine defect and must never be corrected silently.
func (s *Solution) AssertConserved() {
	var buyFilled, sellFilled decimal.Decimal
	for _, o := range s.Orders {
		switch o.Side {
		case Buy:
			buyFilled = buyFilled.Add(o.AmountFilled)
		case Sell:
			sellFilled = sellFilled.Add(o.AmountFilled)
		}
	}
	if s.BuyVolume.Sub(buyFilled).Abs().GreaterThan(conservationTol(s.BuyVolume)) {
		invariantf("conservation: buy volume %s != buy filled %s", s.BuyVolume, buyFilled)
	}
	if s.SellVolume.Sub(sellFilled).Abs().GreaterThan(conservationTol(s.SellVolume)) {
		invariantf("conservation: sell volume %s != sell filled %s", s.SellVolume, sellFilled)
	}
}
