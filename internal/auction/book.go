package auction

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/solvra/batch-clearing/internal/domain"
)

// DefaultPriceResolution is the grid density used for uniform price discovery
// when the caller does not override it.
const DefaultPriceResolution = 50

type priceKey struct {
	version    uint64
	resolution int
}

// Book is an ordered collection of order references. It is not itself sorted;
// derived views are. The version counter is bumped on every mutation and keys
// the memoized price discovery result, so an in-place change can never serve a
// stale price.
type Book struct {
	orders  []*domain.Order
	version uint64
	prices  map[priceKey]decimal.Decimal
}

func NewBook(orders ...*domain.Order) *Book {
	b := &Book{orders: make([]*domain.Order, len(orders))}
	copy(b.orders, orders)
	return b
}

func (b *Book) Len() int {
	return len(b.orders)
}

func (b *Book) Version() uint64 {
	return b.version
}

// Orders returns the underlying order references in book order. The slice is
// a copy; the orders are shared.
func (b *Book) Orders() []*domain.Order {
	res := make([]*domain.Order, len(b.orders))
	copy(res, b.orders)
	return res
}

func (b *Book) Append(o *domain.Order) {
	b.orders = append(b.orders, o)
	b.mutated()
}

func (b *Book) Remove(id string) bool {
	for i, o := range b.orders {
		if o.ID == id {
			b.orders = append(b.orders[:i], b.orders[i+1:]...)
			b.mutated()
			return true
		}
	}
	return false
}

func (b *Book) SortByLimitPrice() {
	sort.SliceStable(b.orders, func(i, j int) bool {
		return b.orders[i].LimitPrice.LessThan(b.orders[j].LimitPrice)
	})
	b.mutated()
}

func (b *Book) mutated() {
	b.version++
	b.prices = nil
}

// Clone deep-copies every order so fills on the clone never reach back into
// this book.
func (b *Book) Clone() *Book {
	c := &Book{
		orders:  make([]*domain.Order, len(b.orders)),
		version: b.version,
	}
	for i, o := range b.orders {
		c.orders[i] = o.Clone()
	}
	return c
}

// Filter returns a non-mutating view sharing the same order references.
func (b *Book) Filter(keep func(*domain.Order) bool) *Book {
	var res []*domain.Order
	for _, o := range b.orders {
		if keep(o) {
			res = append(res, o)
		}
	}
	return &Book{orders: res, version: b.version}
}

func (b *Book) Buy() *Book {
	return b.Filter(func(o *domain.Order) bool { return o.Side == domain.Buy })
}

func (b *Book) Sell() *Book {
	return b.Filter(func(o *domain.Order) bool { return o.Side == domain.Sell })
}

func (b *Book) Pending() *Book {
	return b.Filter(func(o *domain.Order) bool { return o.Status == domain.Pending })
}

func (b *Book) Filled() *Book {
	return b.Filter(func(o *domain.Order) bool { return o.Status != domain.Pending })
}

func (b *Book) AcceptablePrice(p decimal.Decimal) *Book {
	return b.Filter(func(o *domain.Order) bool { return o.IsAcceptablePrice(p) })
}

func (b *Book) ByID(id string) *domain.Order {
	for _, o := range b.orders {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func (b *Book) TotalAmountIn() decimal.Decimal {
	var sum decimal.Decimal
	for _, o := range b.orders {
		sum = sum.Add(o.AmountIn)
	}
	return sum
}

func (b *Book) TotalAmountOut() decimal.Decimal {
	var sum decimal.Decimal
	for _, o := range b.orders {
		sum = sum.Add(o.AmountOut)
	}
	return sum
}

func (b *Book) TotalAmountFilled() decimal.Decimal {
	var sum decimal.Decimal
	for _, o := range b.orders {
		sum = sum.Add(o.AmountFilled)
	}
	return sum
}

// Token1Sum converts every order's input to the quote token at price p and
// sums the result.
func (b *Book) Token1Sum(p decimal.Decimal) decimal.Decimal {
	var sum decimal.Decimal
	for _, o := range b.orders {
		sum = sum.Add(o.Token1AtPrice(p))
	}
	return sum
}

// VolumeAtPrice is the matchable quote volume at price p: the lesser of the
// price-acceptable buy and sell sides.
func (b *Book) VolumeAtPrice(p decimal.Decimal) decimal.Decimal {
	matched := b.AcceptablePrice(p)
	buy := matched.Buy().Token1Sum(p)
	sell := matched.Sell().Token1Sum(p)
	if buy.LessThan(sell) {
		return buy
	}
	return sell
}

// OptimalPrice grid-searches resolution+1 equally spaced prices between the
// lowest and highest limit price and returns the one maximizing VolumeAtPrice.
// The first (lowest) price wins ties. Results are memoized per book version.
func (b *Book) OptimalPrice(resolution int) (decimal.Decimal, error) {
	if len(b.orders) == 0 {
		return decimal.Zero, domain.Validationf("optimal-price", "empty book")
	}
	if resolution <= 0 {
		return decimal.Zero, domain.Validationf("optimal-price", "resolution %d must be positive", resolution)
	}

	key := priceKey{version: b.version, resolution: resolution}
	if cached, ok := b.prices[key]; ok {
		return cached, nil
	}

	minPrice := b.orders[0].LimitPrice
	maxPrice := b.orders[0].LimitPrice
	for _, o := range b.orders[1:] {
		if o.LimitPrice.LessThan(minPrice) {
			minPrice = o.LimitPrice
		}
		if o.LimitPrice.GreaterThan(maxPrice) {
			maxPrice = o.LimitPrice
		}
	}

	step := maxPrice.Sub(minPrice).Div(decimal.NewFromInt(int64(resolution)))
	best := minPrice
	maxVolume := decimal.NewFromInt(-1)
	for i := 0; i <= resolution; i++ {
		price := minPrice.Add(step.Mul(decimal.NewFromInt(int64(i))))
		volume := b.VolumeAtPrice(price)
		if volume.GreaterThan(maxVolume) {
			best = price
			maxVolume = volume
		}
	}

	if b.prices == nil {
		b.prices = make(map[priceKey]decimal.Decimal)
	}
	b.prices[key] = best
	return best, nil
}
