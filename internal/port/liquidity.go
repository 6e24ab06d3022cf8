package port

import "github.com/shopspring/decimal"

// Direction selects which token a liquidity trade spends. DirectionSell
// spends the quote token for base; DirectionBuy spends the base token for
// quote.
type Direction string

const (
	DirectionSell Direction = "SELL"
	DirectionBuy  Direction = "BUY"
)

// Liquidity is the two-entrypoint quoting contract consumed by external
// routers: Quote never changes state, Execute commits the trade.
type Liquidity interface {
	Quote(delta decimal.Decimal, dir Direction) (decimal.Decimal, error)
	Execute(delta decimal.Decimal, dir Direction) (decimal.Decimal, error)
}
