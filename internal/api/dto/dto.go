package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

type Direction string

const (
	DirectionSell Direction = "SELL"
	DirectionBuy  Direction = "BUY"
)

type Strategy string

const (
	StrategyBase       Strategy = "BASE"
	StrategyCFMMProfit Strategy = "CFMM_PROFIT"
	StrategyCFMMVolume Strategy = "CFMM_VOLUME"
)

type SubmitOrderRequest struct {
	OrderID    string          `json:"order_id,omitempty"` // for deduplication
	Symbol     string          `json:"symbol" binding:"required"`
	Side       Side            `json:"side" binding:"required"`
	AmountIn   decimal.Decimal `json:"amount_in" binding:"required"`
	LimitPrice decimal.Decimal `json:"limit_price" binding:"required"`
}

type SubmitOrderResponse struct {
	OrderID string `json:"order_id"`
	Message string `json:"message,omitempty"`
}

type CancelOrderRequest struct {
	Symbol  string `json:"symbol" binding:"required"`
	OrderID string `json:"order_id" binding:"required"`
}

type CancelOrderResponse struct {
	OrderID   string `json:"order_id"`
	Cancelled bool   `json:"cancelled"`
}

type GetOrderResponse struct {
	Order Order `json:"order"`
}

type GetBookResponse struct {
	Symbol    string    `json:"symbol"`
	Version   uint64    `json:"version"`
	Buys      []Order   `json:"buys"`
	Sells     []Order   `json:"sells"`
	Timestamp time.Time `json:"timestamp"`
}

type ClearRequest struct {
	Symbol string           `json:"symbol" binding:"required"`
	Price  *decimal.Decimal `json:"price,omitempty"` // nil requests price discovery
	Commit bool             `json:"commit,omitempty"`
}

type SolveRequest struct {
	Symbol      string          `json:"symbol" binding:"required"`
	Strategy    Strategy        `json:"strategy" binding:"required"`
	TargetPrice decimal.Decimal `json:"target_price,omitempty"` // BASE strategy only
	BuyBudget   decimal.Decimal `json:"buy_budget"`
	SellBudget  decimal.Decimal `json:"sell_budget"`
	Resolution  int             `json:"resolution,omitempty"`
}

type SolutionResponse struct {
	ClearingPrice decimal.Decimal `json:"clearing_price"`
	BuyVolume     decimal.Decimal `json:"buy_volume"`
	SellVolume    decimal.Decimal `json:"sell_volume"`
	MatchVolume   decimal.Decimal `json:"match_volume"`
	Orders        []Order         `json:"orders"`
}

type RegisterPoolRequest struct {
	Symbol string           `json:"symbol" binding:"required"`
	R0     decimal.Decimal  `json:"r0" binding:"required"`
	R1     decimal.Decimal  `json:"r1" binding:"required"`
	Fee    *decimal.Decimal `json:"fee,omitempty"` // nil requests the configured default; 0 is a valid fee
}

type RegisterPoolResponse struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

type PoolTradeRequest struct {
	Symbol    string          `json:"symbol" binding:"required"`
	Direction Direction       `json:"direction" binding:"required"`
	Delta     decimal.Decimal `json:"delta" binding:"required"`
}

type PoolTradeResponse struct {
	AmountOut decimal.Decimal `json:"amount_out"`
}

type Order struct {
	ID             string          `json:"id"`
	Side           Side            `json:"side"`
	AmountIn       decimal.Decimal `json:"amount_in"`
	LimitPrice     decimal.Decimal `json:"limit_price"`
	Status         string          `json:"status"`
	FilledPrice    decimal.Decimal `json:"filled_price"`
	CanonicalPrice decimal.Decimal `json:"canonical_price"`
	AmountOut      decimal.Decimal `json:"amount_out"`
	AmountFilled   decimal.Decimal `json:"amount_filled"`
	CreatedAt      time.Time       `json:"created_at"`
}
