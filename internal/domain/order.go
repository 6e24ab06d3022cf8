package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Side string
type OrderStatus string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"

	Pending         OrderStatus = "PENDING"
	PartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	Filled          OrderStatus = "FILLED"
)

// Order is a single batch-auction order. AmountIn is the quantity offered:
// base token for SELL, quote token for BUY. LimitPrice is quote-per-base, the
// minimum acceptable rate for SELL and maximum for BUY.
//
// filledPrice is stored canonically as quote-per-base regardless of side;
// FilledPrice inverts it for BUY orders on read.
type Order struct {
	ID           string
	Side         Side
	AmountIn     decimal.Decimal
	LimitPrice   decimal.Decimal
	Status       OrderStatus
	AmountOut    decimal.Decimal
	AmountFilled decimal.Decimal
	CreatedAt    time.Time

	filledPrice decimal.Decimal
}

func NewOrder(side Side, amountIn, limitPrice decimal.Decimal) *Order {
	return NewOrderWithID(uuid.NewString(), side, amountIn, limitPrice)
}

func NewOrderWithID(id string, side Side, amountIn, limitPrice decimal.Decimal) *Order {
	return &Order{
		ID:         id,
		Side:       side,
		AmountIn:   amountIn,
		LimitPrice: limitPrice,
		Status:     Pending,
		CreatedAt:  time.Now(),
	}
}

// FilledPrice is the execution rate in the order's own orientation: the
// canonical quote-per-base value for SELL, its reciprocal for BUY.
func (o *Order) FilledPrice() decimal.Decimal {
	if o.Side == Buy {
		if o.filledPrice.IsZero() {
			return decimal.Zero
		}
		return decimal.NewFromInt(1).Div(o.filledPrice)
	}
	return o.filledPrice
}

// CanonicalPrice returns the stored quote-per-base execution rate.
func (o *Order) CanonicalPrice() decimal.Decimal {
	return o.filledPrice
}

// IsAcceptablePrice reports whether the order may legally trade at price p.
func (o *Order) IsAcceptablePrice(p decimal.Decimal) bool {
	if o.Side == Sell {
		return p.GreaterThanOrEqual(o.LimitPrice)
	}
	return p.LessThanOrEqual(o.LimitPrice)
}

// Token1AtPrice converts the order's input into the quote token at price p.
// BUY input already is quote, so it passes through unchanged.
func (o *Order) Token1AtPrice(p decimal.Decimal) decimal.Decimal {
	if o.Side == Sell {
		return o.AmountIn.Mul(p)
	}
	return o.AmountIn
}

// Remaining is the unfilled part of a partially filled order.
func (o *Order) Remaining() decimal.Decimal {
	if o.Status == PartiallyFilled {
		return o.AmountIn.Sub(o.AmountFilled)
	}
	return decimal.Zero
}

// Fill executes volume of this order at the canonical price. Zero volume is a
// no-op; negative or over-bound volume is a ValidationError. The consistency
// check afterwards panics on failure: it can only trip on an engine bug.
func (o *Order) Fill(volume, price decimal.Decimal) error {
	if volume.IsZero() {
		return nil
	}
	if volume.IsNegative() {
		return Validationf("fill", "negative volume %s", volume)
	}
	if volume.GreaterThan(o.AmountIn) {
		return Validationf("fill", "[%s] volume %s exceeds order input %s", o.Side, volume, o.AmountIn)
	}

	o.filledPrice = price
	o.AmountOut = volume.Mul(o.FilledPrice())
	o.AmountFilled = volume
	if volume.Equal(o.AmountIn) {
		o.Status = Filled
	} else {
		o.Status = PartiallyFilled
	}
	o.mustBeConsistent()
	return nil
}

func (o *Order) mustBeConsistent() {
	full := o.AmountIn.Mul(o.FilledPrice())
	switch o.Status {
	case Filled:
		if !o.AmountOut.Equal(full) {
			invariantf("filled order %s: out %s != in*price %s", o.ID, o.AmountOut, full)
		}
	case PartiallyFilled:
		if !o.AmountOut.LessThan(full) {
			invariantf("partial order %s: out %s not below in*price %s", o.ID, o.AmountOut, full)
		}
	case Pending:
		if !o.AmountOut.IsZero() {
			invariantf("pending order %s has output %s", o.ID, o.AmountOut)
		}
	default:
		invariantf("order %s in unknown status %q", o.ID, o.Status)
	}
	if o.AmountFilled.IsNegative() || o.AmountFilled.GreaterThan(o.AmountIn) {
		invariantf("order %s filled amount %s outside [0, %s]", o.ID, o.AmountFilled, o.AmountIn)
	}
}

// Clone deep-copies the order so trial fills never touch the original.
func (o *Order) Clone() *Order {
	c := *o
	return &c
}

type orderJSON struct {
	ID           string          `json:"id"`
	Side         Side            `json:"side"`
	AmountIn     decimal.Decimal `json:"amount_in"`
	LimitPrice   decimal.Decimal `json:"limit_price"`
	Status       OrderStatus     `json:"status"`
	FilledPrice  decimal.Decimal `json:"filled_price"`
	AmountOut    decimal.Decimal `json:"amount_out"`
	AmountFilled decimal.Decimal `json:"amount_filled"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (o *Order) MarshalJSON() ([]byte, error) {
	return json.Marshal(orderJSON{
		ID:           o.ID,
		Side:         o.Side,
		AmountIn:     o.AmountIn,
		LimitPrice:   o.LimitPrice,
		Status:       o.Status,
		FilledPrice:  o.filledPrice,
		AmountOut:    o.AmountOut,
		AmountFilled: o.AmountFilled,
		CreatedAt:    o.CreatedAt,
	})
}

func (o *Order) UnmarshalJSON(b []byte) error {
	var j orderJSON
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	o.ID = j.ID
	o.Side = j.Side
	o.AmountIn = j.AmountIn
	o.LimitPrice = j.LimitPrice
	o.Status = j.Status
	o.filledPrice = j.FilledPrice
	o.AmountOut = j.AmountOut
	o.AmountFilled = j.AmountFilled
	o.CreatedAt = j.CreatedAt
	return nil
}
