package auction

import (
	"github.com/shopspring/decimal"

	"github.com/solvra/batch-clearing/internal/domain"
	"github.com/solvra/batch-clearing/internal/port"
)

// DefaultFee is the constant-product pool fee applied when none is configured.
var DefaultFee = decimal.RequireFromString("0.03")

var one = decimal.NewFromInt(1)

// CFMM is a constant-product market maker over a reserve pair: r0 of the base
// token, r1 of the quote token. gamma = 1 - fee is applied to the input leg of
// every swap, so the product r0*r1 never decreases on a committed trade.
type CFMM struct {
	r0    decimal.Decimal
	r1    decimal.Decimal
	fee   decimal.Decimal
	gamma decimal.Decimal
}

var _ port.Liquidity = (*CFMM)(nil)

func NewCFMM(r0, r1, fee decimal.Decimal) (*CFMM, error) {
	if !r0.IsPositive() || !r1.IsPositive() {
		return nil, domain.Validationf("cfmm", "reserves must be positive, got (%s, %s)", r0, r1)
	}
	if fee.IsNegative() || fee.GreaterThanOrEqual(one) {
		return nil, domain.Validationf("cfmm", "fee %s outside [0, 1)", fee)
	}
	return &CFMM{r0: r0, r1: r1, fee: fee, gamma: one.Sub(fee)}, nil
}

func (c *CFMM) Reserves() (decimal.Decimal, decimal.Decimal) {
	return c.r0, c.r1
}

func (c *CFMM) Fee() decimal.Decimal {
	return c.fee
}

// Price is the instantaneous marginal rate r0/r1, ignoring fee and slippage.
func (c *CFMM) Price() decimal.Decimal {
	return c.r0.Div(c.r1)
}

// Sell trades delta of the quote token for the base token. With simulate set
// the reserves are left untouched; otherwise both legs are applied together.
func (c *CFMM) Sell(delta decimal.Decimal, simulate bool) (decimal.Decimal, error) {
	if delta.IsNegative() {
		return decimal.Zero, domain.Validationf("cfmm sell", "negative input %s", delta)
	}
	out := c.swap(delta, c.r1, c.r0)
	if !simulate {
		c.r0 = c.r0.Sub(out)
		c.r1 = c.r1.Add(delta)
	}
	return out, nil
}

// Buy trades delta of the base token for the quote token.
func (c *CFMM) Buy(delta decimal.Decimal, simulate bool) (decimal.Decimal, error) {
	if delta.IsNegative() {
		return decimal.Zero, domain.Validationf("cfmm buy", "negative input %s", delta)
	}
	out := c.swap(delta, c.r0, c.r1)
	if !simulate {
		c.r1 = c.r1.Sub(out)
		c.r0 = c.r0.Add(delta)
	}
	return out, nil
}

func (c *CFMM) swap(delta, reserveIn, reserveOut decimal.Decimal) decimal.Decimal {
	return reserveOut.Sub(reserveIn.Mul(reserveOut).Div(reserveIn.Add(c.gamma.Mul(delta))))
}

// Quote implements port.Liquidity without touching the reserves.
func (c *CFMM) Quote(delta decimal.Decimal, dir port.Direction) (decimal.Decimal, error) {
	return c.trade(delta, dir, true)
}

// Execute implements port.Liquidity and commits the swap.
func (c *CFMM) Execute(delta decimal.Decimal, dir port.Direction) (decimal.Decimal, error) {
	return c.trade(delta, dir, false)
}

func (c *CFMM) trade(delta decimal.Decimal, dir port.Direction, simulate bool) (decimal.Decimal, error) {
	switch dir {
	case port.DirectionSell:
		return c.Sell(delta, simulate)
	case port.DirectionBuy:
		return c.Buy(delta, simulate)
	default:
		return decimal.Zero, domain.Validationf("cfmm", "unknown direction %q", dir)
	}
}
