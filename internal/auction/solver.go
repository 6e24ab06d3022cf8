package auction

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/solvra/batch-clearing/internal/domain"
)

// SyntheticOrderID tags the solver-injected candidate order so it can be
// recognized among the filled orders of a trial solution. Client orders must
// never carry it.
const SyntheticOrderID = "solver"

// DefaultSolveResolution is the grid density of the candidate-sizing search.
const DefaultSolveResolution = 1000

// DefaultLimitBias shifts the synthetic candidate's limit 10% past the book's
// optimal price so the candidate is always price-acceptable.
var DefaultLimitBias = decimal.RequireFromString("1.1")

// ErrInfeasible rejects a single candidate from the search; the solver skips
// it and keeps scanning.
var ErrInfeasible = errors.New("objective infeasible for candidate")

// ObjectiveFunc scores the filled synthetic candidate within its trial
// solution. Higher is better; ErrInfeasible discards the candidate.
type ObjectiveFunc func(candidate *domain.Order, trial *domain.Solution) (decimal.Decimal, error)

// Solver sizes a synthetic counter-order by one-dimensional grid search: each
// trial appends a candidate to a fresh copy of the book, re-discovers the
// optimal price, clears, and scores the candidate if it was matched. The book
// is borrowed, never mutated.
type Solver struct {
	book            *Book
	targetPrice     decimal.Decimal
	limitPrice      decimal.Decimal
	buyBudget       decimal.Decimal
	sellBudget      decimal.Decimal
	priceResolution int
	objective       ObjectiveFunc

	best *domain.Order
}

// NewSolver builds the base solver whose objective is a linear net-gain
// estimate of both token balances under the target price.
func NewSolver(book *Book, targetPrice, buyBudget, sellBudget decimal.Decimal) (*Solver, error) {
	if !targetPrice.IsPositive() {
		return nil, domain.Validationf("solver", "target price %s must be positive", targetPrice)
	}
	s := &Solver{
		book:            book,
		targetPrice:     targetPrice,
		limitPrice:      targetPrice,
		buyBudget:       buyBudget,
		sellBudget:      sellBudget,
		priceResolution: DefaultPriceResolution,
	}
	s.objective = s.netGain
	return s, nil
}

// NewCFMMProfitSolver targets the pool's reciprocal price and scores a
// candidate by the arbitrage profit of routing its proceeds back through the
// pool.
func NewCFMMProfitSolver(book *Book, pool *CFMM, buyBudget, sellBudget, limitBias decimal.Decimal) (*Solver, error) {
	s, err := newCFMMSolver(book, pool, buyBudget, sellBudget, limitBias)
	if err != nil {
		return nil, err
	}
	s.objective = func(o *domain.Order, _ *domain.Solution) (decimal.Decimal, error) {
		return s.poolProfit(pool, o)
	}
	return s, nil
}

// NewCFMMVolumeSolver maximizes matched volume among candidates whose pool
// round-trip is not loss-making.
func NewCFMMVolumeSolver(book *Book, pool *CFMM, buyBudget, sellBudget, limitBias decimal.Decimal) (*Solver, error) {
	s, err := newCFMMSolver(book, pool, buyBudget, sellBudget, limitBias)
	if err != nil {
		return nil, err
	}
	s.objective = func(o *domain.Order, trial *domain.Solution) (decimal.Decimal, error) {
		profit, err := s.poolProfit(pool, o)
		if err != nil {
			return decimal.Zero, err
		}
		if profit.IsNegative() {
			return decimal.Zero, ErrInfeasible
		}
		return trial.MatchVolume(), nil
	}
	return s, nil
}

func newCFMMSolver(book *Book, pool *CFMM, buyBudget, sellBudget, limitBias decimal.Decimal) (*Solver, error) {
	if limitBias.IsZero() {
		limitBias = DefaultLimitBias
	}
	if limitBias.LessThanOrEqual(one) {
		return nil, domain.Validationf("solver", "limit bias %s must exceed 1", limitBias)
	}

	optimal, err := book.OptimalPrice(DefaultPriceResolution)
	if err != nil {
		return nil, err
	}
	// Bias the candidate's limit past the pool price so the candidate itself
	// is never the binding constraint.
	limit := optimal.Div(limitBias)
	if optimal.LessThan(pool.Price()) {
		limit = optimal.Mul(limitBias)
	}

	return &Solver{
		book:            book,
		targetPrice:     one.Div(pool.Price()),
		limitPrice:      limit,
		buyBudget:       buyBudget,
		sellBudget:      sellBudget,
		priceResolution: DefaultPriceResolution,
	}, nil
}

// Best returns the synthetic candidate of the best trial seen so far, nil
// when no candidate was ever matched.
func (s *Solver) Best() *domain.Order {
	return s.best
}

// Solve runs the grid search. The candidate trades against whichever side
// pulls the book's optimal price toward the target; its size sweeps the
// corresponding token budget in resolution+1 steps. The first candidate with
// the strictly highest positive score wins; if none is ever matched the book
// is simply cleared at its own optimal price. Cancellation is honored once
// per grid point.
func (s *Solver) Solve(ctx context.Context, resolution int) (*domain.Solution, error) {
	if resolution <= 0 {
		return nil, domain.Validationf("solve", "resolution %d must be positive", resolution)
	}

	baseline, err := s.book.OptimalPrice(s.priceResolution)
	if err != nil {
		return nil, err
	}

	side := domain.Sell
	budget := s.sellBudget
	if baseline.GreaterThan(s.targetPrice) {
		side = domain.Buy
		budget = s.buyBudget
	}

	steps := decimal.NewFromInt(int64(resolution))
	bestScore := decimal.Zero
	var bestSolution *domain.Solution

	for i := 0; i <= resolution; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		amount := budget.Mul(decimal.NewFromInt(int64(i))).Div(steps)
		candidate := domain.NewOrderWithID(SyntheticOrderID, side, amount, s.limitPrice)

		trial, err := s.matchWithCandidate(candidate)
		if err != nil {
			return nil, err
		}
		matched := trial.OrderByID(SyntheticOrderID)
		if matched == nil {
			continue
		}

		score, err := s.objective(matched, trial)
		if errors.Is(err, ErrInfeasible) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if score.GreaterThan(bestScore) {
			bestScore = score
			bestSolution = trial
			s.best = matched
		}
	}

	if bestSolution != nil {
		return bestSolution, nil
	}
	return MatchOrders(s.book, baseline)
}

// matchWithCandidate clears a fresh copy of the book extended by the
// candidate, at that extended book's own optimal price.
func (s *Solver) matchWithCandidate(candidate *domain.Order) (*domain.Solution, error) {
	work := s.book.Clone()
	work.Append(candidate)
	work.SortByLimitPrice()

	price, err := work.OptimalPrice(s.priceResolution)
	if err != nil {
		return nil, err
	}
	return MatchOrders(work, price)
}

// netGain is the base objective: remaining budget on the candidate's side
// minus what it spent, plus the other side's budget grown by the proceeds,
// expressed in one unit via the target price.
func (s *Solver) netGain(o *domain.Order, _ *domain.Solution) (decimal.Decimal, error) {
	if o.Side == domain.Buy {
		return s.buyBudget.
			Sub(o.AmountFilled).
			Add(s.sellBudget.Add(o.AmountOut).Mul(s.targetPrice)), nil
	}
	return s.buyBudget.Add(o.AmountOut).Div(s.targetPrice).
		Add(s.sellBudget).
		Sub(o.AmountFilled), nil
}

// poolProfit routes the candidate's proceeds back through the pool in the
// opposite direction and reports the surplus over what the candidate spent.
func (s *Solver) poolProfit(pool *CFMM, o *domain.Order) (decimal.Decimal, error) {
	var back decimal.Decimal
	var err error
	if o.Side == domain.Buy {
		back, err = pool.Sell(o.AmountOut, true)
	} else {
		back, err = pool.Buy(o.AmountOut, true)
	}
	if err != nil {
		return decimal.Zero, err
	}
	return back.Sub(o.AmountFilled), nil
}
