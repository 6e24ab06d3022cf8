package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/solvra/batch-clearing/internal/auction"
	"github.com/solvra/batch-clearing/internal/domain"
	"github.com/solvra/batch-clearing/internal/port"
)

var (
	ErrSymbolNotFound = errors.New("symbol not found")
	ErrOrderNotFound  = errors.New("order not found")
	ErrPoolNotFound   = errors.New("pool not found")
)

// Strategy selects the solver objective for a liquidity-augmented run.
type Strategy string

const (
	StrategyBase       Strategy = "BASE"
	StrategyCFMMProfit Strategy = "CFMM_PROFIT"
	StrategyCFMMVolume Strategy = "CFMM_VOLUME"
)

// Options tune the grid searches; zero values fall back to the auction
// package defaults.
type Options struct {
	PriceResolution int
	SolveResolution int
	LimitBias       decimal.Decimal
}

// SolveParams describes one solver run over a symbol's book.
type SolveParams struct {
	Strategy    Strategy
	TargetPrice decimal.Decimal // StrategyBase only; CFMM strategies derive it
	BuyBudget   decimal.Decimal
	SellBudget  decimal.Decimal
	Resolution  int // 0 means the configured default
}

// Engine owns the live books and pools per symbol and drives clearing and
// solving over them. The core algorithms stay synchronous; the engine
// serializes access with one mutex.
type Engine struct {
	repo  port.Repository
	cache port.Cache
	log   *zap.Logger
	opts  Options

	mu    sync.Mutex
	books map[string]*auction.Book
	pools map[string]*auction.CFMM
}

func NewEngine(repo port.Repository, cache port.Cache, log *zap.Logger, opts Options) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.PriceResolution <= 0 {
		opts.PriceResolution = auction.DefaultPriceResolution
	}
	if opts.SolveResolution <= 0 {
		opts.SolveResolution = auction.DefaultSolveResolution
	}
	if opts.LimitBias.IsZero() {
		opts.LimitBias = auction.DefaultLimitBias
	}
	return &Engine{
		repo:  repo,
		cache: cache,
		log:   log,
		opts:  opts,
		books: make(map[string]*auction.Book),
		pools: make(map[string]*auction.CFMM),
	}
}

// LoadOpenOrders restores the live books from the repository on startup. With
// no symbols given, every symbol the repository knows is loaded.
func (e *Engine) LoadOpenOrders(ctx context.Context, symbols []string) error {
	if e.repo == nil {
		return nil
	}
	if len(symbols) == 0 {
		var err error
		symbols, err = e.repo.ListSymbols(ctx)
		if err != nil {
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, symbol := range symbols {
		orders, err := e.repo.LoadOpenOrders(ctx, symbol)
		if err != nil {
			return fmt.Errorf("load %s: %w", symbol, err)
		}
		book := e.getOrCreateBook(symbol)
		for _, o := range orders {
			book.Append(o)
		}
		e.log.Info("book restored",
			zap.String("symbol", symbol),
			zap.Int("orders", book.Len()))
	}
	return nil
}

// SubmitOrder validates and appends a new order to the symbol's book.
func (e *Engine) SubmitOrder(ctx context.Context, symbol string, o *domain.Order) error {
	if o.ID == auction.SyntheticOrderID {
		return domain.Validationf("submit", "order id %q is reserved", o.ID)
	}
	if !o.AmountIn.IsPositive() {
		return domain.Validationf("submit", "amount in must be positive, got %s", o.AmountIn)
	}
	if !o.LimitPrice.IsPositive() {
		return domain.Validationf("submit", "limit price must be positive, got %s", o.LimitPrice)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	book := e.getOrCreateBook(symbol)
	if book.ByID(o.ID) != nil {
		return domain.Validationf("submit", "duplicate order id %s", o.ID)
	}
	book.Append(o)

	if e.repo != nil {
		if err := e.repo.SaveOrder(ctx, symbol, o); err != nil {
			book.Remove(o.ID)
			return fmt.Errorf("persist order %s: %w", o.ID, err)
		}
	}
	refreshCache(ctx, e.cache, symbol, book)

	e.log.Debug("order submitted",
		zap.String("symbol", symbol),
		zap.String("order_id", o.ID),
		zap.String("side", string(o.Side)))
	return nil
}

// CancelOrder removes a pending order from the live book.
func (e *Engine) CancelOrder(ctx context.Context, symbol, orderID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	book, ok := e.books[symbol]
	if !ok {
		return ErrSymbolNotFound
	}
	if !book.Remove(orderID) {
		return ErrOrderNotFound
	}
	if e.repo != nil {
		if err := e.repo.DeleteOrder(ctx, symbol, orderID); err != nil {
			return err
		}
	}
	invalidateCache(ctx, e.cache, symbol)
	return nil
}

// GetOrder finds an order across the live books.
func (e *Engine) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	e.mu.Lock()
	for _, book := range e.books {
		if o := book.ByID(orderID); o != nil {
			e.mu.Unlock()
			return o.Clone(), nil
		}
	}
	e.mu.Unlock()

	if e.repo != nil {
		return e.repo.LoadOrderByID(ctx, orderID)
	}
	return nil, ErrOrderNotFound
}

// Snapshot serializes the current book, preferring the cache when it is
// current.
func (e *Engine) Snapshot(ctx context.Context, symbol string) (*domain.BookSnapshot, error) {
	e.mu.Lock()
	book, ok := e.books[symbol]
	if !ok {
		e.mu.Unlock()
		return nil, ErrSymbolNotFound
	}
	version := book.Version()
	snap := buildSnapshot(symbol, book)
	e.mu.Unlock()

	if cached := cachedSnapshot(ctx, e.cache, symbol); cached != nil && cached.Version == version {
		return cached, nil
	}
	return snap, nil
}

// Clear runs one batch auction over the symbol's book. With a nil price the
// uniform clearing price is discovered first. When commit is set the fills
// are settled back into the live book and the repository: fully filled orders
// leave the book, a partial fill is replaced by its pending remainder.
func (e *Engine) Clear(ctx context.Context, symbol string, price *decimal.Decimal, commit bool) (*domain.Solution, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	book, ok := e.books[symbol]
	if !ok {
		return nil, ErrSymbolNotFound
	}

	target, err := e.clearingPrice(book, price)
	if err != nil {
		return nil, err
	}
	solution, err := auction.MatchOrders(book, target)
	if err != nil {
		return nil, err
	}

	e.log.Info("auction cleared",
		zap.String("symbol", symbol),
		zap.String("price", target.String()),
		zap.String("buy_volume", solution.BuyVolume.String()),
		zap.String("sell_volume", solution.SellVolume.String()),
		zap.Int("orders", len(solution.Orders)),
		zap.Bool("commit", commit))

	if !commit {
		return solution, nil
	}
	if err := e.settle(ctx, symbol, book, solution); err != nil {
		return nil, err
	}
	return solution, nil
}

// Solve sizes a synthetic counter-order against the symbol's book, optionally
// quoting the symbol's pool, and returns the best solution found.
func (e *Engine) Solve(ctx context.Context, symbol string, params SolveParams) (*domain.Solution, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	book, ok := e.books[symbol]
	if !ok {
		return nil, ErrSymbolNotFound
	}

	var solver *auction.Solver
	var err error
	switch params.Strategy {
	case StrategyBase:
		solver, err = auction.NewSolver(book, params.TargetPrice, params.BuyBudget, params.SellBudget)
	case StrategyCFMMProfit:
		pool, ok := e.pools[symbol]
		if !ok {
			return nil, ErrPoolNotFound
		}
		solver, err = auction.NewCFMMProfitSolver(book, pool, params.BuyBudget, params.SellBudget, e.opts.LimitBias)
	case StrategyCFMMVolume:
		pool, ok := e.pools[symbol]
		if !ok {
			return nil, ErrPoolNotFound
		}
		solver, err = auction.NewCFMMVolumeSolver(book, pool, params.BuyBudget, params.SellBudget, e.opts.LimitBias)
	default:
		return nil, domain.Validationf("solve", "unknown strategy %q", params.Strategy)
	}
	if err != nil {
		return nil, err
	}

	resolution := params.Resolution
	if resolution <= 0 {
		resolution = e.opts.SolveResolution
	}
	solution, err := solver.Solve(ctx, resolution)
	if err != nil {
		return nil, err
	}

	e.log.Info("solver finished",
		zap.String("symbol", symbol),
		zap.String("strategy", string(params.Strategy)),
		zap.Bool("candidate_matched", solver.Best() != nil),
		zap.String("match_volume", solution.MatchVolume().String()))
	return solution, nil
}

// RegisterPool attaches a constant-product pool to the symbol.
func (e *Engine) RegisterPool(symbol string, r0, r1, fee decimal.Decimal) error {
	pool, err := auction.NewCFMM(r0, r1, fee)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.pools[symbol] = pool
	e.mu.Unlock()
	e.log.Info("pool registered",
		zap.String("symbol", symbol),
		zap.String("price", pool.Price().String()))
	return nil
}

// QuotePool prices a trade against the symbol's pool without state change.
func (e *Engine) QuotePool(symbol string, delta decimal.Decimal, dir port.Direction) (decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pool, ok := e.pools[symbol]
	if !ok {
		return decimal.Zero, ErrPoolNotFound
	}
	return pool.Quote(delta, dir)
}

// ExecutePool commits a trade against the symbol's pool.
func (e *Engine) ExecutePool(symbol string, delta decimal.Decimal, dir port.Direction) (decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pool, ok := e.pools[symbol]
	if !ok {
		return decimal.Zero, ErrPoolNotFound
	}
	out, err := pool.Execute(delta, dir)
	if err != nil {
		return decimal.Zero, err
	}
	e.log.Info("pool trade executed",
		zap.String("symbol", symbol),
		zap.String("direction", string(dir)),
		zap.String("in", delta.String()),
		zap.String("out", out.String()))
	return out, nil
}

// PoolPrice returns the instantaneous marginal price of the symbol's pool.
func (e *Engine) PoolPrice(symbol string) (decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pool, ok := e.pools[symbol]
	if !ok {
		return decimal.Zero, ErrPoolNotFound
	}
	return pool.Price(), nil
}

func (e *Engine) clearingPrice(book *auction.Book, price *decimal.Decimal) (decimal.Decimal, error) {
	if price != nil {
		if !price.IsPositive() {
			return decimal.Zero, domain.Validationf("clear", "price must be positive, got %s", price)
		}
		return *price, nil
	}
	return book.OptimalPrice(e.opts.PriceResolution)
}

// settle writes the fills of a committed auction back into the live book and
// the repository in one transaction.
func (e *Engine) settle(ctx context.Context, symbol string, book *auction.Book, solution *domain.Solution) error {
	apply := func(tx port.Tx) error {
		for _, filled := range solution.Orders {
			if filled.ID == auction.SyntheticOrderID {
				continue
			}
			switch filled.Status {
			case domain.Filled:
				book.Remove(filled.ID)
				if tx != nil {
					if err := tx.SaveOrder(ctx, symbol, filled); err != nil {
						return err
					}
				}
			case domain.PartiallyFilled:
				remainder := domain.NewOrderWithID(filled.ID, filled.Side, filled.Remaining(), filled.LimitPrice)
				// keep the original submission time so the order holds its
				// FIFO position across restarts
				remainder.CreatedAt = filled.CreatedAt
				book.Remove(filled.ID)
				book.Append(remainder)
				if tx != nil {
					if err := tx.SaveOrder(ctx, symbol, remainder); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}

	var err error
	if e.repo != nil {
		err = withTx(ctx, e.repo, apply)
	} else {
		err = apply(nil)
	}
	if err != nil {
		return fmt.Errorf("settle %s: %w", symbol, err)
	}
	refreshCache(ctx, e.cache, symbol, book)
	return nil
}

func (e *Engine) getOrCreateBook(symbol string) *auction.Book {
	book, ok := e.books[symbol]
	if !ok {
		book = auction.NewBook()
		e.books[symbol] = book
	}
	return book
}
