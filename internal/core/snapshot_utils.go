package core

import (
	"context"
	"time"

	"github.com/solvra/batch-clearing/internal/auction"
	"github.com/solvra/batch-clearing/internal/domain"
	"github.com/solvra/batch-clearing/internal/port"
)

func buildSnapshot(symbol string, book *auction.Book) *domain.BookSnapshot {
	snap := &domain.BookSnapshot{
		Symbol:    symbol,
		Version:   book.Version(),
		Timestamp: time.Now(),
	}
	for _, o := range book.Orders() {
		if o.Side == domain.Buy {
			snap.Buys = append(snap.Buys, o.Clone())
		} else {
			snap.Sells = append(snap.Sells, o.Clone())
		}
	}
	return snap
}

// refreshCache pushes the current book snapshot; cache errors are logged by
// the caller's adapter, never fatal here.
func refreshCache(ctx context.Context, cache port.Cache, symbol string, book *auction.Book) {
	if cache == nil {
		return
	}
	_ = cache.SetBook(ctx, symbol, buildSnapshot(symbol, book))
}

// invalidateCache drops the symbol's snapshot instead of overwriting it, for
// mutations that shrink the book.
func invalidateCache(ctx context.Context, cache port.Cache, symbol string) {
	if cache == nil {
		return
	}
	_ = cache.Invalidate(ctx, symbol)
}

func cachedSnapshot(ctx context.Context, cache port.Cache, symbol string) *domain.BookSnapshot {
	if cache == nil {
		return nil
	}
	snap, err := cache.GetBook(ctx, symbol)
	if err != nil || snap == nil {
		return nil
	}
	return snap
}
