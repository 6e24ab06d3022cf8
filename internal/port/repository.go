package port

import (
	"context"

	"github.com/solvra/batch-clearing/internal/domain"
)

// Repository persists the live order set per symbol. Cleared auction history
// is deliberately not stored; only the current book survives a restart.
type Repository interface {
	SaveOrder(ctx context.Context, symbol string, o *domain.Order) error
	LoadOpenOrders(ctx context.Context, symbol string) ([]*domain.Order, error)
	LoadOrderByID(ctx context.Context, orderID string) (*domain.Order, error)
	DeleteOrder(ctx context.Context, symbol, orderID string) error
	ListSymbols(ctx context.Context) ([]string, error)
	BeginTx(ctx context.Context) (Tx, error)
	Close(ctx context.Context)
}

// Tx batches the order-state writes of one committed clearing run: either
// every fill lands or none does.
type Tx interface {
	SaveOrder(ctx context.Context, symbol string, o *domain.Order) error
	DeleteOrder(ctx context.Context, symbol, orderID string) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
