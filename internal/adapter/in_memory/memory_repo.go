package in_memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/solvra/batch-clearing/internal/domain"
	"github.com/solvra/batch-clearing/internal/port"
)

var _ port.Repository = (*MemoryRepo)(nil)

type storedOrder struct {
	symbol string
	order  *domain.Order
}

// MemoryRepo keeps the live order set in process memory. Used by tests and as
// the fallback when no Postgres DSN is configured.
type MemoryRepo struct {
	mu     sync.Mutex
	orders map[string]storedOrder
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{orders: make(map[string]storedOrder)}
}

func (r *MemoryRepo) SaveOrder(ctx context.Context, symbol string, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = storedOrder{symbol: symbol, order: o.Clone()}
	return nil
}

func (r *MemoryRepo) LoadOpenOrders(ctx context.Context, symbol string) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*domain.Order
	for _, s := range r.orders {
		if s.symbol == symbol && s.order.Status == domain.Pending {
			res = append(res, s.order.Clone())
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (r *MemoryRepo) LoadOrderByID(ctx context.Context, orderID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.orders[orderID]
	if !ok {
		return nil, errors.New("order not found")
	}
	return s.order.Clone(), nil
}

func (r *MemoryRepo) DeleteOrder(ctx context.Context, symbol, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.orders[orderID]
	if !ok || s.symbol != symbol {
		return errors.New("order not found")
	}
	delete(r.orders, orderID)
	return nil
}

func (r *MemoryRepo) ListSymbols(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]struct{})
	var res []string
	for _, s := range r.orders {
		if _, ok := seen[s.symbol]; !ok {
			seen[s.symbol] = struct{}{}
			res = append(res, s.symbol)
		}
	}
	sort.Strings(res)
	return res, nil
}

func (r *MemoryRepo) BeginTx(ctx context.Context) (port.Tx, error) {
	return &memoryTx{repo: r}, nil
}

func (r *MemoryRepo) Close(ctx context.Context) {}

// memoryTx buffers writes and applies them on Commit.
type memoryTx struct {
	repo *MemoryRepo
	ops  []func()
	done bool
}

func (t *memoryTx) SaveOrder(ctx context.Context, symbol string, o *domain.Order) error {
	clone := o.Clone()
	t.ops = append(t.ops, func() {
		t.repo.orders[clone.ID] = storedOrder{symbol: symbol, order: clone}
	})
	return nil
}

func (t *memoryTx) DeleteOrder(ctx context.Context, symbol, orderID string) error {
	t.ops = append(t.ops, func() {
		delete(t.repo.orders, orderID)
	})
	return nil
}

func (t *memoryTx) Commit(ctx context.Context) error {
	if t.done {
		return errors.New("tx already finished")
	}
	t.done = true
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	for _, op := range t.ops {
		op()
	}
	return nil
}

func (t *memoryTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.ops = nil
	return nil
}
