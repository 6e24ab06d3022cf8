package port

import (
	"context"

	"github.com/solvra/batch-clearing/internal/domain"
)

// Cache holds the latest serialized book snapshot per symbol. Implementations
// must treat a missing entry as (nil, nil).
type Cache interface {
	SetBook(ctx context.Context, symbol string, snap *domain.BookSnapshot) error
	GetBook(ctx context.Context, symbol string) (*domain.BookSnapshot, error)
	Invalidate(ctx context.Context, symbol string) error
}
