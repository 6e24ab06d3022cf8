package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solvra/batch-clearing/internal/domain"
	"github.com/solvra/batch-clearing/internal/port"
)

var _ port.Repository = (*PgRepo)(nil)

// PgRepo persists the live order set. Orders are stored as JSONB bodies (the
// domain JSON codec carries every field, canonical filled price included)
// with indexed columns for the query paths.
type PgRepo struct {
	pool *pgxpool.Pool
}

// NewPgRepo opens a pool against dsn; call Close when finished.
func NewPgRepo(ctx context.Context, dsn string) (*PgRepo, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	return &PgRepo{pool: pool}, nil
}

func (p *PgRepo) Close(ctx context.Context) {
	if p.pool != nil {
		p.pool.Close()
	}
}

const saveOrderSQL = `
INSERT INTO orders(id, symbol, status, created_at, body)
VALUES($1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE SET
  symbol = EXCLUDED.symbol,
  status = EXCLUDED.status,
  created_at = EXCLUDED.created_at,
  body = EXCLUDED.body
`

func (p *PgRepo) SaveOrder(ctx context.Context, symbol string, o *domain.Order) error {
	if o == nil {
		return errors.New("nil order")
	}
	body, err := json.Marshal(o)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, saveOrderSQL, o.ID, symbol, string(o.Status), o.CreatedAt, body)
	return err
}

// LoadOpenOrders returns pending orders for a symbol ordered by created_at
// ASC (FIFO).
func (p *PgRepo) LoadOpenOrders(ctx context.Context, symbol string) ([]*domain.Order, error) {
	rows, err := p.pool.Query(ctx, `
SELECT body FROM orders
WHERE symbol = $1 AND status = $2
ORDER BY created_at ASC
`, symbol, string(domain.Pending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.Order
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var o domain.Order
		if err := json.Unmarshal(body, &o); err != nil {
			return nil, err
		}
		res = append(res, &o)
	}
	return res, rows.Err()
}

func (p *PgRepo) LoadOrderByID(ctx context.Context, orderID string) (*domain.Order, error) {
	var body []byte
	err := p.pool.QueryRow(ctx, `SELECT body FROM orders WHERE id = $1`, orderID).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New("order not found")
	}
	if err != nil {
		return nil, err
	}
	var o domain.Order
	if err := json.Unmarshal(body, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (p *PgRepo) DeleteOrder(ctx context.Context, symbol, orderID string) error {
	res, err := p.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1 AND symbol = $2`, orderID, symbol)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return errors.New("order not found")
	}
	return nil
}

func (p *PgRepo) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT DISTINCT symbol FROM orders`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (p *PgRepo) BeginTx(ctx context.Context) (port.Tx, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: tx}, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) SaveOrder(ctx context.Context, symbol string, o *domain.Order) error {
	body, err := json.Marshal(o)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx, saveOrderSQL, o.ID, symbol, string(o.Status), o.CreatedAt, body)
	return err
}

func (t *pgTx) DeleteOrder(ctx context.Context, symbol, orderID string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM orders WHERE id = $1 AND symbol = $2`, orderID, symbol)
	return err
}

func (t *pgTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}
