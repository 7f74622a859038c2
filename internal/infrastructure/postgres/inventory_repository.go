package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/inventory"
)

// InventoryRepository keeps the product and its variants in one row, so
// both counters always move inside one transaction. Variant-less products
// take a fast path: a single conditional UPDATE guarded on the remaining
// stock, no row lock needed.
type InventoryRepository struct {
	pool *pgxpool.Pool
}

func NewInventoryRepository(pool *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{pool: pool}
}

func (r *InventoryRepository) Get(ctx context.Context, productID string) (*domain.Product, error) {
	return r.fetch(ctx, r.pool, productID, false)
}

func (r *InventoryRepository) Save(ctx context.Context, p *domain.Product) error {
	variants, err := marshalVariants(p.Variants)
	if err != nil {
		return fmt.Errorf("inventory repository: marshal variants: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO inventory_products (id, stock, variants, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET stock = $2, variants = $3, updated_at = $4`,
		p.ID, p.Stock, variants, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("inventory repository: save: %w", err)
	}
	return nil
}

func (r *InventoryRepository) Decrement(ctx context.Context, productID string, quantity int, size, color string) error {
	return r.mutate(ctx, productID, size, func(p *domain.Product) error {
		return p.Deduct(quantity, size, color)
	}, func() error {
		return r.conditionalUpdate(ctx, productID, -quantity)
	})
}

func (r *InventoryRepository) Restore(ctx context.Context, productID string, quantity int, size, color string) error {
	return r.mutate(ctx, productID, size, func(p *domain.Product) error {
		return p.Restore(quantity, size, color)
	}, func() error {
		return r.conditionalUpdate(ctx, productID, quantity)
	})
}

// mutate routes to the row-locked transactional path when a variant is
// addressed. Without a size the single-statement path is tried first; its
// WHERE clause only matches variant-less rows, so a product that carries
// variants falls through to the transactional path, where the aggregate
// rejects the sizeless mutation.
func (r *InventoryRepository) mutate(ctx context.Context, productID, size string, apply func(*domain.Product) error, fast func() error) error {
	if size == "" {
		err := fast()
		if !errors.Is(err, errHasVariants) {
			return err
		}
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("inventory repository: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	p, err := r.fetch(ctx, tx, productID, true)
	if err != nil {
		return err
	}
	if err := apply(p); err != nil {
		return err
	}

	variants, err := marshalVariants(p.Variants)
	if err != nil {
		return fmt.Errorf("inventory repository: marshal variants: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE inventory_products SET stock = $2, variants = $3, updated_at = $4 WHERE id = $1`,
		p.ID, p.Stock, variants, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("inventory repository: update: %w", err)
	}
	return tx.Commit(ctx)
}

// errHasVariants signals mutate to retry on the transactional path.
var errHasVariants = errors.New("inventory repository: product has variants")

// conditionalUpdate is the guarded single-statement path: the WHERE clause
// carries the stock precondition, so concurrent callers can never drive the
// counter negative, and matches only variant-less rows so the aggregate
// never moves without its variants.
func (r *InventoryRepository) conditionalUpdate(ctx context.Context, productID string, delta int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE inventory_products
		 SET stock = stock + $2, updated_at = $3
		 WHERE id = $1 AND stock + $2 >= 0 AND jsonb_array_length(variants) = 0`,
		productID, delta, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("inventory repository: conditional update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var found, hasVariants bool
		err := r.pool.QueryRow(ctx,
			`SELECT TRUE, jsonb_array_length(variants) > 0
			 FROM inventory_products WHERE id = $1`, productID,
		).Scan(&found, &hasVariants)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("inventory repository: inspect: %w", err)
		}
		if hasVariants {
			return errHasVariants
		}
		return domain.ErrInsufficientStock
	}
	return nil
}

// marshalVariants always produces a JSON array so jsonb_array_length is
// well-defined on every row.
func marshalVariants(variants []domain.Variant) ([]byte, error) {
	if variants == nil {
		variants = []domain.Variant{}
	}
	return json.Marshal(variants)
}

type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *InventoryRepository) fetch(ctx context.Context, q queryer, productID string, forUpdate bool) (*domain.Product, error) {
	sql := `SELECT id, stock, variants, updated_at FROM inventory_products WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}

	var (
		p        domain.Product
		variants []byte
	)
	err := q.QueryRow(ctx, sql, productID).Scan(&p.ID, &p.Stock, &variants, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("inventory repository: fetch: %w", err)
	}
	if err := json.Unmarshal(variants, &p.Variants); err != nil {
		return nil, fmt.Errorf("inventory repository: unmarshal variants: %w", err)
	}
	return &p, nil
}
