package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/order"
)

// OrderRepository persists orders as a JSONB document plus the columns the
// service queries on. The unique index on gateway_order_id is what makes
// concurrent callback replays collapse into a single insert.
type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	doc, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("order repository: marshal: %w", err)
	}

	var gatewayID any
	if o.GatewayOrderID != "" {
		gatewayID = o.GatewayOrderID
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO orders (id, user_id, gateway_order_id, doc, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		o.ID, o.UserID, gatewayID, doc, o.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrConflict
		}
		return fmt.Errorf("order repository: insert: %w", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `SELECT doc FROM orders WHERE id = $1`, id))
}

func (r *OrderRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	if gatewayOrderID == "" {
		return nil, domain.ErrNotFound
	}
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT doc FROM orders WHERE gateway_order_id = $1`, gatewayOrderID))
}

func (r *OrderRepository) Update(ctx context.Context, o *domain.Order) error {
	doc, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("order repository: marshal: %w", err)
	}

	var gatewayID any
	if o.GatewayOrderID != "" {
		gatewayID = o.GatewayOrderID
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET doc = $2, gateway_order_id = $3 WHERE id = $1`,
		o.ID, doc, gatewayID,
	)
	if err != nil {
		return fmt.Errorf("order repository: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT doc FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("order repository: list: %w", err)
	}
	defer rows.Close()

	var out []*domain.Order
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("order repository: scan: %w", err)
		}
		var o domain.Order
		if err := json.Unmarshal(doc, &o); err != nil {
			return nil, fmt.Errorf("order repository: unmarshal: %w", err)
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}

func (r *OrderRepository) scanOne(row pgx.Row) (*domain.Order, error) {
	var doc []byte
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("order repository: scan: %w", err)
	}
	var o domain.Order
	if err := json.Unmarshal(doc, &o); err != nil {
		return nil, fmt.Errorf("order repository: unmarshal: %w", err)
	}
	return &o, nil
}
