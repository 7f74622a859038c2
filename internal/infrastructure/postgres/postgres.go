package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx pool against the configured database.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	gateway_order_id TEXT UNIQUE,
	doc              JSONB NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS orders_user_idx ON orders (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS inventory_products (
	id         TEXT PRIMARY KEY,
	stock      INT NOT NULL CHECK (stock >= 0),
	variants   JSONB NOT NULL DEFAULT '[]',
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS promos (
	code             TEXT PRIMARY KEY,
	kind             TEXT NOT NULL,
	value            BIGINT NOT NULL,
	min_order_amount BIGINT NOT NULL DEFAULT 0,
	max_discount     BIGINT NOT NULL DEFAULT 0,
	usage_limit      INT NOT NULL,
	used_count       INT NOT NULL DEFAULT 0 CHECK (used_count <= usage_limit),
	expires_at       TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS promo_usages (
	code         TEXT NOT NULL REFERENCES promos (code),
	user_id      TEXT NOT NULL,
	order_amount BIGINT NOT NULL,
	discount     BIGINT NOT NULL,
	used_at      TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (code, user_id)
);
`

// EnsureSchema creates the tables this service owns.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}
