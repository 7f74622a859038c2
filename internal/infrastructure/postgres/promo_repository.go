package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/promo"
)

// PromoRepository enforces the one-per-user constraint with the usages
// primary key and the global cap with a guarded counter increment, both in
// one transaction: racing redemptions cannot push used_count past the cap.
type PromoRepository struct {
	pool *pgxpool.Pool
}

func NewPromoRepository(pool *pgxpool.Pool) *PromoRepository {
	return &PromoRepository{pool: pool}
}

func (r *PromoRepository) Find(ctx context.Context, code string) (*domain.Promo, error) {
	var (
		p         domain.Promo
		expiresAt *time.Time
	)
	err := r.pool.QueryRow(ctx,
		`SELECT code, kind, value, min_order_amount, max_discount, usage_limit, used_count, expires_at
		 FROM promos WHERE code = $1`, code,
	).Scan(&p.Code, &p.Type, &p.Value, &p.MinOrderAmount, &p.MaxDiscount, &p.UsageLimit, &p.UsedCount, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("promo repository: find: %w", err)
	}
	if expiresAt != nil {
		p.ExpiresAt = *expiresAt
	}

	rows, err := r.pool.Query(ctx,
		`SELECT user_id, order_amount, discount, used_at FROM promo_usages WHERE code = $1`, code)
	if err != nil {
		return nil, fmt.Errorf("promo repository: usages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var u domain.Usage
		if err := rows.Scan(&u.UserID, &u.OrderAmount, &u.Discount, &u.At); err != nil {
			return nil, fmt.Errorf("promo repository: scan usage: %w", err)
		}
		p.Usages = append(p.Usages, u)
	}
	return &p, rows.Err()
}

func (r *PromoRepository) Save(ctx context.Context, p *domain.Promo) error {
	var expiresAt *time.Time
	if !p.ExpiresAt.IsZero() {
		expiresAt = &p.ExpiresAt
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO promos (code, kind, value, min_order_amount, max_discount, usage_limit, used_count, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (code) DO UPDATE SET kind = $2, value = $3, min_order_amount = $4,
		   max_discount = $5, usage_limit = $6, expires_at = $8`,
		p.Code, p.Type, p.Value, p.MinOrderAmount, p.MaxDiscount, p.UsageLimit, p.UsedCount, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("promo repository: save: %w", err)
	}
	return nil
}

func (r *PromoRepository) Apply(ctx context.Context, code, userID string, orderAmount, discount int64) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("promo repository: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Guarded increment first: only a promo with headroom and a live expiry
	// accepts the redemption.
	tag, err := tx.Exec(ctx,
		`UPDATE promos SET used_count = used_count + 1
		 WHERE code = $1
		   AND used_count < usage_limit
		   AND (expires_at IS NULL OR expires_at > now())`,
		code,
	)
	if err != nil {
		return fmt.Errorf("promo repository: increment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.applyFailure(ctx, code)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO promo_usages (code, user_id, order_amount, discount, used_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		code, userID, orderAmount, discount, time.Now().UTC(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyUsed
		}
		return fmt.Errorf("promo repository: record usage: %w", err)
	}

	return tx.Commit(ctx)
}

// applyFailure works out which guard rejected the redemption.
func (r *PromoRepository) applyFailure(ctx context.Context, code string) error {
	var (
		usageLimit, usedCount int
		expiresAt             *time.Time
	)
	err := r.pool.QueryRow(ctx,
		`SELECT usage_limit, used_count, expires_at FROM promos WHERE code = $1`, code,
	).Scan(&usageLimit, &usedCount, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("promo repository: inspect: %w", err)
	}
	if expiresAt != nil && time.Now().After(*expiresAt) {
		return domain.ErrExpired
	}
	return domain.ErrUsageLimitReached
}

func (r *PromoRepository) Release(ctx context.Context, code, userID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("promo repository: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`DELETE FROM promo_usages WHERE code = $1 AND user_id = $2`, code, userID)
	if err != nil {
		return fmt.Errorf("promo repository: delete usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	if _, err := tx.Exec(ctx,
		`UPDATE promos SET used_count = used_count - 1 WHERE code = $1 AND used_count > 0`, code,
	); err != nil {
		return fmt.Errorf("promo repository: decrement: %w", err)
	}
	return tx.Commit(ctx)
}
