package promo

import "context"

type Repository interface {
	Find(ctx context.Context, code string) (*Promo, error)
	Save(ctx context.Context, promo *Promo) error
	// Apply commits a one-time redemption: it appends the usage record and
	// increments the used count in one guarded step. It fails with
	// ErrAlreadyUsed or ErrUsageLimitReached instead of overshooting the cap
	// when redemptions race.
	Apply(ctx context.Context, code, userID string, orderAmount, discount int64) error
	// Release undoes a committed redemption. It exists only as the
	// compensating action for an order creation that was rolled back.
	Release(ctx context.Context, code, userID string) error
}
