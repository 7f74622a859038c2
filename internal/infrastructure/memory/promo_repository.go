package memory

import (
	"context"
	"sync"
	"time"

	domain "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/promo"
)

// PromoRepository guards promo commits with one lock: the per-user check,
// the usage-limit check, the usage append and the counter increment happen
// as a single step, so two near-limit applies cannot both succeed.
type PromoRepository struct {
	mu     sync.RWMutex
	promos map[string]*domain.Promo
}

func NewPromoRepository() *PromoRepository {
	return &PromoRepository{
		promos: make(map[string]*domain.Promo),
	}
}

func (r *PromoRepository) Find(ctx context.Context, code string) (*domain.Promo, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.promos[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *PromoRepository) Save(ctx context.Context, promo *domain.Promo) error {
	_ = ctx
	if promo == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.promos[promo.Code] = promo.Clone()
	return nil
}

func (r *PromoRepository) Apply(ctx context.Context, code, userID string, orderAmount, discount int64) error {
	_ = ctx
	now := time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.promos[code]
	if !ok {
		return domain.ErrNotFound
	}
	if !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt) {
		return domain.ErrExpired
	}
	if p.UsedBy(userID) {
		return domain.ErrAlreadyUsed
	}
	if p.UsedCount >= p.UsageLimit {
		return domain.ErrUsageLimitReached
	}

	p.Usages = append(p.Usages, domain.Usage{
		UserID:      userID,
		OrderAmount: orderAmount,
		Discount:    discount,
		At:          now,
	})
	p.UsedCount++
	return nil
}

func (r *PromoRepository) Release(ctx context.Context, code, userID string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.promos[code]
	if !ok {
		return domain.ErrNotFound
	}
	for i, u := range p.Usages {
		if u.UserID == userID {
			p.Usages = append(p.Usages[:i], p.Usages[i+1:]...)
			if p.UsedCount > 0 {
				p.UsedCount--
			}
			return nil
		}
	}
	return nil
}
