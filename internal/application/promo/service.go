package promo

import (
	"context"
	"time"

	domain "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/promo"
)

// Service exposes the dry-run side of promo codes. Committing a redemption
// happens only inside the checkout saga, never here, so clients may probe
// codes freely without consuming anybody's usage budget.
type Service struct {
	promos domain.Repository
}

func NewService(promos domain.Repository) *Service {
	return &Service{promos: promos}
}

type ValidationResult struct {
	Discount    int64
	FinalAmount int64
}

func (s *Service) Validate(ctx context.Context, code, userID string, orderAmount int64) (*ValidationResult, error) {
	p, err := s.promos.Find(ctx, code)
	if err != nil {
		return nil, err
	}
	discount, err := p.Validate(userID, orderAmount, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return &ValidationResult{
		Discount:    discount,
		FinalAmount: orderAmount - discount,
	}, nil
}
