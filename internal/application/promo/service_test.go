package promo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/promo"
	"github.com/AravinthSankar1/Serra-Fashion-sub000/internal/infrastructure/memory"
)

func newService(t *testing.T) (*Service, *memory.PromoRepository) {
	t.Helper()
	repo := memory.NewPromoRepository()
	require.NoError(t, repo.Save(context.Background(), &domain.Promo{
		Code:           "SUMMER10",
		Type:           domain.TypePercentage,
		Value:          10,
		MinOrderAmount: 100,
		MaxDiscount:    50,
		UsageLimit:     5,
		ExpiresAt:      time.Now().Add(time.Hour),
	}))
	return NewService(repo), repo
}

func TestValidateComputesCappedDiscount(t *testing.T) {
	svc, _ := newService(t)

	res, err := svc.Validate(context.Background(), "SUMMER10", "u-1", 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(50), res.Discount)
	assert.Equal(t, int64(950), res.FinalAmount)
}

func TestValidateUnknownCode(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Validate(context.Background(), "NOPE", "u-1", 1000)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestValidateNeverConsumesUsage(t *testing.T) {
	svc, repo := newService(t)

	for i := 0; i < 20; i++ {
		_, err := svc.Validate(context.Background(), "SUMMER10", "u-1", 1000)
		require.NoError(t, err)
	}

	p, err := repo.Find(context.Background(), "SUMMER10")
	require.NoError(t, err)
	assert.Zero(t, p.UsedCount, "dry-run validation must not burn the usage budget")
}
