package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/inventory"
)

func seedProduct(t *testing.T, r *InventoryRepository, stock int, variants []domain.Variant) {
	t.Helper()
	p, err := domain.NewProduct("p-1", stock, variants)
	require.NoError(t, err)
	require.NoError(t, r.Save(context.Background(), p))
}

func TestConcurrentDecrementNeverOversells(t *testing.T) {
	r := NewInventoryRepository()
	seedProduct(t, r, 5, nil)

	const callers = 10
	var wg sync.WaitGroup
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = r.Decrement(context.Background(), "p-1", 1, "", "")
		}(i)
	}
	wg.Wait()

	succeeded, conflicted := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrInsufficientStock):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 5, conflicted)

	p, err := r.Get(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock, "stock must end at zero, never negative")
}

func TestConcurrentVariantMutationsKeepAggregateConsistent(t *testing.T) {
	r := NewInventoryRepository()
	seedProduct(t, r, 0, []domain.Variant{
		{Size: "S", Stock: 20},
		{Size: "M", Stock: 20},
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			size := "S"
			if i%2 == 0 {
				size = "M"
			}
			_ = r.Decrement(context.Background(), "p-1", 2, size, "")
			_ = r.Restore(context.Background(), "p-1", 1, size, "")
		}(i)
	}
	wg.Wait()

	p, err := r.Get(context.Background(), "p-1")
	require.NoError(t, err)

	sum := 0
	for _, v := range p.Variants {
		sum += v.Stock
	}
	assert.Equal(t, sum, p.Stock, "aggregate must equal the sum of variant stocks")
	assert.Equal(t, 30, p.Stock)
}

func TestDecrementUnknownProduct(t *testing.T) {
	r := NewInventoryRepository()
	err := r.Decrement(context.Background(), "missing", 1, "", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRestoreAfterCancellation(t *testing.T) {
	r := NewInventoryRepository()
	seedProduct(t, r, 0, []domain.Variant{{Size: "M", Color: "black", Stock: 3}})

	require.NoError(t, r.Decrement(context.Background(), "p-1", 2, "M", "black"))
	p, _ := r.Get(context.Background(), "p-1")
	assert.Equal(t, 1, p.Stock)

	require.NoError(t, r.Restore(context.Background(), "p-1", 2, "M", "black"))
	p, _ = r.Get(context.Background(), "p-1")
	assert.Equal(t, 3, p.Stock)
	assert.Equal(t, 3, p.Variants[0].Stock)
}
