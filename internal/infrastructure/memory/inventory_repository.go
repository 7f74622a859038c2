package memory

import (
	"context"
	"sync"

	domain "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/inventory"
)

// InventoryRepository keeps stock in memory. Decrement and Restore perform
// the check and both counter writes under one lock, so concurrent callers
// see a single atomic precondition-guarded update.
type InventoryRepository struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{
		products: make(map[string]*domain.Product),
	}
}

func (r *InventoryRepository) Get(ctx context.Context, productID string) (*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *InventoryRepository) Save(ctx context.Context, product *domain.Product) error {
	_ = ctx
	if product == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.products[product.ID] = product.Clone()
	return nil
}

func (r *InventoryRepository) Decrement(ctx context.Context, productID string, quantity int, size, color string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	return p.Deduct(quantity, size, color)
}

func (r *InventoryRepository) Restore(ctx context.Context, productID string, quantity int, size, color string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	return p.Restore(quantity, size, color)
}
