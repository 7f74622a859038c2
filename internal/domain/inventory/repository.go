package inventory

import "context"

// Ledger is the only path for stock mutations. Implementations must make
// Decrement and Restore single guarded operations: no caller ever reads a
// counter and writes it back as two separate steps.
type Ledger interface {
	Get(ctx context.Context, productID string) (*Product, error)
	Save(ctx context.Context, product *Product) error
	// Decrement subtracts quantity from the (variant and) aggregate stock
	// only if enough stock remains, otherwise ErrInsufficientStock.
	Decrement(ctx context.Context, productID string, quantity int, size, color string) error
	// Restore adds quantity back, mirroring a prior Decrement.
	Restore(ctx context.Context, productID string, quantity int, size, color string) error
}
