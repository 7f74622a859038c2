package order

import "context"

type Repository interface {
	Insert(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	// FindByGatewayOrderID is the idempotency lookup for payment callbacks.
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*Order, error)
	Update(ctx context.Context, order *Order) error
	ListByUser(ctx context.Context, userID string) ([]*Order, error)
}
