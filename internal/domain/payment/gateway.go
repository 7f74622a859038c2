package payment

import (
	"context"
	"errors"
)

var (
	ErrReceiptTooLong     = errors.New("payment: receipt reference exceeds 40 characters")
	ErrInvalidAmount      = errors.New("payment: amount must be greater than zero")
	ErrSignatureMismatch  = errors.New("payment: signature verification failed")
	ErrGatewayUnavailable = errors.New("payment: gateway unavailable")
)

// MaxReceiptLen is the gateway-imposed limit on receipt references.
const MaxReceiptLen = 40

// Intent is the remote payment intent the customer completes externally.
type Intent struct {
	GatewayOrderID string
	Amount         int64
	Currency       string
}

// Gateway is the external payment collaborator contract. The core depends
// on this shape only, never on a gateway-specific request format.
type Gateway interface {
	CreateIntent(ctx context.Context, amount int64, currency, receiptRef string) (*Intent, error)
}
