package checkout

// IDGenerator mints order identifiers.
type IDGenerator interface {
	NewID() string
}

// SignatureVerifier checks a payment callback against the shared secret.
type SignatureVerifier interface {
	Verify(gatewayOrderID, gatewayPaymentID, signature string) error
}
