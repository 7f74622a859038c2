package id

import "github.com/google/uuid"

// UUIDGenerator mints v4 UUIDs for orders and jobs.
type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}
