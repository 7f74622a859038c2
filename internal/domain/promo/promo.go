package promo

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("promo: code not found")
	ErrExpired           = errors.New("promo: code has expired")
	ErrUsageLimitReached = errors.New("promo: usage limit reached")
	ErrAlreadyUsed       = errors.New("promo: code already used by this user")
	ErrBelowMinAmount    = errors.New("promo: order amount below minimum")
	ErrInvalidAmount     = errors.New("promo: order amount must be greater than zero")
)

type Type string

const (
	TypePercentage Type = "percentage"
	TypeFixed      Type = "fixed"
)

// Usage is one committed redemption. At most one exists per user per code.
type Usage struct {
	UserID      string
	OrderAmount int64
	Discount    int64
	At          time.Time
}

type Promo struct {
	Code           string
	Type           Type
	Value          int64
	MinOrderAmount int64
	// MaxDiscount caps percentage discounts; zero means uncapped.
	MaxDiscount int64
	UsageLimit  int
	UsedCount   int
	ExpiresAt   time.Time
	Usages      []Usage
}

// Validate performs a read-only eligibility check and returns the discount
// the code would grant on orderAmount. It never mutates the promo, so
// callers may probe repeatedly without consuming the code.
func (p *Promo) Validate(userID string, orderAmount int64, now time.Time) (int64, error) {
	if orderAmount <= 0 {
		return 0, ErrInvalidAmount
	}
	if !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt) {
		return 0, ErrExpired
	}
	if p.UsedCount >= p.UsageLimit {
		return 0, ErrUsageLimitReached
	}
	if p.UsedBy(userID) {
		return 0, ErrAlreadyUsed
	}
	if orderAmount < p.MinOrderAmount {
		return 0, ErrBelowMinAmount
	}
	return p.Discount(orderAmount), nil
}

// Discount computes the raw discount for orderAmount: the fixed value, or
// the percentage capped at MaxDiscount. Either way the result is clamped so
// it never exceeds the order amount itself.
func (p *Promo) Discount(orderAmount int64) int64 {
	var discount int64
	switch p.Type {
	case TypeFixed:
		discount = p.Value
	case TypePercentage:
		discount = orderAmount * p.Value / 100
		if p.MaxDiscount > 0 && discount > p.MaxDiscount {
			discount = p.MaxDiscount
		}
	}
	if discount > orderAmount {
		discount = orderAmount
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

func (p *Promo) UsedBy(userID string) bool {
	for _, u := range p.Usages {
		if u.UserID == userID {
			return true
		}
	}
	return false
}

func (p *Promo) Clone() *Promo {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Usages = append([]Usage(nil), p.Usages...)
	return &clone
}
