package order

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("order: not found")
	ErrConflict          = errors.New("order: already exists")
	ErrNoItems           = errors.New("order: at least one item is required")
	ErrInvalidQuantity   = errors.New("order: item quantity must be greater than zero")
	ErrInvalidAmount     = errors.New("order: amount must be zero or greater")
	ErrInvalidDiscount   = errors.New("order: discount must be between zero and subtotal")
	ErrNotCancellable    = errors.New("order: only pending or processing orders can be cancelled")
	ErrForbidden         = errors.New("order: order belongs to a different user")
	ErrAlreadyPaid       = errors.New("order: already paid")
	ErrTerminalState     = errors.New("order: delivered and cancelled orders are immutable")
	ErrInvalidTransition = errors.New("order: invalid status transition")
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	MethodCard PaymentMethod = "card"
	MethodCOD  PaymentMethod = "cod"
)

// Item is a line-item snapshot taken at checkout. Unit prices are frozen
// here and never re-read from the catalog.
type Item struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice int64
	Size      string
	Color     string
}

type Address struct {
	Name     string
	Line1    string
	Line2    string
	City     string
	Country  string
	Postcode string
	Phone    string
}

// StatusChange is one append-only status history entry.
type StatusChange struct {
	Status Status
	Note   string
	At     time.Time
}

type Order struct {
	ID               string
	UserID           string
	Items            []Item
	Subtotal         int64
	Discount         int64
	PromoCode        string
	Total            int64
	ShippingAddress  Address
	Status           Status
	PaymentStatus    PaymentStatus
	PaymentMethod    PaymentMethod
	GatewayOrderID   string
	GatewayPaymentID string
	PaymentVerified  bool
	History          []StatusChange
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func New(id, userID string, items []Item, addr Address, method PaymentMethod, promoCode string, subtotal, discount int64) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if it.UnitPrice < 0 {
			return nil, ErrInvalidAmount
		}
	}
	if subtotal < 0 {
		return nil, ErrInvalidAmount
	}
	if discount < 0 || discount > subtotal {
		return nil, ErrInvalidDiscount
	}

	now := time.Now().UTC()
	o := &Order{
		ID:              id,
		UserID:          userID,
		Items:           append([]Item(nil), items...),
		Subtotal:        subtotal,
		Discount:        discount,
		PromoCode:       promoCode,
		Total:           subtotal - discount,
		ShippingAddress: addr,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		PaymentMethod:   method,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	o.History = append(o.History, StatusChange{Status: StatusPending, Note: "order placed", At: now})
	return o, nil
}

// MarkPaid records a verified gateway payment. Marking an already paid
// order again is a no-op so callback replays stay idempotent.
func (o *Order) MarkPaid(gatewayOrderID, gatewayPaymentID string) {
	o.PaymentStatus = PaymentPaid
	o.PaymentVerified = true
	o.GatewayOrderID = gatewayOrderID
	o.GatewayPaymentID = gatewayPaymentID
	o.touch()
}

func (o *Order) MarkRefunded() {
	o.PaymentStatus = PaymentRefunded
	o.touch()
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]Item(nil), o.Items...)
	clone.History = append([]StatusChange(nil), o.History...)
	return &clone
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
