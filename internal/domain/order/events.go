package order

import "time"

// OrderCreatedEvent is emitted once per logical order creation. Payloads
// carry identifiers only; consumers re-read current state when they need it.
type OrderCreatedEvent struct {
	OrderID    string
	UserID     string
	Total      int64
	OccurredAt time.Time
}

func (OrderCreatedEvent) EventName() string { return "order.created" }

func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Total:      o.Total,
		OccurredAt: time.Now().UTC(),
	}
}

// OrderStatusUpdatedEvent is emitted after every accepted status transition,
// customer cancellations included.
type OrderStatusUpdatedEvent struct {
	OrderID    string
	UserID     string
	Status     Status
	Note       string
	OccurredAt time.Time
}

func (OrderStatusUpdatedEvent) EventName() string { return "order.status_updated" }

func NewOrderStatusUpdatedEvent(o *Order, note string) OrderStatusUpdatedEvent {
	return OrderStatusUpdatedEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Status:     o.Status,
		Note:       note,
		OccurredAt: time.Now().UTC(),
	}
}
