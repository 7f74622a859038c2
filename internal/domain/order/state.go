package order

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// transitions is the full set of allowed status moves. Delivered and
// cancelled are terminal and have no outgoing edges.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func (s Status) canMoveTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition moves the order to the next status and appends a history
// entry. Terminal states reject every transition, including repeated
// writes of the same status.
func (o *Order) Transition(next Status, note string) error {
	if !next.Valid() {
		return ErrInvalidTransition
	}
	if o.Status.Terminal() {
		return ErrTerminalState
	}
	if !o.Status.canMoveTo(next) {
		return ErrInvalidTransition
	}

	now := time.Now().UTC()
	o.Status = next
	o.History = append(o.History, StatusChange{Status: next, Note: note, At: now})
	o.UpdatedAt = now
	return nil
}

// Cancellable reports whether a customer may still cancel the order.
func (o *Order) Cancellable() bool {
	return o.Status == StatusPending || o.Status == StatusProcessing
}
