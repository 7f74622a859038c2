package notify

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domorder "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/order"
	domoutbox "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/outbox"
	"github.com/AravinthSankar1/Serra-Fashion-sub000/internal/pkg/logging"
)

// Bridge translates order lifecycle events into typed notification jobs.
// It is the only event-bus subscriber that feeds the work queue; handlers
// never touch order, inventory or promo state.
type Bridge struct {
	queue Queue
}

func NewBridge(queue Queue) *Bridge {
	return &Bridge{queue: queue}
}

func (b *Bridge) Register(sub domoutbox.Subscriber) {
	sub.Subscribe(domorder.OrderCreatedEvent{}.EventName(), b.handleOrderCreated)
	sub.Subscribe(domorder.OrderStatusUpdatedEvent{}.EventName(), b.handleStatusUpdated)
}

func (b *Bridge) handleOrderCreated(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.OrderCreatedEvent)
	if !ok {
		return nil
	}
	job := Job{
		ID:      uuid.NewString(),
		Type:    JobOrderCreated,
		OrderID: evt.OrderID,
		UserID:  evt.UserID,
	}
	if err := b.queue.Enqueue(ctx, job); err != nil {
		return err
	}
	logging.FromContext(ctx).Debug("notification_enqueued",
		zap.String("job_id", job.ID),
		zap.String("order_id", evt.OrderID),
	)
	return nil
}

func (b *Bridge) handleStatusUpdated(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.OrderStatusUpdatedEvent)
	if !ok {
		return nil
	}
	return b.queue.Enqueue(ctx, Job{
		ID:      uuid.NewString(),
		Type:    JobOrderStatusUpdated,
		OrderID: evt.OrderID,
		UserID:  evt.UserID,
		Status:  string(evt.Status),
		Note:    evt.Note,
	})
}
