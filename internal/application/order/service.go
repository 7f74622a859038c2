package order

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	dominv "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/inventory"
	domain "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/order"
	domoutbox "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/outbox"
	"github.com/AravinthSankar1/Serra-Fashion-sub000/internal/pkg/logging"
)

// Service drives order lifecycle after creation: admin status updates,
// customer cancellation with inventory restoration, and queries.
type Service struct {
	orders domain.Repository
	ledger dominv.Ledger
	pub    domoutbox.Publisher
}

func NewService(orders domain.Repository, ledger dominv.Ledger, pub domoutbox.Publisher) *Service {
	return &Service{orders: orders, ledger: ledger, pub: pub}
}

// UpdateStatus applies an admin-driven transition. Validity, including
// terminal-state immutability, is enforced by the domain state machine.
// Moving to cancelled goes through the same compensating path as a customer
// cancellation so stock is restored either way.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, next domain.Status, note string) (*domain.Order, error) {
	if next == domain.StatusCancelled {
		return s.cancel(ctx, orderID, "", note)
	}

	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := o.Transition(next, note); err != nil {
		return nil, err
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("order: update status: %w", err)
	}

	s.publish(ctx, domain.NewOrderStatusUpdatedEvent(o, note))
	logging.FromContext(ctx).Info("order_status_updated",
		zap.String("order_id", o.ID),
		zap.String("status", string(next)),
	)
	return o, nil
}

// Cancel is the customer-initiated path: the caller must own the order and
// the order must still be pending or processing.
func (s *Service) Cancel(ctx context.Context, orderID, userID, reason string) (*domain.Order, error) {
	return s.cancel(ctx, orderID, userID, reason)
}

// cancel restores inventory for every item and only then marks the order
// cancelled. If restoration fails the order is left untouched, so stock is
// never permanently short; lines restored before the failure are
// re-decremented to leave counters exactly as found.
func (s *Service) cancel(ctx context.Context, orderID, userID, reason string) (*domain.Order, error) {
	log := logging.FromContext(ctx).With(zap.String("order_id", orderID))

	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if userID != "" && o.UserID != userID {
		return nil, domain.ErrForbidden
	}
	if !o.Cancellable() {
		if o.Status.Terminal() {
			return nil, domain.ErrTerminalState
		}
		return nil, domain.ErrNotCancellable
	}

	for i, it := range o.Items {
		if err := s.ledger.Restore(ctx, it.ProductID, it.Quantity, it.Size, it.Color); err != nil {
			for j := i - 1; j >= 0; j-- {
				prev := o.Items[j]
				if derr := s.ledger.Decrement(ctx, prev.ProductID, prev.Quantity, prev.Size, prev.Color); derr != nil {
					log.Error("cancel_compensation_failed",
						zap.String("product_id", prev.ProductID),
						zap.Error(derr),
					)
				}
			}
			log.Error("cancel_restore_failed", zap.String("product_id", it.ProductID), zap.Error(err))
			return nil, fmt.Errorf("order: restore stock: %w", err)
		}
	}

	if err := o.Transition(domain.StatusCancelled, reason); err != nil {
		return nil, err
	}
	if o.PaymentStatus == domain.PaymentPaid {
		o.MarkRefunded()
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("order: update: %w", err)
	}

	s.publish(ctx, domain.NewOrderStatusUpdatedEvent(o, reason))
	log.Info("order_cancelled", zap.String("reason", reason))
	return o, nil
}

func (s *Service) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, domain.ErrNotFound
	}
	return s.orders.Get(ctx, orderID)
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

func (s *Service) publish(ctx context.Context, e domoutbox.Event) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, e); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed",
			zap.String("event", e.EventName()),
			zap.Error(err),
		)
	}
}
