package notifier

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	domain "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/order"
	"github.com/AravinthSankar1/Serra-Fashion-sub000/internal/notify"
)

// EmailNotifier sends customer emails for order lifecycle jobs. It re-reads
// the order when composing so content reflects current state rather than a
// snapshot from enqueue time. Reads only; it never mutates core aggregates.
type EmailNotifier struct {
	orders domain.Repository
	sender EmailSender
	log    *zap.Logger
}

// EmailSender is the outbound mail collaborator (SMTP relay, SES, ...).
type EmailSender interface {
	Send(ctx context.Context, userID, subject, body string) error
}

func NewEmailNotifier(orders domain.Repository, sender EmailSender, logger *zap.Logger) *EmailNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailNotifier{orders: orders, sender: sender, log: logger}
}

func (n *EmailNotifier) Name() string { return "email" }

func (n *EmailNotifier) Send(ctx context.Context, job notify.Job) error {
	o, err := n.orders.Get(ctx, job.OrderID)
	if err != nil {
		return fmt.Errorf("email: load order %s: %w", job.OrderID, err)
	}

	var subject, body string
	switch job.Type {
	case notify.JobOrderCreated:
		subject = fmt.Sprintf("Order %s confirmed", o.ID)
		body = fmt.Sprintf("Thanks for your order. Total: %d. Items: %d.", o.Total, len(o.Items))
	case notify.JobOrderStatusUpdated:
		subject = fmt.Sprintf("Order %s is now %s", o.ID, job.Status)
		body = job.Note
	default:
		n.log.Warn("email_unknown_job_type", zap.String("type", string(job.Type)))
		return nil
	}

	return n.sender.Send(ctx, o.UserID, subject, body)
}

// LogEmailSender is the default sender for environments without an SMTP
// relay configured.
type LogEmailSender struct {
	Log *zap.Logger
}

func (s *LogEmailSender) Send(ctx context.Context, userID, subject, body string) error {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("email_sent",
		zap.String("user_id", userID),
		zap.String("subject", subject),
	)
	return nil
}
