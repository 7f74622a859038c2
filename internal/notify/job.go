package notify

import "time"

type JobType string

const (
	JobOrderCreated       JobType = "order_created"
	JobOrderStatusUpdated JobType = "order_status_updated"
)

// Job is an ephemeral work item. It carries minimal identifiers only;
// channel senders re-read order state so payloads never go stale.
type Job struct {
	ID      string  `json:"id"`
	Type    JobType `json:"type"`
	OrderID string  `json:"order_id"`
	UserID  string  `json:"user_id"`
	Status  string  `json:"status,omitempty"`
	Note    string  `json:"note,omitempty"`
	Attempt int     `json:"attempt"`
}

// Policy is the retry policy for failed deliveries.
type Policy struct {
	MaxAttempts int
	BackoffBase time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BackoffBase: 2 * time.Second}
}

// Backoff returns the delay before the given (1-based) completed attempt is
// retried: base, 2*base, 4*base, ...
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BackoffBase << (attempt - 1)
}
