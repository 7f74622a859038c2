package notify

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/AravinthSankar1/Serra-Fashion-sub000/internal/pkg/metrics"
)

// Notifier is one delivery channel collaborator (email, webhook, ...).
// Send must tolerate duplicate deliveries of the same job.
type Notifier interface {
	Name() string
	Send(ctx context.Context, job Job) error
}

// Dispatcher runs a worker pool over the queue and fans each job out to all
// channels in parallel. Failed jobs are rescheduled with exponential backoff
// up to the policy's attempt limit, then parked for inspection instead of
// being dropped.
type Dispatcher struct {
	queue    Queue
	channels []Notifier
	policy   Policy
	workers  int
	log      *zap.Logger
	met      *metrics.Metrics

	mu     sync.Mutex
	parked []Job

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDispatcher(queue Queue, channels []Notifier, policy Policy, workers int, logger *zap.Logger, met *metrics.Metrics) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	if policy.MaxAttempts <= 0 {
		policy = DefaultPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if met == nil {
		met = metrics.NewNop()
	}
	return &Dispatcher{
		queue:    queue,
		channels: channels,
		policy:   policy,
		workers:  workers,
		log:      logger.With(zap.String("component", "notify_dispatcher")),
		met:      met,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.cancel = cancel

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(runCtx, i)
	}
	d.log.Info("dispatcher_started", zap.Int("workers", d.workers))
}

func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	d.log.Info("dispatcher_stopped")
}

// Parked returns jobs that exhausted all delivery attempts.
func (d *Dispatcher) Parked() []Job {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Job(nil), d.parked...)
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	log := d.log.With(zap.Int("worker", id))

	for {
		job, err := d.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, ErrQueueClosed) {
				return
			}
			log.Warn("dequeue_failed", zap.Error(err))
			continue
		}
		d.process(ctx, *job)
	}
}

func (d *Dispatcher) process(ctx context.Context, job Job) {
	job.Attempt++
	log := d.log.With(
		zap.String("job_id", job.ID),
		zap.String("type", string(job.Type)),
		zap.String("order_id", job.OrderID),
		zap.Int("attempt", job.Attempt),
	)

	// One channel's failure must not block another: every channel gets its
	// own goroutine and the job only retries for the whole batch.
	errs := make([]error, len(d.channels))
	var wg sync.WaitGroup
	for i, ch := range d.channels {
		wg.Add(1)
		go func(i int, ch Notifier) {
			defer wg.Done()
			if err := ch.Send(ctx, job); err != nil {
				errs[i] = err
				log.Warn("channel_send_failed",
					zap.String("channel", ch.Name()),
					zap.Error(err),
				)
			}
		}(i, ch)
	}
	wg.Wait()

	failed := false
	for _, err := range errs {
		if err != nil {
			failed = true
			break
		}
	}

	if !failed {
		d.met.JobsDispatched.WithLabelValues(string(job.Type), "success").Inc()
		log.Info("job_delivered")
		return
	}

	if job.Attempt >= d.policy.MaxAttempts {
		d.park(job)
		d.met.JobsDispatched.WithLabelValues(string(job.Type), "parked").Inc()
		d.met.JobsParked.Inc()
		log.Warn("job_parked", zap.Int("max_attempts", d.policy.MaxAttempts))
		return
	}

	delay := d.policy.Backoff(job.Attempt)
	if err := d.queue.EnqueueDelayed(ctx, job, delay); err != nil {
		// Requeue failure is terminal for the job; keep it visible.
		d.park(job)
		d.met.JobsParked.Inc()
		log.Error("job_requeue_failed", zap.Error(err))
		return
	}
	d.met.JobRetries.Inc()
	log.Info("job_rescheduled", zap.Duration("delay", delay))
}

func (d *Dispatcher) park(job Job) {
	d.mu.Lock()
	d.parked = append(d.parked, job)
	d.mu.Unlock()
}
