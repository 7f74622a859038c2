package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeChannel struct {
	mu       sync.Mutex
	name     string
	failures int // fail the first N sends
	sent     []Job
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) Send(ctx context.Context, job Job) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures > 0 {
		c.failures--
		return errors.New("send failed")
	}
	c.sent = append(c.sent, job)
	return nil
}

func (c *fakeChannel) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

// fastPolicy keeps backoff delays test-friendly.
func fastPolicy() Policy {
	return Policy{MaxAttempts: 3, BackoffBase: 5 * time.Millisecond}
}

func startDispatcher(t *testing.T, q Queue, channels ...Notifier) *Dispatcher {
	t.Helper()
	d := NewDispatcher(q, channels, fastPolicy(), 2, nil, nil)
	d.Start(context.Background())
	t.Cleanup(func() {
		d.Stop()
		_ = q.Close()
	})
	return d
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestDispatchDeliversToAllChannels(t *testing.T) {
	q := NewMemoryQueue(16)
	email := &fakeChannel{name: "email"}
	webhook := &fakeChannel{name: "webhook"}
	startDispatcher(t, q, email, webhook)

	require.NoError(t, q.Enqueue(context.Background(), Job{ID: "j-1", Type: JobOrderCreated, OrderID: "o-1"}))

	waitFor(t, func() bool { return email.sentCount() == 1 && webhook.sentCount() == 1 },
		"job was not delivered to both channels")
}

func TestDispatchRetriesWithBackoffThenSucceeds(t *testing.T) {
	q := NewMemoryQueue(16)
	flaky := &fakeChannel{name: "email", failures: 2}
	healthy := &fakeChannel{name: "webhook"}
	d := startDispatcher(t, q, flaky, healthy)

	require.NoError(t, q.Enqueue(context.Background(), Job{ID: "j-1", Type: JobOrderCreated, OrderID: "o-1"}))

	waitFor(t, func() bool { return flaky.sentCount() == 1 },
		"flaky channel never received the job after retries")

	// At-least-once: the healthy channel saw the job on every attempt.
	assert.GreaterOrEqual(t, healthy.sentCount(), 3)
	assert.Empty(t, d.Parked())
}

func TestDispatchParksAfterExhaustingAttempts(t *testing.T) {
	q := NewMemoryQueue(16)
	dead := &fakeChannel{name: "email", failures: 1000}
	d := startDispatcher(t, q, dead)

	require.NoError(t, q.Enqueue(context.Background(), Job{ID: "j-1", Type: JobOrderStatusUpdated, OrderID: "o-1"}))

	waitFor(t, func() bool { return len(d.Parked()) == 1 },
		"exhausted job was not parked")

	parked := d.Parked()[0]
	assert.Equal(t, "j-1", parked.ID)
	assert.Equal(t, 3, parked.Attempt)
}

func TestDispatchSuccessIsDiscarded(t *testing.T) {
	q := NewMemoryQueue(16)
	email := &fakeChannel{name: "email"}
	d := startDispatcher(t, q, email)

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(context.Background(), Job{ID: "j", Type: JobOrderCreated}))
	}

	waitFor(t, func() bool { return email.sentCount() == 5 }, "jobs not delivered")
	assert.Empty(t, d.Parked())
}

func TestBackoffSchedule(t *testing.T) {
	p := Policy{MaxAttempts: 3, BackoffBase: 2 * time.Second}

	assert.Equal(t, 2*time.Second, p.Backoff(1))
	assert.Equal(t, 4*time.Second, p.Backoff(2))
	assert.Equal(t, 8*time.Second, p.Backoff(3))
}

func TestMemoryQueueDelayedVisibility(t *testing.T) {
	q := NewMemoryQueue(16)
	defer q.Close()

	require.NoError(t, q.EnqueueDelayed(context.Background(), Job{ID: "j-1"}, 30*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	_, err := q.Dequeue(ctx)
	cancel()
	assert.ErrorIs(t, err, context.DeadlineExceeded, "job must not be visible before its delay")

	ctx, cancel = context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "j-1", job.ID)
}

func TestMemoryQueueTimerGivesUpOnClose(t *testing.T) {
	q := NewMemoryQueue(1)

	// Fill the buffer, then let a delayed job fire with nobody consuming.
	require.NoError(t, q.Enqueue(context.Background(), Job{ID: "j-1"}))
	require.NoError(t, q.EnqueueDelayed(context.Background(), Job{ID: "j-2"}, time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	// The blocked timer goroutine must exit here; goleak verifies it.
	require.NoError(t, q.Close())
}
