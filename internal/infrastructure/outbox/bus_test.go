package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	domoutbox "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/outbox"
)

type testEvent struct{ id string }

func (testEvent) EventName() string { return "test.event" }

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus(nil)

	var mu sync.Mutex
	var got []string
	for i := 0; i < 3; i++ {
		bus.Subscribe("test.event", func(ctx context.Context, e domoutbox.Event) error {
			mu.Lock()
			got = append(got, e.(testEvent).id)
			mu.Unlock()
			return nil
		})
	}

	bus.Start(context.Background())
	require.NoError(t, bus.Publish(context.Background(), testEvent{id: "e-1"}))
	bus.Stop(context.Background())

	assert.Len(t, got, 3)
}

func TestBusSurvivesPanickingHandler(t *testing.T) {
	bus := NewBus(nil)

	delivered := make(chan struct{}, 1)
	bus.Subscribe("test.event", func(ctx context.Context, e domoutbox.Event) error {
		panic("handler exploded")
	})
	bus.Subscribe("test.event", func(ctx context.Context, e domoutbox.Event) error {
		delivered <- struct{}{}
		return nil
	})

	bus.Start(context.Background())
	require.NoError(t, bus.Publish(context.Background(), testEvent{id: "e-1"}))

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("second handler was not invoked after sibling panic")
	}
	bus.Stop(context.Background())
}

func TestBusHandlerErrorDoesNotStopDispatch(t *testing.T) {
	bus := NewBus(nil)

	count := make(chan struct{}, 2)
	bus.Subscribe("test.event", func(ctx context.Context, e domoutbox.Event) error {
		count <- struct{}{}
		return errors.New("delivery failed")
	})

	bus.Start(context.Background())
	require.NoError(t, bus.Publish(context.Background(), testEvent{id: "e-1"}))
	require.NoError(t, bus.Publish(context.Background(), testEvent{id: "e-2"}))
	bus.Stop(context.Background())

	assert.Len(t, count, 2)
}

func TestBusStopDrainsQueue(t *testing.T) {
	bus := NewBus(nil)

	var mu sync.Mutex
	seen := 0
	bus.Subscribe("test.event", func(ctx context.Context, e domoutbox.Event) error {
		mu.Lock()
		seen++
		mu.Unlock()
		return nil
	})

	bus.Start(context.Background())
	for i := 0; i < 50; i++ {
		require.NoError(t, bus.Publish(context.Background(), testEvent{id: "e"}))
	}
	bus.Stop(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 50, seen, "events published before Stop must still be dispatched")
}
