package messaging

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trailroom/trailroom-hub/internal/domain/shared"
)

func TestPublishRunsHandlersInOrder(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultEventBusConfig())
	defer bus.Close()

	var order []string
	assert.NoError(t, bus.Subscribe(shared.EventMissionGraded, func(shared.Event) error {
		order = append(order, "first")
		return nil
	}))
	assert.NoError(t, bus.Subscribe(shared.EventMissionGraded, func(shared.Event) error {
		order = append(order, "second")
		return nil
	}))
	assert.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		order = append(order, "global")
		return nil
	}))

	// Synchronous mode: when Publish returns, all handlers have run, typed
	// subscribers before the global ones.
	assert.NoError(t, bus.Publish(shared.NewMissionGradedEvent("mission-1", "room-1")))
	assert.Equal(t, []string{"first", "second", "global"}, order)
}

func TestPublishIgnoresUnrelatedTypes(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultEventBusConfig())
	defer bus.Close()

	calls := 0
	assert.NoError(t, bus.Subscribe(shared.EventGradeRecorded, func(shared.Event) error {
		calls++
		return nil
	}))

	assert.NoError(t, bus.Publish(shared.NewMissionGradedEvent("mission-1", "room-1")))
	assert.Equal(t, 0, calls)
}

func TestPublishSwallowsHandlerErrors(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultEventBusConfig())
	defer bus.Close()

	var order []string
	assert.NoError(t, bus.Subscribe(shared.EventMissionGraded, func(shared.Event) error {
		order = append(order, "failing")
		return errors.New("boom")
	}))
	assert.NoError(t, bus.Subscribe(shared.EventMissionGraded, func(shared.Event) error {
		order = append(order, "after")
		return nil
	}))

	// The write behind the event already committed; a handler failure must
	// not surface as a publish failure or stop later handlers.
	assert.NoError(t, bus.Publish(shared.NewMissionGradedEvent("mission-1", "room-1")))
	assert.Equal(t, []string{"failing", "after"}, order)
}

func TestAsyncModeDrainsOnClose(t *testing.T) {
	cfg := DefaultEventBusConfig()
	cfg.AsyncMode = true
	cfg.WorkerPoolSize = 2
	bus := NewInMemoryEventBus(cfg)

	var mu sync.Mutex
	handled := 0
	assert.NoError(t, bus.Subscribe(shared.EventMissionGraded, func(shared.Event) error {
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		handled++
		mu.Unlock()
		return nil
	}))

	for i := 0; i < 4; i++ {
		assert.NoError(t, bus.Publish(shared.NewMissionGradedEvent("mission-1", "room-1")))
	}

	// Close waits for in-flight handlers.
	assert.NoError(t, bus.Close())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 4, handled)
}

func TestClosedBusRejectsOperations(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultEventBusConfig())
	assert.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(shared.NewMissionGradedEvent("mission-1", "room-1")), ErrEventBusClosed)
	assert.ErrorIs(t, bus.Subscribe(shared.EventMissionGraded, func(shared.Event) error { return nil }), ErrEventBusClosed)

	// Closing twice is harmless.
	assert.NoError(t, bus.Close())
}

func TestSubscribeRejectsNilHandler(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultEventBusConfig())
	defer bus.Close()

	assert.Error(t, bus.Subscribe(shared.EventMissionGraded, nil))
	assert.Error(t, bus.SubscribeAll(nil))
	assert.Error(t, bus.Publish(nil))
}

func TestMetricsTrackPublishesAndHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultEventBusConfig())
	defer bus.Close()

	assert.NoError(t, bus.Subscribe(shared.EventMissionGraded, func(shared.Event) error { return nil }))
	assert.NoError(t, bus.Subscribe(shared.EventMissionGraded, func(shared.Event) error { return errors.New("boom") }))

	assert.NoError(t, bus.Publish(shared.NewMissionGradedEvent("mission-1", "room-1")))

	snapshot := bus.Metrics().Snapshot()
	assert.Equal(t, int64(1), snapshot.TotalPublished)
	assert.Equal(t, int64(2), snapshot.TotalHandlerExecs)
	assert.Equal(t, 0.5, snapshot.HandlerSuccessRate)
}
