package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHandler struct {
	mu         sync.Mutex
	eventTypes []string
	received   []shared.DomainEvent
	err        error
	panics     bool
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.panics {
		panic("handler exploded")
	}
	h.mu.Lock()
	h.received = append(h.received, event)
	h.mu.Unlock()
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.received)
}

func newTestEvent(eventType string) shared.DomainEvent {
	event := shared.NewBaseDomainEvent(eventType, "Entry", uuid.New(), uuid.New())
	return &event
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	t.Run("delivers to type-specific handlers", func(t *testing.T) {
		bus := NewInMemoryEventBus(logger)
		handler := &recordingHandler{eventTypes: []string{"EntryEffectuated"}}
		bus.Subscribe(handler)

		require.NoError(t, bus.Publish(ctx, newTestEvent("EntryEffectuated")))
		require.NoError(t, bus.Publish(ctx, newTestEvent("EntryCancelled")))

		assert.Equal(t, 1, handler.count())
	})

	t.Run("delivers everything to wildcard handlers", func(t *testing.T) {
		bus := NewInMemoryEventBus(logger)
		handler := &recordingHandler{}
		bus.Subscribe(handler)

		require.NoError(t, bus.Publish(ctx,
			newTestEvent("AccountCredited"),
			newTestEvent("PayableSettled"),
			newTestEvent("InstallmentPaid"),
		))

		assert.Equal(t, 3, handler.count())
	})

	t.Run("handler errors do not propagate", func(t *testing.T) {
		bus := NewInMemoryEventBus(logger)
		failing := &recordingHandler{eventTypes: []string{"AccountCredited"}, err: errors.New("projection down")}
		healthy := &recordingHandler{eventTypes: []string{"AccountCredited"}}
		bus.Subscribe(failing)
		bus.Subscribe(healthy)

		err := bus.Publish(ctx, newTestEvent("AccountCredited"))
		require.NoError(t, err)
		assert.Equal(t, 1, healthy.count())
	})

	t.Run("handler panics are contained", func(t *testing.T) {
		bus := NewInMemoryEventBus(logger)
		panicking := &recordingHandler{eventTypes: []string{"EntryCreated"}, panics: true}
		healthy := &recordingHandler{eventTypes: []string{"EntryCreated"}}
		bus.Subscribe(panicking)
		bus.Subscribe(healthy)

		require.NotPanics(t, func() {
			_ = bus.Publish(ctx, newTestEvent("EntryCreated"))
		})
		assert.Equal(t, 1, healthy.count())
	})
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	bus := NewInMemoryEventBus(logger)
	handler := &recordingHandler{eventTypes: []string{"PayableCreated"}}
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(ctx, newTestEvent("PayableCreated")))
	assert.Equal(t, 1, handler.count())

	bus.Unsubscribe(handler)
	require.NoError(t, bus.Publish(ctx, newTestEvent("PayableCreated")))
	assert.Equal(t, 1, handler.count())
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, bus.Start(ctx))
	require.NoError(t, bus.Stop(ctx))
}
