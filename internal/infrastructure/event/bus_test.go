package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/maisgenetica/backend/internal/domain/registration"
	"github.com/maisgenetica/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEvent(eventType string) shared.DomainEvent {
	e := shared.NewBaseDomainEvent(eventType, registration.AggregateType, uuid.New())
	return &e
}

// testHandler records events; block, when set, holds Handle until closed
type testHandler struct {
	mu      sync.Mutex
	handled []shared.DomainEvent
	err     error
	panics  bool
	block   chan struct{}
	ctxErrs []error
}

func newTestHandler() *testHandler {
	return &testHandler{}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.block != nil {
		<-h.block
	}
	if h.panics {
		panic("boom")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	h.ctxErrs = append(h.ctxErrs, ctx.Err())
	return h.err
}

func (h *testHandler) EventTypes() []string { return nil }

func (h *testHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func asAny(handlers []shared.EventHandler) []any {
	out := make([]any, 0, len(handlers))
	for _, h := range handlers {
		out = append(out, h)
	}
	return out
}

func TestInMemoryEventBus_SynchronousBeforeStart(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler()
	bus.Subscribe(handler, registration.EventTypeReceiptGenerated)

	e1 := newTestEvent(registration.EventTypeReceiptGenerated)
	e2 := newTestEvent(registration.EventTypeRegistrationSubmitted)
	require.NoError(t, bus.Publish(context.Background(), e1, e2))

	assert.Equal(t, []shared.DomainEvent{e1}, handler.handled)
}

func TestInMemoryEventBus_HandlerFailuresAreIsolated(t *testing.T) {
	bus := NewInMemoryEventBus(nil)

	failing := newTestHandler()
	failing.err = errors.New("smtp down")
	panicking := newTestHandler()
	panicking.panics = true
	healthy := newTestHandler()

	bus.Subscribe(failing, "A")
	bus.Subscribe(panicking, "A")
	bus.Subscribe(healthy, "A")

	require.NotPanics(t, func() {
		assert.NoError(t, bus.Publish(context.Background(), newTestEvent("A")))
	})
	assert.Equal(t, 1, failing.count())
	assert.Equal(t, 1, healthy.count())
}

func TestInMemoryEventBus_AsyncAfterStart(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler()
	handler.block = make(chan struct{})
	bus.Subscribe(handler, "A")
	require.NoError(t, bus.Start(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bus.Publish(ctx, newTestEvent("A")))
	cancel()

	assert.Equal(t, 0, handler.count(), "publish returns before the handler runs")
	close(handler.block)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, bus.Stop(stopCtx))

	require.Equal(t, 1, handler.count())
	assert.NoError(t, handler.ctxErrs[0], "handler context outlives the request")
}

func TestInMemoryEventBus_StopTimesOut(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler()
	handler.block = make(chan struct{})
	defer close(handler.block)
	bus.Subscribe(handler, "A")
	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("A")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, bus.Stop(ctx), context.DeadlineExceeded)
}

func TestInMemoryEventBus_UsesHandlerEventTypes(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler()
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("anything")))
	assert.Equal(t, 1, handler.count())

	bus.Unsubscribe(handler)
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("anything")))
	assert.Equal(t, 1, handler.count())
}
