package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/maisgenetica/backend/internal/domain/shared"
)

// EventRecorder is a shared.EventHandler that keeps every event it sees
type EventRecorder struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
}

// NewEventRecorder subscribes to eventTypes; none means all
func NewEventRecorder(eventTypes ...string) *EventRecorder {
	return &EventRecorder{eventTypes: eventTypes}
}

// EventTypes implements shared.EventHandler
func (r *EventRecorder) EventTypes() []string {
	return r.eventTypes
}

// Handle implements shared.EventHandler
func (r *EventRecorder) Handle(_ context.Context, event shared.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handled = append(r.handled, event)
	return nil
}

// Types returns the types of the recorded events in arrival order
func (r *EventRecorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.handled))
	for i, e := range r.handled {
		types[i] = e.EventType()
	}
	return types
}

// Count returns the number of recorded events
func (r *EventRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handled)
}

// WaitForEvents waits until at least n events were recorded
func (r *EventRecorder) WaitForEvents(t *testing.T, n int, timeout time.Duration) bool {
	t.Helper()
	return WaitForCondition(t, func() bool { return r.Count() >= n }, timeout, 10*time.Millisecond)
}

var _ shared.EventHandler = (*EventRecorder)(nil)
