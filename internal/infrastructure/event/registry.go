package event

import (
	"sync"

	"github.com/maisgenetica/backend/internal/domain/shared"
)

type subscription struct {
	handler shared.EventHandler
	types   map[string]struct{} // nil means every event type
}

func (s subscription) matches(eventType string) bool {
	if s.types == nil {
		return true
	}
	_, ok := s.types[eventType]
	return ok
}

// HandlerRegistry keeps subscriptions in registration order
type HandlerRegistry struct {
	mu   sync.RWMutex
	subs []subscription
}

// NewHandlerRegistry creates a new handler registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{}
}

// Register adds a handler for eventTypes; with none it receives every event.
// Registering the same handler again widens its existing subscription.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.subs {
		if r.subs[i].handler != handler {
			continue
		}
		if len(eventTypes) == 0 {
			r.subs[i].types = nil
		} else if r.subs[i].types != nil {
			for _, t := range eventTypes {
				r.subs[i].types[t] = struct{}{}
			}
		}
		return
	}

	sub := subscription{handler: handler}
	if len(eventTypes) > 0 {
		sub.types = make(map[string]struct{}, len(eventTypes))
		for _, t := range eventTypes {
			sub.types[t] = struct{}{}
		}
	}
	r.subs = append(r.subs, sub)
}

// Unregister removes a handler from every event type
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.subs[:0]
	for _, s := range r.subs {
		if s.handler != handler {
			kept = append(kept, s)
		}
	}
	r.subs = kept
}

// GetHandlers returns the handlers subscribed to eventType
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []shared.EventHandler
	for _, s := range r.subs {
		if s.matches(eventType) {
			result = append(result, s.handler)
		}
	}
	return result
}
