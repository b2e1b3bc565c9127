package worker

import (
	"context"
	"sync"

	"github.com/novasocial/nova-consistency/internal/model"
)

// HandlerFunc processes one delivered event. It runs only after the
// idempotency claim succeeded, so its side effects execute at most once per
// event across all consumer instances.
type HandlerFunc func(ctx context.Context, env model.Envelope) error

// Registry maps event types to handlers. Registration happens at startup;
// dispatch is read-only and safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string][]HandlerFunc
	catchAll []HandlerFunc
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string][]HandlerFunc)}
}

// On registers a handler for one event type, e.g. "user.created".
func (r *Registry) On(eventType string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[eventType] = append(r.handlers[eventType], h)
}

// OnAny registers a handler invoked for every event type.
func (r *Registry) OnAny(h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catchAll = append(r.catchAll, h)
}

// Dispatch runs the catch-all handlers, then the type-specific ones.
// The first handler error aborts the chain.
func (r *Registry) Dispatch(ctx context.Context, env model.Envelope) error {
	r.mu.RLock()
	hs := make([]HandlerFunc, 0, len(r.catchAll)+len(r.handlers[env.EventType]))
	hs = append(hs, r.catchAll...)
	hs = append(hs, r.handlers[env.EventType]...)
	r.mu.RUnlock()

	for _, h := range hs {
		if err := h(ctx, env); err != nil {
			return err
		}
	}
	return nil
}
