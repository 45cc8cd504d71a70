package bus

import (
	"fmt"
	"sync"

	"github.com/rysweet/skwaq-sub005/core"
	"github.com/rysweet/skwaq-sub005/logging"
)

// Handler consumes a published event. A returned error is logged by the bus
// and never propagated to the publisher.
type Handler func(ev core.Event) error

// Bus defines publish/subscribe semantics for events.
type Bus interface {
	// Subscribe registers a handler for the given event type and every
	// subtype of it, returning a subscription id.
	Subscribe(t core.EventType, h Handler) string
	// Unsubscribe removes exactly the identified subscription. It reports
	// whether a subscription was removed.
	Unsubscribe(id string) bool
	// Publish delivers ev to all matching subscribers.
	Publish(ev core.Event) error
	// Subscribers returns the ids of subscriptions that would receive an
	// event of the given type, in delivery order.
	Subscribers(t core.EventType) []string
}

type subscription struct {
	id      string
	evType  core.EventType
	handler Handler
}

// InMemoryBus routes events to subscribers within a single process.
//
// Delivery is synchronous: Publish invokes matching handlers in the order
// their subscriptions were registered and returns once all have run. A
// subscriber registered for a supertype receives every event whose type is
// that supertype or any subtype (core.EventType.Is).
type InMemoryBus struct {
	mu     sync.RWMutex
	subs   []subscription
	logger logging.Logger
}

// InMemoryOptions configures an InMemoryBus.
type InMemoryOptions struct {
	// Logger receives handler failure reports. Defaults to NoOpLogger.
	Logger logging.Logger
}

// NewInMemoryBus constructs an empty in-process bus.
func NewInMemoryBus(optFns ...func(o *InMemoryOptions)) *InMemoryBus {
	opts := InMemoryOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &InMemoryBus{logger: opts.Logger}
}

// Subscribe implements Bus.
func (b *InMemoryBus) Subscribe(t core.EventType, h Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := core.NewID()
	b.subs = append(b.subs, subscription{id: id, evType: t, handler: h})
	return id
}

// Unsubscribe implements Bus. Removing one subscription never disturbs the
// relative order of the others.
func (b *InMemoryBus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Publish implements Bus. Handlers run synchronously in registration order;
// an erroring or panicking handler is logged and the remaining handlers
// still run. Publish always returns nil for the in-memory bus.
func (b *InMemoryBus) Publish(ev core.Event) error {
	b.mu.RLock()
	matched := make([]subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if ev.Type.Is(s.evType) {
			matched = append(matched, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range matched {
		b.dispatch(s, ev)
	}
	return nil
}

func (b *InMemoryBus) dispatch(s subscription, ev core.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "subscription_id", s.id, "event_type", string(ev.Type), "panic", fmt.Sprintf("%v", r))
		}
	}()
	if err := s.handler(ev); err != nil {
		b.logger.Error("event handler failed", "subscription_id", s.id, "event_type", string(ev.Type), "error", err)
	}
}

// Subscribers implements Bus.
func (b *InMemoryBus) Subscribers(t core.EventType) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var ids []string
	for _, s := range b.subs {
		if t.Is(s.evType) {
			ids = append(ids, s.id)
		}
	}
	return ids
}
