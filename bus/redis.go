package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/rysweet/skwaq-sub005/core"
	"github.com/rysweet/skwaq-sub005/logging"
)

// RedisBus implements Bus over Redis pub/sub so events can cross process
// boundaries. Each event is published to a channel named after its type tag;
// covariant subscriptions use pattern channels over the dotted hierarchy
// (subscribing to "event" listens on "event" and "event.*").
//
// Unlike InMemoryBus, delivery is asynchronous: handlers run on a reader
// goroutine per subscription. Per-handler failure isolation matches the
// in-memory contract.
type RedisBus struct {
	mu      sync.Mutex
	client  *redis.Client
	options *redis.Options
	subs    map[string]*redisSubscription
	logger  logging.Logger
}

type redisSubscription struct {
	evType core.EventType
	pubsub *redis.PubSub
	cancel context.CancelFunc
}

// RedisOptions configures a RedisBus.
type RedisOptions struct {
	Logger logging.Logger
}

// NewRedisBus creates a Redis-backed event bus using the given connection
// options.
func NewRedisBus(opts *redis.Options, optFns ...func(o *RedisOptions)) *RedisBus {
	o := RedisOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&o)
	}
	return &RedisBus{
		client:  redis.NewClient(opts),
		options: opts,
		subs:    make(map[string]*redisSubscription),
		logger:  o.Logger,
	}
}

// Subscribe implements Bus. The handler runs on a dedicated goroutine until
// Unsubscribe or Close.
func (b *RedisBus) Subscribe(t core.EventType, h Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	ps := b.client.PSubscribe(ctx, string(t), string(t)+".*")
	id := core.NewID()
	b.subs[id] = &redisSubscription{evType: t, pubsub: ps, cancel: cancel}

	go b.consume(ctx, id, ps, h)
	return id
}

func (b *RedisBus) consume(ctx context.Context, id string, ps *redis.PubSub, h Handler) {
	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev core.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.logger.Warn("discarding undecodable event", "subscription_id", id, "error", err)
				continue
			}
			b.dispatch(id, ev, h)
		}
	}
}

func (b *RedisBus) dispatch(id string, ev core.Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "subscription_id", id, "event_type", string(ev.Type), "panic", fmt.Sprintf("%v", r))
		}
	}()
	if err := h(ev); err != nil {
		b.logger.Error("event handler failed", "subscription_id", id, "event_type", string(ev.Type), "error", err)
	}
}

// Unsubscribe implements Bus.
func (b *RedisBus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.subs[id]
	if !ok {
		return false
	}
	delete(b.subs, id)
	s.cancel()
	if err := s.pubsub.Close(); err != nil {
		b.logger.Warn("closing redis subscription", "subscription_id", id, "error", err)
	}
	return true
}

// Publish implements Bus. The event is serialized as JSON to the channel
// named by its type tag.
func (b *RedisBus) Publish(ev core.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", ev.ID, err)
	}
	if err := b.client.Publish(context.Background(), string(ev.Type), data).Err(); err != nil {
		return fmt.Errorf("publish event %s: %w", ev.ID, err)
	}
	return nil
}

// Subscribers implements Bus using the locally held subscription set. Remote
// processes' subscriptions are not visible.
func (b *RedisBus) Subscribers(t core.EventType) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var ids []string
	for id, s := range b.subs {
		if t.Is(s.evType) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Close terminates all subscriptions and closes the client.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, s := range b.subs {
		s.cancel()
		_ = s.pubsub.Close()
		delete(b.subs, id)
	}
	return b.client.Close()
}
