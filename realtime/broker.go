// Package realtime fans full-collection snapshots out to subscribers.
//
// A subscriber always receives the whole current snapshot, never a diff, and
// replaces its local state with it. Once the unsubscribe function returns,
// the subscriber's callback is never invoked again.
package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Loader reads the current snapshot of a topic.
type Loader[T any] func(ctx context.Context) ([]T, error)

type subscriber[T any] struct {
	mu       sync.Mutex
	closed   bool
	loader   Loader[T]
	callback func([]T)
}

func (s *subscriber[T]) deliver(items []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.callback(items)
}

func (s *subscriber[T]) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Broker keeps topic subscriptions. The zero value is not usable; use NewBroker.
type Broker[T any] struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscriber[T]]struct{}
	logger *zap.Logger
}

func NewBroker[T any](logger *zap.Logger) *Broker[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker[T]{
		subs:   make(map[string]map[*subscriber[T]]struct{}),
		logger: logger,
	}
}

// Subscribe registers callback on topic and delivers the initial snapshot
// before returning. The returned function releases the subscription and is
// safe to call more than once.
func (b *Broker[T]) Subscribe(ctx context.Context, topic string, loader Loader[T], callback func([]T)) (func(), error) {
	items, err := loader(ctx)
	if err != nil {
		return nil, err
	}

	sub := &subscriber[T]{loader: loader, callback: callback}
	b.mu.Lock()
	set, ok := b.subs[topic]
	if !ok {
		set = make(map[*subscriber[T]]struct{})
		b.subs[topic] = set
	}
	set[sub] = struct{}{}
	b.mu.Unlock()

	sub.deliver(items)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if set, ok := b.subs[topic]; ok {
				delete(set, sub)
				if len(set) == 0 {
					delete(b.subs, topic)
				}
			}
			b.mu.Unlock()
			// Waits for an in-flight delivery to finish.
			sub.close()
		})
	}, nil
}

// Publish reloads the snapshot for every live subscriber of topic and
// delivers it. Each subscriber reloads with its own loader, so per-user
// topics can share a name space with global ones.
func (b *Broker[T]) Publish(ctx context.Context, topic string) {
	b.mu.RLock()
	subs := make([]*subscriber[T], 0, len(b.subs[topic]))
	for s := range b.subs[topic] {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	for _, s := range subs {
		items, err := s.loader(ctx)
		if err != nil {
			b.logger.Warn("snapshot reload failed", zap.String("topic", topic), zap.Error(err))
			continue
		}
		s.deliver(items)
	}
}

// Subscribers returns the number of live subscribers on topic.
func (b *Broker[T]) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
