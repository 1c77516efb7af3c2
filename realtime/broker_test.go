package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type store struct {
	mu    sync.Mutex
	items []string
}

func (s *store) add(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, v)
}

func (s *store) load(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.items...), nil
}

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	b := NewBroker[string](nil)
	s := &store{items: []string{"a"}}

	var got [][]string
	unsub, err := b.Subscribe(context.Background(), "t", s.load, func(items []string) {
		got = append(got, items)
	})
	require.NoError(t, err)
	defer unsub()

	require.Len(t, got, 1)
	assert.Equal(t, []string{"a"}, got[0])
}

func TestPublishDeliversFullSnapshot(t *testing.T) {
	b := NewBroker[string](nil)
	s := &store{}

	var last []string
	calls := 0
	unsub, err := b.Subscribe(context.Background(), "t", s.load, func(items []string) {
		last = items
		calls++
	})
	require.NoError(t, err)
	defer unsub()

	s.add("one")
	b.Publish(context.Background(), "t")
	s.add("two")
	b.Publish(context.Background(), "t")

	assert.Equal(t, 3, calls)
	assert.Equal(t, []string{"one", "two"}, last)

	b.Publish(context.Background(), "other")
	assert.Equal(t, 3, calls)
}

func TestNoDeliveryAfterUnsubscribe(t *testing.T) {
	b := NewBroker[string](nil)
	s := &store{}

	var calls atomic.Int32
	unsub, err := b.Subscribe(context.Background(), "t", s.load, func([]string) { calls.Add(1) })
	require.NoError(t, err)
	assert.Equal(t, 1, b.Subscribers("t"))

	unsub()
	unsub()
	assert.Equal(t, 0, b.Subscribers("t"))

	b.Publish(context.Background(), "t")
	assert.Equal(t, int32(1), calls.Load())
}

func TestConcurrentPublishAndUnsubscribe(t *testing.T) {
	b := NewBroker[string](nil)
	s := &store{items: []string{"x"}}

	var released atomic.Bool
	var late atomic.Int32
	unsub, err := b.Subscribe(context.Background(), "t", s.load, func([]string) {
		if released.Load() {
			late.Add(1)
		}
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b.Publish(context.Background(), "t")
			}
		}()
	}
	unsub()
	released.Store(true)
	wg.Wait()

	assert.Zero(t, late.Load())
}

func TestSubscribeLoaderError(t *testing.T) {
	b := NewBroker[string](nil)
	_, err := b.Subscribe(context.Background(), "t", func(context.Context) ([]string, error) {
		return nil, errors.New("store down")
	}, func([]string) {})
	assert.EqualError(t, err, "store down")
	assert.Equal(t, 0, b.Subscribers("t"))
}
