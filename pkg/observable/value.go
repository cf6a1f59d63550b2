// Package observable provides a value holder that streams immutable snapshots
// to subscribers. Slow subscribers only ever see the latest snapshot.
package observable

import (
	"context"
	"sync"
)

// Value holds the current snapshot of T. Stored values must not be mutated
// after Store.
type Value[T any] struct {
	mu      sync.RWMutex
	current T
	subs    map[chan T]struct{}
}

// New returns a Value holding initial.
func New[T any](initial T) *Value[T] {
	return &Value[T]{current: initial, subs: make(map[chan T]struct{})}
}

// Load returns the current snapshot.
func (v *Value[T]) Load() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current
}

// Store publishes next to every subscriber.
func (v *Value[T]) Store(next T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.current = next
	for ch := range v.subs {
		offer(ch, next)
	}
}

// Update applies fn to the current snapshot and publishes the result while
// holding the write lock, so concurrent updates do not lose each other.
func (v *Value[T]) Update(fn func(T) T) T {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.current = fn(v.current)
	for ch := range v.subs {
		offer(ch, v.current)
	}
	return v.current
}

// Subscribe returns a channel that first receives the current snapshot and
// then every later one. The channel is closed when ctx is done.
func (v *Value[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	v.mu.Lock()
	ch <- v.current
	v.subs[ch] = struct{}{}
	v.mu.Unlock()

	go func() {
		<-ctx.Done()
		v.mu.Lock()
		delete(v.subs, ch)
		close(ch)
		v.mu.Unlock()
	}()
	return ch
}

// Subscribers returns the number of live subscriptions.
func (v *Value[T]) Subscribers() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.subs)
}

// offer replaces a pending unread snapshot with next.
func offer[T any](ch chan T, next T) {
	select {
	case ch <- next:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- next:
	default:
	}
}
