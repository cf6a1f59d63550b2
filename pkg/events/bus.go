// Package events implements the lifecycle event bus. Observers register
// under a string key per event kind; delivery is synchronous and in
// registration order.
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/glorpus-work/apkstash/internal/logger"
	"github.com/google/uuid"
)

// Kind identifies a lifecycle event.
type Kind int

const (
	// KindAny is a wildcard for Register, Unregister and Emit. It is never
	// delivered to an observer.
	KindAny Kind = iota
	KindSaved
	KindDeleted
	KindInstalled
	KindUninstalled
)

// Kinds lists the concrete kinds in delivery order for KindAny emits.
var Kinds = []Kind{KindSaved, KindDeleted, KindInstalled, KindUninstalled}

func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindSaved:
		return "saved"
	case KindDeleted:
		return "deleted"
	case KindInstalled:
		return "installed"
	case KindUninstalled:
		return "uninstalled"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for _, k := range append([]Kind{KindAny}, Kinds...) {
		if k.String() == s {
			return k, nil
		}
	}
	return KindAny, fmt.Errorf("unknown event kind %q", s)
}

// Event is a lifecycle notification. Value is usually a package name or an
// archive URI.
type Event struct {
	Kind  Kind
	Value any
}

// Observer receives events.
type Observer func(Event)

type registration struct {
	key string
	fn  Observer
}

// Bus fans events out to observers. The zero value is not usable; call NewBus.
type Bus struct {
	mu        sync.Mutex
	observers map[Kind][]registration
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{observers: make(map[Kind][]registration)}
}

func expand(kinds []Kind) []Kind {
	if len(kinds) == 0 {
		return Kinds
	}
	for _, k := range kinds {
		if k == KindAny {
			return Kinds
		}
	}
	return kinds
}

// Register adds fn under key for each kind. Registering a key that is already
// present for a kind leaves the existing registration in place. No kinds, or
// KindAny, means every kind.
func (b *Bus) Register(key string, fn Observer, kinds ...Kind) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, kind := range expand(kinds) {
		if indexOf(b.observers[kind], key) >= 0 {
			continue
		}
		b.observers[kind] = append(b.observers[kind], registration{key: key, fn: fn})
	}
}

// Unregister removes key from kind. KindAny removes it from every kind.
func (b *Bus) Unregister(key string, kind Kind) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, k := range expand([]Kind{kind}) {
		list := b.observers[k]
		i := indexOf(list, key)
		if i < 0 {
			continue
		}
		next := make([]registration, 0, len(list)-1)
		next = append(next, list[:i]...)
		b.observers[k] = append(next, list[i+1:]...)
	}
}

// Emit delivers e to the observers registered for its kind. A KindAny event
// is delivered once per concrete kind, with Kind set to that kind.
//
// Observers run on the caller's goroutine outside the bus lock and may
// register, unregister or emit from inside the callback. Changes made during
// an emit apply to the next one.
func (b *Bus) Emit(e Event) {
	for _, kind := range expand([]Kind{e.Kind}) {
		b.mu.Lock()
		list := b.observers[kind]
		b.mu.Unlock()

		delivered := Event{Kind: kind, Value: e.Value}
		for _, r := range list {
			r.fn(delivered)
		}
	}
}

// Count returns the number of observers registered for kind.
func (b *Bus) Count(kind Kind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if kind == KindAny {
		n := 0
		for _, k := range Kinds {
			n += len(b.observers[k])
		}
		return n
	}
	return len(b.observers[kind])
}

// Subscribe returns a buffered channel receiving events of the given kinds
// until ctx is done. Events that do not fit the buffer are dropped.
func (b *Bus) Subscribe(ctx context.Context, buffer int, kinds ...Kind) <-chan Event {
	key := "chan:" + uuid.NewString()
	ch := make(chan Event, buffer)

	var mu sync.Mutex
	closed := false
	b.Register(key, func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- e:
		default:
			logger.Warn("event subscriber full, dropping event", logger.Fields{"kind": e.Kind.String()})
		}
	}, kinds...)

	go func() {
		<-ctx.Done()
		b.Unregister(key, KindAny)
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()
	return ch
}

func indexOf(list []registration, key string) int {
	for i, r := range list {
		if r.key == key {
			return i
		}
	}
	return -1
}
