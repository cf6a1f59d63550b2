package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu  sync.Mutex
	got []string
}

func (r *recorder) observer(name string) Observer {
	return func(e Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.got = append(r.got, name+":"+e.Kind.String())
	}
}

func (r *recorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.got...)
}

func TestBus_RegisterIsIdempotentPerKey(t *testing.T) {
	bus := NewBus()
	rec := &recorder{}

	bus.Register("catalog", rec.observer("catalog"), KindSaved)
	bus.Register("catalog", rec.observer("catalog"), KindSaved)
	bus.Emit(Event{Kind: KindSaved, Value: "com.example"})

	assert.Equal(t, []string{"catalog:saved"}, rec.calls())
	assert.Equal(t, 1, bus.Count(KindSaved))
}

func TestBus_DeliversInRegistrationOrder(t *testing.T) {
	bus := NewBus()
	rec := &recorder{}
	for _, name := range []string{"first", "second", "third"} {
		bus.Register(name, rec.observer(name), KindDeleted)
	}
	bus.Register("other", rec.observer("other"), KindInstalled)

	bus.Emit(Event{Kind: KindDeleted})
	assert.Equal(t, []string{"first:deleted", "second:deleted", "third:deleted"}, rec.calls())
}

func TestBus_AnyWildcards(t *testing.T) {
	t.Run("register any covers every kind", func(t *testing.T) {
		bus := NewBus()
		rec := &recorder{}
		bus.Register("all", rec.observer("all"), KindAny)
		for _, k := range Kinds {
			bus.Emit(Event{Kind: k})
		}
		assert.Len(t, rec.calls(), len(Kinds))
	})

	t.Run("emit any reaches every list with the concrete kind", func(t *testing.T) {
		bus := NewBus()
		rec := &recorder{}
		bus.Register("saved", rec.observer("s"), KindSaved)
		bus.Register("uninstalled", rec.observer("u"), KindUninstalled)
		bus.Emit(Event{Kind: KindAny})
		assert.Equal(t, []string{"s:saved", "u:uninstalled"}, rec.calls())
	})

	t.Run("unregister any removes from every kind", func(t *testing.T) {
		bus := NewBus()
		rec := &recorder{}
		bus.Register("obs", rec.observer("obs"), KindSaved, KindDeleted, KindInstalled)
		bus.Register("keep", rec.observer("keep"), KindSaved)
		bus.Unregister("obs", KindAny)
		bus.Emit(Event{Kind: KindAny})
		assert.Equal(t, []string{"keep:saved"}, rec.calls())
	})
}

func TestBus_UnregisterSingleKind(t *testing.T) {
	bus := NewBus()
	rec := &recorder{}
	bus.Register("obs", rec.observer("obs"), KindSaved, KindDeleted)
	bus.Unregister("obs", KindSaved)
	bus.Unregister("missing", KindSaved)

	bus.Emit(Event{Kind: KindSaved})
	bus.Emit(Event{Kind: KindDeleted})
	assert.Equal(t, []string{"obs:deleted"}, rec.calls())
}

func TestBus_ObserverUnregistersItself(t *testing.T) {
	bus := NewBus()
	rec := &recorder{}
	bus.Register("once", func(e Event) {
		rec.observer("once")(e)
		bus.Unregister("once", KindAny)
	}, KindSaved)
	bus.Register("after", rec.observer("after"), KindSaved)

	bus.Emit(Event{Kind: KindSaved})
	bus.Emit(Event{Kind: KindSaved})

	assert.Equal(t, []string{"once:saved", "after:saved", "after:saved"}, rec.calls())
}

func TestBus_ConcurrentUse(t *testing.T) {
	bus := NewBus()
	rec := &recorder{}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			bus.Register("k", rec.observer("k"), KindSaved)
			bus.Unregister("k", KindSaved)
		}()
		go func() {
			defer wg.Done()
			bus.Emit(Event{Kind: KindSaved})
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, bus.Count(KindSaved), 1)
}

func TestBus_Subscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bus := NewBus()
	ch := bus.Subscribe(ctx, 4, KindInstalled)

	bus.Emit(Event{Kind: KindInstalled, Value: "com.example"})
	bus.Emit(Event{Kind: KindSaved, Value: "ignored"})

	select {
	case e := <-ch:
		assert.Equal(t, KindInstalled, e.Kind)
		assert.Equal(t, "com.example", e.Value)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}

	cancel()
	require.Eventually(t, func() bool { return bus.Count(KindInstalled) == 0 }, time.Second, 10*time.Millisecond)
	_, ok := <-ch
	assert.False(t, ok)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("uninstalled")
	require.NoError(t, err)
	assert.Equal(t, KindUninstalled, k)

	_, err = ParseKind("exploded")
	assert.Error(t, err)
}
