package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

func receive[E any](t *testing.T, sub *Subscription[E]) E {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "channel closed unexpectedly")
		return ev
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for event")
	}
	var zero E
	return zero
}

func requireClosed[E any](t *testing.T, sub *Subscription[E]) {
	t.Helper()
	select {
	case _, ok := <-sub.Events():
		require.False(t, ok, "expected closed channel")
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestEmitter_DeliversInOrder(t *testing.T) {
	e := NewEmitter[int]()
	sub := e.Subscribe()
	defer sub.Close()

	for i := 0; i < 100; i++ {
		require.True(t, e.Emit(i))
	}

	for i := 0; i < 100; i++ {
		assert.Equal(t, i, receive(t, sub))
	}
}

func TestEmitter_FanOut(t *testing.T) {
	e := NewEmitter[string]()
	a := e.Subscribe()
	b := e.Subscribe()
	defer a.Close()
	defer b.Close()

	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, 2, e.Len())

	e.Emit("x")

	assert.Equal(t, "x", receive(t, a))
	assert.Equal(t, "x", receive(t, b))
}

func TestEmitter_EmitDoesNotBlockOnSlowReader(t *testing.T) {
	e := NewEmitter[int]()
	sub := e.Subscribe()
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10000; i++ {
			e.Emit(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("emit blocked on an unread subscription")
	}
	assert.Equal(t, 0, receive(t, sub))
}

func TestEmitter_SubscriptionOnlySeesLaterEvents(t *testing.T) {
	e := NewEmitter[int]()
	e.Emit(1)

	sub := e.Subscribe()
	defer sub.Close()
	e.Emit(2)

	assert.Equal(t, 2, receive(t, sub))
}

func TestSubscription_Close(t *testing.T) {
	e := NewEmitter[int]()
	sub := e.Subscribe()

	e.Emit(1)
	sub.Close()
	sub.Close()

	assert.Equal(t, 0, e.Len())

	// Undelivered events may or may not be observed before the close.
	deadline := time.After(waitTimeout)
	for {
		select {
		case _, ok := <-sub.Events():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after Close")
		}
	}
}

func TestEmitter_DisposeDeliversPendingThenCloses(t *testing.T) {
	e := NewEmitter[int]()
	sub := e.Subscribe()

	e.Emit(1)
	e.Emit(2)
	e.Dispose()

	assert.False(t, e.Emit(3))
	assert.Equal(t, 1, receive(t, sub))
	assert.Equal(t, 2, receive(t, sub))
	requireClosed(t, sub)
	assert.Equal(t, 0, e.Len())
}

func TestEmitter_LateSubscriberObservesNothing(t *testing.T) {
	e := NewEmitter[int]()
	e.Dispose()
	e.Dispose()

	sub := e.Subscribe()
	requireClosed(t, sub)
	sub.Close()
}

func TestEmitter_ConcurrentEmitters(t *testing.T) {
	e := NewEmitter[int]()
	sub := e.Subscribe()
	defer sub.Close()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				e.Emit(base*1000 + i)
			}
		}(w)
	}
	wg.Wait()

	last := map[int]int{0: -1, 1: -1, 2: -1, 3: -1}
	for i := 0; i < 200; i++ {
		v := receive(t, sub)
		worker, seq := v/1000, v%1000
		assert.Greater(t, seq, last[worker], "per-producer order must hold")
		last[worker] = seq
	}
}
