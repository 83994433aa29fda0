// Package events provides ordered, non-blocking fan-out of typed events
// to channel subscribers.
package events

import (
	"sync"

	"github.com/google/uuid"
)

// Emitter delivers each emitted event to every current subscriber.
//
// Emit never blocks: every subscription owns an unbounded queue drained by
// its own goroutine, so a slow consumer delays only itself. Each subscriber
// observes events in emission order.
type Emitter[E any] struct {
	mu       sync.Mutex
	subs     map[string]*Subscription[E]
	disposed bool
}

// NewEmitter creates an emitter with no subscribers.
func NewEmitter[E any]() *Emitter[E] {
	return &Emitter[E]{subs: make(map[string]*Subscription[E])}
}

// Subscribe registers a new subscriber. After Dispose the returned
// subscription's channel is already closed.
func (e *Emitter[E]) Subscribe() *Subscription[E] {
	e.mu.Lock()
	defer e.mu.Unlock()

	sub := newSubscription(e)
	if e.disposed {
		sub.closeOnce.Do(func() { close(sub.done) })
		close(sub.out)
		return sub
	}

	e.subs[sub.id] = sub
	go sub.pump()
	return sub
}

// Emit queues event for every subscriber. It returns false once disposed.
func (e *Emitter[E]) Emit(event E) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed {
		return false
	}
	for _, sub := range e.subs {
		sub.push(event)
	}
	return true
}

// Len returns the number of active subscribers.
func (e *Emitter[E]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}

// Dispose stops the emitter. Events already queued are still delivered,
// then every subscriber channel is closed. Safe to call more than once.
func (e *Emitter[E]) Dispose() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed {
		return
	}
	e.disposed = true
	for id, sub := range e.subs {
		sub.drain()
		delete(e.subs, id)
	}
}

func (e *Emitter[E]) remove(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.subs, id)
}

// Subscription is one consumer's view of an Emitter.
type Subscription[E any] struct {
	id      string
	emitter *Emitter[E]
	out     chan E

	mu       sync.Mutex
	queue    []E
	draining bool
	notify   chan struct{}

	done      chan struct{}
	closeOnce sync.Once
}

func newSubscription[E any](e *Emitter[E]) *Subscription[E] {
	return &Subscription[E]{
		id:      uuid.NewString(),
		emitter: e,
		out:     make(chan E),
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// ID returns the subscription's unique identifier.
func (s *Subscription[E]) ID() string {
	return s.id
}

// Events returns the delivery channel. It is closed after Close, or after
// Dispose once pending events have been received.
func (s *Subscription[E]) Events() <-chan E {
	return s.out
}

// Close unsubscribes and discards undelivered events. Safe to call more than once.
func (s *Subscription[E]) Close() {
	s.emitter.remove(s.id)
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Subscription[E]) push(event E) {
	s.mu.Lock()
	s.queue = append(s.queue, event)
	s.mu.Unlock()
	s.wake()
}

func (s *Subscription[E]) drain() {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()
	s.wake()
}

func (s *Subscription[E]) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscription[E]) pump() {
	defer close(s.out)

	var zero E
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.draining {
			s.mu.Unlock()
			select {
			case <-s.notify:
			case <-s.done:
				return
			}
			s.mu.Lock()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		next := s.queue[0]
		s.queue[0] = zero
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- next:
		case <-s.done:
			return
		}
	}
}
