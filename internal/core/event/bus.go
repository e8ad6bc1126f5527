package event

import (
	"reflect"
	"sync"
)

type handler func(any)

// Bus is a double-buffered event bus. Events emitted during tick N are
// delivered during tick N+1, after EventDispatchSystem swaps the buffers.
type Bus struct {
	mu       sync.Mutex // guards subscriptions only
	front    map[reflect.Type][]any
	back     map[reflect.Type][]any
	handlers map[reflect.Type][]handler
	order    []reflect.Type // event types by first emit
}

func NewBus() *Bus {
	return &Bus{
		front:    make(map[reflect.Type][]any),
		back:     make(map[reflect.Type][]any),
		handlers: make(map[reflect.Type][]handler),
	}
}

func keyOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// Emit queues ev for the next dispatch.
func Emit[T any](b *Bus, ev T) {
	k := keyOf[T]()
	_, inBack := b.back[k]
	_, inFront := b.front[k]
	if !inBack && !inFront {
		b.order = append(b.order, k)
	}
	b.back[k] = append(b.back[k], ev)
}

// Subscribe adds fn to the handlers of T. Handlers of one type run in
// subscription order.
func Subscribe[T any](b *Bus, fn func(T)) {
	k := keyOf[T]()
	b.mu.Lock()
	b.handlers[k] = append(b.handlers[k], func(ev any) { fn(ev.(T)) })
	b.mu.Unlock()
}

// SwapBuffers makes the queued events dispatchable and empties the queue.
func (b *Bus) SwapBuffers() {
	b.front, b.back = b.back, b.front
	for k, events := range b.back {
		clear(events)
		b.back[k] = events[:0]
	}
}

// Pending counts the events queued since the last swap.
func (b *Bus) Pending() int {
	var n int
	for _, events := range b.back {
		n += len(events)
	}
	return n
}

// DispatchAll delivers the swapped events. Types go in first-emit order,
// events of one type in emit order.
func (b *Bus) DispatchAll() {
	for _, k := range b.order {
		hs := b.handlers[k]
		for _, ev := range b.front[k] {
			for _, h := range hs {
				h(ev)
			}
		}
	}
}
