// Package event delivers the terminal notification of every save and load to
// interested subscribers.
package event

import (
	"reflect"
	"slices"
	"sync"
)

type handler struct {
	id uint64
	fn any
}

// Bus is a synchronous typed event bus. Publish runs every handler for the
// event type before returning, in subscription order.
type Bus struct {
	mu       sync.Mutex // only protects handler registration
	nextId   uint64
	handlers map[reflect.Type][]handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[reflect.Type][]handler)}
}

// Subscribe registers a typed handler for events of type T. The returned
// function removes it again; calling it twice is harmless.
func Subscribe[T any](b *Bus, fn func(T)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := reflect.TypeFor[T]()
	b.nextId++
	id := b.nextId
	b.handlers[t] = append(b.handlers[t], handler{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		hs := slices.DeleteFunc(b.handlers[t], func(h handler) bool { return h.id == id })
		if len(hs) == 0 {
			delete(b.handlers, t)
			return
		}
		b.handlers[t] = hs
	}
}

// Publish delivers event to every handler subscribed to T. A nil bus drops
// the event.
func Publish[T any](b *Bus, event T) {
	if b == nil {
		return
	}
	b.mu.Lock()
	handlers := slices.Clone(b.handlers[reflect.TypeFor[T]()])
	b.mu.Unlock()

	for _, h := range handlers {
		if fn, ok := h.fn.(func(T)); ok {
			fn(event)
		}
	}
}

// Count returns the number of live handlers for T.
func Count[T any](b *Bus) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[reflect.TypeFor[T]()])
}
