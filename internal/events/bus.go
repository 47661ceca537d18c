// Package events is the in-process publish/subscribe backbone carrying
// live-state updates published by the state mirror (C6), which the
// WebSocket client (C5) feeds, out to the discoverer and the state-change
// log. Adapted from
// the teacher's generic plugin.EventBus implementation, narrowed to this
// bridge's own event shape rather than a registry-wide interface.
package events

import (
	"sync"

	"github.com/loxone-mcp/bridge/internal/ltype"
	"go.uber.org/zap"
)

// Topic names published on the bus.
const (
	TopicStateUpdate = "state.update"
)

// StateUpdate describes one accepted (UUID, value) tuple that changed the
// mirror. Old is the previous value or the zero Value with OldPresent=false if
// this UUID was not seen before.
type StateUpdate struct {
	UUID         string
	Old          ltype.Value
	OldPresent   bool
	New          ltype.Value
	ObservedUnix int64
}

// Handler receives a StateUpdate. Per spec.md §4.6, handlers run while no
// mirror lock is held and must not perform blocking I/O.
type Handler func(StateUpdate)

// Bus is a single-topic-class, synchronous pub/sub dispatcher: Publish runs
// every handler in the caller's goroutine, which is what lets the mirror
// satisfy "subscribers observe updates in the order they were applied"
// without extra coordination.
type Bus struct {
	mu       sync.RWMutex
	handlers []entry
	nextID   uint64
	logger   *zap.Logger
}

type entry struct {
	id      uint64
	handler Handler
}

// NewBus creates an empty bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{logger: logger}
}

// Publish dispatches a StateUpdate synchronously to every subscriber,
// recovering from (and logging) a panicking handler so one bad subscriber
// can never take down the WebSocket read loop.
func (b *Bus) Publish(update StateUpdate) {
	b.mu.RLock()
	handlers := make([]entry, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, e := range handlers {
		b.safeCall(e.handler, update)
	}
}

// Subscribe registers a handler and returns an unsubscribe function.
func (b *Bus) Subscribe(handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers = append(b.handlers, entry{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, e := range b.handlers {
			if e.id == id {
				b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
				return
			}
		}
	}
}

func (b *Bus) safeCall(handler Handler, update StateUpdate) {
	defer func() {
		if r := recover(); r != nil && b.logger != nil {
			b.logger.Error("event handler panicked",
				zap.String("uuid", update.UUID),
				zap.Any("panic", r),
			)
		}
	}()
	handler(update)
}
