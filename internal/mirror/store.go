// Package mirror implements C6, the in-memory live-state mirror: the single
// source of truth for "what is the current value of UUID X", fed by C5 and
// read by C7/C8/C9/C10. Lock-guarded map shape grounded on the
// sync.RWMutex-guarded store pattern used throughout the teacher (e.g.
// internal/recon's in-memory scan-result cache); the publish-after-unlock
// rule is this bridge's own addition, needed because C5 hands off tuples
// synchronously and a handler must never be able to deadlock the mirror.
package mirror

import (
	"sync"
	"time"

	"github.com/loxone-mcp/bridge/internal/events"
	"github.com/loxone-mcp/bridge/internal/ltype"
)

// entry pairs a value with when it was last observed, in Unix seconds.
type entry struct {
	value      ltype.Value
	observedAt int64
}

// Store is the UUID -> Value mirror. Zero value is not usable; use New.
type Store struct {
	mu    sync.RWMutex
	state map[string]entry
	bus   *events.Bus
}

// New builds an empty Store that publishes accepted changes onto bus.
// bus may be nil for tests that only need Get/Snapshot.
func New(bus *events.Bus) *Store {
	return &Store{
		state: make(map[string]entry),
		bus:   bus,
	}
}

// Get returns the current value for uuid, if known.
func (s *Store) Get(uuid string) (ltype.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.state[uuid]
	return e.value, ok
}

// Snapshot returns a copy of the full UUID -> Value map. Safe to range over
// without holding the Store's lock.
func (s *Store) Snapshot() map[string]ltype.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]ltype.Value, len(s.state))
	for k, e := range s.state {
		out[k] = e.value
	}
	return out
}

// Len reports how many UUIDs the mirror currently tracks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state)
}

// Apply records a freshly observed (uuid, value) tuple. If the value is
// unchanged from what's already mirrored, Apply is a no-op beyond the
// observed-at timestamp update — no event is published, per spec.md §4.6's
// "subscribers only see real changes" invariant. Satisfies
// internal/wsclient.StateSink.
func (s *Store) Apply(uuid string, value ltype.Value, observedUnix int64) {
	if observedUnix == 0 {
		observedUnix = time.Now().Unix()
	}

	s.mu.Lock()
	prev, hadPrev := s.state[uuid]
	changed := !hadPrev || !prev.value.Equal(value)
	s.state[uuid] = entry{value: value, observedAt: observedUnix}
	s.mu.Unlock()

	if !changed || s.bus == nil {
		return
	}

	update := events.StateUpdate{
		UUID:         uuid,
		New:          value,
		ObservedUnix: observedUnix,
	}
	if hadPrev {
		update.Old = prev.value
		update.OldPresent = true
	}
	s.bus.Publish(update)
}
