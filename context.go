package rooted

import (
	"reflect"

	"github.com/goliatone/go-rooted/pkg/activity"
)

// Context is a handle to a slot keyed by value type alone, reachable from
// anywhere without a traversal position. Creation follows the same
// idempotent rooting rules as Root: the first NewContext for a type
// establishes the base value, later calls reuse the live slot untouched.
//
// The base value is subject to the same sweep rules as position-keyed slots.
// When the base slot was evicted, the next Get or Set through any handle
// re-roots it from the initial value that handle was created with.
type Context[T any] struct {
	store   *Store
	initial T
}

// NewContext establishes (or reuses) the context slot for type T and returns
// a handle bound to it.
func NewContext[T any](s *Store, initial T) Context[T] {
	if s == nil {
		panic("rooted: store must not be nil")
	}
	c := Context[T]{store: s, initial: initial}
	c.entry()
	return c
}

// Get returns the current value, honoring the innermost active override, and
// marks the base slot touched.
func (c Context[T]) Get() T {
	target := c.current(c.entry())
	target.mu.RLock()
	defer target.mu.RUnlock()
	return target.value
}

// Set replaces the current value — the innermost override when one is
// active, the base value otherwise — and marks the base slot touched.
func (c Context[T]) Set(value T) {
	target := c.current(c.entry())
	target.mu.Lock()
	target.value = value
	target.mu.Unlock()
}

// Override runs body with value pushed as the context's innermost value for
// the duration of the call. The override is popped on every exit path,
// including panics, restoring whatever was visible before. Only the base
// value participates in sweep liveness.
func Override[T, R any](c Context[T], value T, body func() R) R {
	entry := c.entry()
	pushed := &cell[T]{value: value}

	s := c.store
	s.mu.Lock()
	entry.overrides = append(entry.overrides, pushed)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if n := len(entry.overrides); n > 0 && entry.overrides[n-1] == valueCell(pushed) {
			entry.overrides = entry.overrides[:n-1]
		}
		s.mu.Unlock()
	}()

	return body()
}

// entry returns the live context slot for T, re-rooting it from the handle's
// initial value when absent, and marks it touched.
func (c Context[T]) entry() *slot {
	typ := reflect.TypeFor[T]()
	s := c.store

	s.mu.Lock()
	entry, ok := s.contexts[typ]
	if !ok {
		entry = s.newSlot(slotKey{typ: typ}, true, &cell[T]{value: c.initial})
		s.contexts[typ] = entry
	}
	s.mu.Unlock()

	entry.touched.Store(true)
	if !ok {
		s.emit(activity.VerbRooted, entry, nil)
	}
	return entry
}

// current resolves the cell reads and writes should target: the top of the
// override stack when one is pushed, the base cell otherwise.
func (c Context[T]) current(entry *slot) *cell[T] {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(entry.overrides); n > 0 {
		return entry.overrides[n-1].(*cell[T])
	}
	return entry.cell.(*cell[T])
}
