package rooted

// State is a handle to one rooted slot. It is a small value type, cheap to
// copy and pass around. Every access marks the slot touched for the current
// sweep window.
//
// The handle shares the value cell with the store's entry rather than
// pointing back into the registry, so a handle obtained before a sweep stays
// readable and writable even if the entry was evicted in the meantime.
type State[T any] struct {
	slot *slot
	cell *cell[T]
}

// Get returns the current value and marks the slot touched.
func (h State[T]) Get() T {
	h.touch()
	h.cell.mu.RLock()
	defer h.cell.mu.RUnlock()
	return h.cell.value
}

// Set replaces the stored value outright and marks the slot touched.
func (h State[T]) Set(value T) {
	h.touch()
	h.cell.mu.Lock()
	h.cell.value = value
	h.cell.mu.Unlock()
}

// Mutate applies fn to the stored value in place and marks the slot touched.
func (h State[T]) Mutate(fn func(*T)) {
	if fn == nil {
		return
	}
	h.touch()
	h.cell.mu.Lock()
	defer h.cell.mu.Unlock()
	fn(&h.cell.value)
}

func (h State[T]) touch() {
	if h.slot == nil {
		panic("rooted: zero State handle; obtain handles through Root")
	}
	h.slot.touched.Store(true)
}

// Read projects the current value through read without copying it out of the
// cell first, marking the slot touched. It exists as a free function because
// the projection introduces a second type parameter.
func Read[T, R any](h State[T], read func(T) R) R {
	h.touch()
	h.cell.mu.RLock()
	defer h.cell.mu.RUnlock()
	return read(h.cell.value)
}
