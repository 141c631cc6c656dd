// Package rooted retains private state for code that runs repeatedly at the
// same logical position in a call traversal, without the caller threading
// that state through arguments.
//
// A Store maps (position, value type) pairs to slots. Root binds a value to
// the current callpath.Point the first time that position is visited and
// returns a handle to the existing slot on every subsequent visit; the
// initializer runs exactly once per slot lifetime. NewContext provides the
// same mechanism keyed by value type alone, reachable from anywhere, with
// optional scoped overrides via Override.
//
// Liveness is generational: every root, get, set, or mutate marks the slot
// touched. The host calls Sweep once per traversal cycle, strictly between
// cycles; the pass evicts every slot left untouched since the previous sweep
// and resets the touched flag on survivors. Retention rules — expressions
// evaluated against a slot's age, type, and survival count — can pin
// otherwise-evictable slots.
//
// Data flow:
//
//	callpath.Walker -> Root(store, walker.Position(), init) -> State[T]
//	store.Sweep() once per cycle -> eviction + lifecycle events
//
// A Store is safe for concurrent use across disjoint keys. Rooting the same
// key from two goroutines within one sweep window is outside the contract,
// matching the single-traversal model of callpath.Walker.
package rooted
