package rooted

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-rooted/callpath"
	"github.com/goliatone/go-rooted/pkg/activity"
)

// Store owns every rooted slot. Position-keyed and type-keyed (context)
// slots live in separate registries; structural mutation of either registry
// happens under one mutex, while the per-slot touched flag stays atomic so
// the hot access path never contends on the store lock.
type Store struct {
	id       string
	mu       sync.Mutex
	slots    map[slotKey]*slot
	contexts map[reflect.Type]*slot

	cfg     storeConfig
	emitter *activity.Emitter

	retentionOnce sync.Once
	retention     []retentionRule
}

// slotKey uniquely identifies at most one live slot: two roots at the same
// position with different value types never collide.
type slotKey struct {
	at  callpath.Point
	typ reflect.Type
}

// slot is the store-owned bookkeeping entry for one rooted value. The value
// itself lives in a shared cell so handles survive eviction; overrides is
// only populated for context slots.
type slot struct {
	id        string
	key       slotKey
	isContext bool
	cell      valueCell
	touched   atomic.Bool
	createdAt time.Time

	// survived counts sweeps this slot outlived; guarded by Store.mu.
	survived int
	// overrides stacks *cell[T] values pushed by Override; guarded by Store.mu.
	overrides []valueCell
}

// valueCell is the non-generic view of a cell used by sweep and diagnostics.
type valueCell interface {
	load() any
}

// cell holds one value of type T. Handles and the store entry share the same
// cell, so evicting the entry never invalidates a handle obtained earlier in
// the cycle.
type cell[T any] struct {
	mu    sync.RWMutex
	value T
}

func (c *cell[T]) load() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// New constructs an empty Store. The store has an explicit lifetime owned by
// the caller; nothing in this package keeps ambient global state.
func New(opts ...Option) *Store {
	cfg := applyOptions(opts)
	return &Store{
		id:       uuid.NewString(),
		slots:    map[slotKey]*slot{},
		contexts: map[reflect.Type]*slot{},
		cfg:      cfg,
		emitter:  activity.NewEmitter(cfg.hooks, cfg.activity),
	}
}

// Root binds a value of type T to position at, creating it with init on the
// first visit and reusing the live slot on every later visit. Re-rooting an
// existing slot never re-invokes init and never overwrites the current
// value; it only marks the slot touched, so a traversal that merely visits
// the position each cycle keeps the state alive.
func Root[T any](s *Store, at callpath.Point, init func() T) State[T] {
	if s == nil {
		panic("rooted: store must not be nil")
	}
	if init == nil {
		panic("rooted: initializer must not be nil")
	}
	key := slotKey{at: at, typ: reflect.TypeFor[T]()}

	s.mu.Lock()
	if entry, ok := s.slots[key]; ok {
		s.mu.Unlock()
		entry.touched.Store(true)
		return State[T]{slot: entry, cell: entry.cell.(*cell[T])}
	}
	s.mu.Unlock()

	// The initializer runs outside the lock so it may itself root nested
	// state on the same store.
	value := init()

	s.mu.Lock()
	entry, ok := s.slots[key]
	if !ok {
		// Racing rooters at the same key keep the first inserted value.
		entry = s.newSlot(key, false, &cell[T]{value: value})
		s.slots[key] = entry
	}
	s.mu.Unlock()
	entry.touched.Store(true)
	if !ok {
		s.emit(activity.VerbRooted, entry, nil)
	}
	return State[T]{slot: entry, cell: entry.cell.(*cell[T])}
}

// newSlot allocates a bookkeeping entry; callers hold Store.mu.
func (s *Store) newSlot(key slotKey, isContext bool, c valueCell) *slot {
	entry := &slot{
		id:        uuid.NewString(),
		key:       key,
		isContext: isContext,
		cell:      c,
		createdAt: s.now(),
	}
	entry.touched.Store(true)
	return entry
}

// Len reports the number of live slots across both registries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots) + len(s.contexts)
}

func (s *Store) now() time.Time {
	if s.cfg.now != nil {
		return s.cfg.now()
	}
	return time.Now()
}

func (s *Store) emit(verb string, entry *slot, metadata map[string]any) {
	if !s.emitter.Enabled() {
		return
	}
	position := ""
	if !entry.isContext {
		position = entry.key.at.String()
	}
	// Hook errors never surface on the store's access path.
	_ = s.emitter.Emit(context.Background(), activity.Event{
		Verb:       verb,
		ObjectType: entry.key.typ.String(),
		ObjectID:   entry.id,
		Position:   position,
		Metadata:   metadata,
		OccurredAt: s.now(),
	})
}
