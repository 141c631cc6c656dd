// Package callpath derives stable identities for positions inside a nested
// call traversal. A Walker maintains an explicit scope stack: every entered
// scope combines the parent position with a call-site token and an occurrence
// index, so sibling call sites, loop iterations, and recursion depths all map
// to distinct Points while repeated traversals of the same control-flow path
// reproduce identical Points.
//
// A Walker models one logical traversal and must only be used from a single
// goroutine.
package callpath

import (
	"fmt"
	"runtime"
)

// Point identifies a position in a call traversal. Points are comparable and
// usable as map keys. The zero Point is the traversal root.
type Point struct {
	digest uint64
}

// IsRoot reports whether p is the traversal root position.
func (p Point) IsRoot() bool {
	return p.digest == 0
}

// String renders the position digest as fixed-width hex for diagnostics.
func (p Point) String() string {
	return fmt.Sprintf("%016x", p.digest)
}

type frame struct {
	at Point
	// counts tracks how many times each call-site token was entered while
	// this frame was active, giving loop iterations distinct child Points.
	counts map[uint64]uint32
}

// Walker is an explicit scope stack producing the current traversal Point.
type Walker struct {
	frames []frame
}

// NewWalker constructs a Walker positioned at the root.
func NewWalker() *Walker {
	return &Walker{
		frames: []frame{{counts: map[uint64]uint32{}}},
	}
}

// Position returns the Point for the innermost open scope.
func (w *Walker) Position() Point {
	return w.frames[len(w.frames)-1].at
}

// Depth returns the number of open scopes, zero at the root.
func (w *Walker) Depth() int {
	return len(w.frames) - 1
}

func (w *Walker) enter(token uint64) {
	top := &w.frames[len(w.frames)-1]
	index := top.counts[token]
	top.counts[token] = index + 1
	child := Point{digest: combine(top.at.digest, token, index)}
	w.frames = append(w.frames, frame{at: child, counts: map[uint64]uint32{}})
}

func (w *Walker) exit() {
	if len(w.frames) == 1 {
		panic("callpath: scope exit without matching entry")
	}
	w.frames = w.frames[:len(w.frames)-1]
}

// Walk resets w to the root frame and runs body as one traversal cycle.
// Resetting the root occurrence counters is what makes positions reproducible
// from one cycle to the next.
func Walk[R any](w *Walker, body func() R) R {
	w.frames = w.frames[:1]
	w.frames[0].counts = map[uint64]uint32{}
	return body()
}

// Nested runs body one scope deeper, using the caller's file and line as the
// call-site token. The source location is used rather than the program
// counter: inlining can resolve the same call site to different PCs depending
// on the surrounding call chain, and the token must not vary between
// traversals. The scope is popped on every exit path, including panics, so
// sibling and recursive calls always observe a consistent stack.
func Nested[R any](w *Walker, body func() R) R {
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		panic("callpath: unable to resolve call site")
	}
	w.enter(hashString(fmt.Sprintf("%s:%d", file, line)))
	defer w.exit()
	return body()
}

// NestedKey runs body one scope deeper using an explicit key as the
// call-site token. Unlike Nested, identities derived through NestedKey are
// stable across builds, which matters for hosts that persist diagnostics
// keyed by position.
func NestedKey[R any](w *Walker, key string, body func() R) R {
	w.enter(hashString(key))
	defer w.exit()
	return body()
}

const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

// combine folds the parent digest, call-site token, and occurrence index into
// one FNV-1a digest.
func combine(parent, token uint64, index uint32) uint64 {
	h := uint64(fnvOffset64)
	h = hashUint64(h, parent)
	h = hashUint64(h, token)
	h = hashUint64(h, uint64(index))
	return h
}

func hashUint64(h, v uint64) uint64 {
	for i := 0; i < 8; i++ {
		h ^= v & 0xff
		h *= fnvPrime64
		v >>= 8
	}
	return h
}

func hashString(s string) uint64 {
	h := uint64(fnvOffset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime64
	}
	return h
}
