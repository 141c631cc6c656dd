package activity

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Lifecycle verbs emitted by the store.
const (
	VerbRooted   = "rooted"
	VerbEvicted  = "evicted"
	VerbRetained = "retained"
	VerbSwept    = "swept"
)

// Event describes a slot lifecycle occurrence that can be fanned out to
// hooks. ObjectType carries the stored value's type name and ObjectID the
// slot identifier; Position is empty for type-keyed context slots and for
// store-level summary events.
type Event struct {
	Verb       string
	ObjectType string
	ObjectID   string
	Position   string
	Channel    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// LifecycleHook receives normalized lifecycle events.
type LifecycleHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy LifecycleHook.
type HookFunc func(ctx context.Context, event Event) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans out events to zero or more hooks.
type Hooks []LifecycleHook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify forwards the event to all hooks, returning a joined error if any
// fail. It normalizes the event and short-circuits when required fields are
// missing.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}

	normalized := NormalizeEvent(event)
	if normalized.Verb == "" || normalized.ObjectID == "" {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// NormalizeEvent trims whitespace, clones metadata, and ensures a timestamp
// is present.
func NormalizeEvent(event Event) Event {
	normalized := event
	normalized.Verb = strings.TrimSpace(event.Verb)
	normalized.ObjectType = strings.TrimSpace(event.ObjectType)
	normalized.ObjectID = strings.TrimSpace(event.ObjectID)
	normalized.Position = strings.TrimSpace(event.Position)
	normalized.Channel = strings.TrimSpace(event.Channel)
	normalized.Metadata = cloneMap(event.Metadata)
	if normalized.OccurredAt.IsZero() {
		normalized.OccurredAt = time.Now()
	}
	return normalized
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
