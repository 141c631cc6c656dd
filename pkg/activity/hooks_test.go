package activity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHooksNotifyNormalizesAndFansOut(t *testing.T) {
	var received []Event
	hooks := Hooks{
		HookFunc(func(_ context.Context, event Event) error {
			received = append(received, event)
			return nil
		}),
		nil, // nil hooks are skipped
	}

	err := hooks.Notify(nil, Event{
		Verb:       "  rooted ",
		ObjectType: " int ",
		ObjectID:   " slot-1 ",
		Metadata:   map[string]any{"cycle": 3},
	})
	if err != nil {
		t.Fatalf("unexpected notify error: %v", err)
	}
	if len(received) != 1 {
		t.Fatalf("expected one delivery, got %d", len(received))
	}

	event := received[0]
	if event.Verb != "rooted" || event.ObjectType != "int" || event.ObjectID != "slot-1" {
		t.Fatalf("expected trimmed fields, got %+v", event)
	}
	if event.OccurredAt.IsZero() {
		t.Fatalf("expected a default timestamp")
	}
}

func TestHooksNotifySkipsIncompleteEvents(t *testing.T) {
	calls := 0
	hooks := Hooks{HookFunc(func(_ context.Context, _ Event) error {
		calls++
		return nil
	})}

	if err := hooks.Notify(context.Background(), Event{Verb: "rooted"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := hooks.Notify(context.Background(), Event{ObjectID: "slot-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 0 {
		t.Fatalf("incomplete events should short-circuit, got %d calls", calls)
	}
}

func TestHooksNotifyJoinsErrors(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")
	hooks := Hooks{
		HookFunc(func(_ context.Context, _ Event) error { return first }),
		HookFunc(func(_ context.Context, _ Event) error { return nil }),
		HookFunc(func(_ context.Context, _ Event) error { return second }),
	}

	err := hooks.Notify(context.Background(), Event{Verb: "evicted", ObjectID: "slot-1"})
	if !errors.Is(err, first) || !errors.Is(err, second) {
		t.Fatalf("expected joined errors, got %v", err)
	}
}

func TestNormalizeEventClonesMetadata(t *testing.T) {
	metadata := map[string]any{"cycle": 1}
	normalized := NormalizeEvent(Event{Verb: "swept", ObjectID: "store-1", Metadata: metadata})

	metadata["cycle"] = 2
	if normalized.Metadata["cycle"] != 1 {
		t.Fatalf("metadata should be cloned, got %v", normalized.Metadata["cycle"])
	}
}

func TestEmitterAppliesDefaults(t *testing.T) {
	var received []Event
	hook := HookFunc(func(_ context.Context, event Event) error {
		received = append(received, event)
		return nil
	})

	emitter := NewEmitter(Hooks{hook}, Config{Enabled: true})
	if !emitter.Enabled() {
		t.Fatalf("emitter with hooks and enabled config should be enabled")
	}

	occurred := time.Unix(1_700_000_000, 0)
	if err := emitter.Emit(context.Background(), Event{
		Verb:       VerbRooted,
		ObjectID:   "slot-1",
		OccurredAt: occurred,
	}); err != nil {
		t.Fatalf("unexpected emit error: %v", err)
	}

	if len(received) != 1 {
		t.Fatalf("expected one delivery, got %d", len(received))
	}
	if received[0].Channel != "rooted" {
		t.Fatalf("expected default channel, got %q", received[0].Channel)
	}
	if !received[0].OccurredAt.Equal(occurred) {
		t.Fatalf("expected caller timestamp to be preserved")
	}
}

func TestEmitterDisabled(t *testing.T) {
	calls := 0
	hook := HookFunc(func(_ context.Context, _ Event) error {
		calls++
		return nil
	})

	disabled := NewEmitter(Hooks{hook}, Config{Enabled: false})
	if disabled.Enabled() {
		t.Fatalf("emitter should honor disabled config")
	}
	_ = disabled.Emit(context.Background(), Event{Verb: VerbRooted, ObjectID: "slot-1"})

	empty := NewEmitter(nil, Config{Enabled: true})
	if empty.Enabled() {
		t.Fatalf("emitter without hooks should be disabled")
	}

	if calls != 0 {
		t.Fatalf("disabled emitter should not notify, got %d calls", calls)
	}
}
