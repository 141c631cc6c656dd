package rooted

import "testing"

func TestFunctionRegistryRegisterAndCall(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("Double", func(args ...any) (any, error) {
		return args[0].(int) * 2, nil
	}); err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}

	// Lookup is case-insensitive.
	got, err := registry.Call("double", 21)
	if err != nil {
		t.Fatalf("unexpected call error: %v", err)
	}
	if got != 42 {
		t.Fatalf("expected 42, got %v", got)
	}
}

func TestFunctionRegistryRejectsDuplicatesAndNil(t *testing.T) {
	registry := NewFunctionRegistry()
	fn := func(args ...any) (any, error) { return nil, nil }

	if err := registry.Register("fn", fn); err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}
	if err := registry.Register("FN", fn); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if err := registry.Register("", fn); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if err := registry.Register("nil", nil); err == nil {
		t.Fatalf("expected error for nil function")
	}
}

func TestFunctionRegistryCallUnknown(t *testing.T) {
	if _, err := NewFunctionRegistry().Call("ghost"); err == nil {
		t.Fatalf("expected error for unregistered function")
	}
}

func TestFunctionRegistryCloneIsIndependent(t *testing.T) {
	registry := NewFunctionRegistry()
	_ = registry.Register("a", func(args ...any) (any, error) { return "a", nil })

	clone := registry.Clone()
	_ = clone.Register("b", func(args ...any) (any, error) { return "b", nil })

	if _, err := registry.Call("b"); err == nil {
		t.Fatalf("registering on a clone must not affect the original")
	}
	names := clone.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("expected sorted names [a b], got %v", names)
	}
}
