package rooted

import (
	"errors"
	"testing"
	"time"
)

func retentionFixture() RetentionContext {
	now := time.Unix(1_700_000_000, 0)
	return RetentionContext{
		Kind:     "app.Widget",
		Position: "00000000deadbeef",
		Age:      90 * time.Second,
		Survived: 3,
		Now:      &now,
		Metadata: map[string]any{"tier": "gold"},
	}
}

func TestExprEvaluatorEvaluatesBindings(t *testing.T) {
	evaluator := NewExprEvaluator()
	ctx := retentionFixture()

	cases := []struct {
		expr string
		want bool
	}{
		{`kind == "app.Widget"`, true},
		{`survived >= 2 && age > 60`, true},
		{`context`, false},
		{`metadata.tier == "gold"`, true},
		{`position == ""`, false},
	}
	for _, tc := range cases {
		got, err := evaluator.Evaluate(ctx, tc.expr)
		if err != nil {
			t.Fatalf("expr %q: unexpected error: %v", tc.expr, err)
		}
		if got != tc.want {
			t.Fatalf("expr %q: expected %v, got %v", tc.expr, tc.want, got)
		}
	}
}

func TestExprEvaluatorEmptyExpression(t *testing.T) {
	if _, err := NewExprEvaluator().Evaluate(RetentionContext{}, ""); err == nil {
		t.Fatalf("expected error for empty expression")
	}
	if _, err := NewExprEvaluator().Compile(""); err == nil {
		t.Fatalf("expected compile error for empty expression")
	}
}

func TestExprEvaluatorCompileUsesCache(t *testing.T) {
	cache := NewMemoryProgramCache()
	evaluator := NewExprEvaluator(ExprWithProgramCache(cache))

	rule, err := evaluator.Compile("survived >= 2")
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	if _, ok := cache.Get("survived >= 2"); !ok {
		t.Fatalf("compile should populate the program cache")
	}

	got, err := rule.Evaluate(retentionFixture())
	if err != nil {
		t.Fatalf("unexpected evaluation error: %v", err)
	}
	if got != true {
		t.Fatalf("expected true, got %v", got)
	}

	// A second compile of the same expression reuses the cached program.
	if _, err := evaluator.Compile("survived >= 2"); err != nil {
		t.Fatalf("unexpected error on cached compile: %v", err)
	}
}

func TestExprEvaluatorCustomFunctions(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("tier", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, errors.New("tier expects one argument")
		}
		meta, ok := args[0].(map[string]any)
		if !ok {
			return nil, errors.New("tier expects metadata")
		}
		return meta["tier"], nil
	}); err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}

	evaluator := NewExprEvaluator(ExprWithFunctionRegistry(registry))
	got, err := evaluator.Evaluate(retentionFixture(), `tier(metadata) == "gold"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != true {
		t.Fatalf("expected custom function result, got %v", got)
	}

	got, err = evaluator.Evaluate(retentionFixture(), `call("tier", metadata) == "gold"`)
	if err != nil {
		t.Fatalf("unexpected error via call: %v", err)
	}
	if got != true {
		t.Fatalf("expected call dispatch result, got %v", got)
	}
}

func TestExprEvaluatorWrapsRuntimeErrors(t *testing.T) {
	registry := NewFunctionRegistry()
	_ = registry.Register("boom", func(args ...any) (any, error) {
		return nil, errors.New("kaput")
	})
	evaluator := NewExprEvaluator(ExprWithFunctionRegistry(registry))

	_, err := evaluator.Evaluate(retentionFixture(), "boom()")
	if err == nil {
		t.Fatalf("expected runtime error")
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" || evalErr.Expr != "boom()" {
		t.Fatalf("unexpected error metadata: %+v", evalErr)
	}
}
