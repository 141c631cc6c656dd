package rooted

import "time"

// RetentionContext carries the inputs a retention expression is evaluated
// against: everything the store knows about one untouched slot at sweep
// time. Expressions see the fields under the bindings kind, position,
// context, age (seconds), survived, now, args, and metadata.
type RetentionContext struct {
	// Kind is the stored value's type name, e.g. "int" or "app.Widget".
	Kind string
	// Position is the hex digest of the slot's callpath.Point; empty for
	// type-keyed context slots.
	Position string
	// Context reports whether the slot is type-keyed rather than
	// position-keyed.
	Context bool
	// Age is the time elapsed since the slot was rooted.
	Age time.Duration
	// Survived counts the sweeps the slot has outlived.
	Survived int

	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
}

func (ctx RetentionContext) withDefaultNow() RetentionContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RetentionContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RetentionContext) withDefaultMaps() RetentionContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

// binding flattens the context into the variable environment shared by all
// engines.
func (ctx RetentionContext) binding() map[string]any {
	return map[string]any{
		"kind":     ctx.Kind,
		"position": ctx.Position,
		"context":  ctx.Context,
		"age":      ctx.Age.Seconds(),
		"survived": ctx.Survived,
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
	}
}

// Evaluator executes retention expressions against a RetentionContext.
type Evaluator interface {
	Evaluate(ctx RetentionContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RetentionContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

func evaluatorEngineName(e Evaluator) string {
	switch e.(type) {
	case *exprEvaluator:
		return "expr"
	case *celEvaluator:
		return "cel"
	}
	if named, ok := e.(interface{ EngineName() string }); ok {
		return named.EngineName()
	}
	return "custom"
}
