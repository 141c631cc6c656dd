package rooted

import (
	"time"

	"github.com/goliatone/go-rooted/pkg/activity"
)

// Option configures a Store at construction time.
type Option func(*storeConfig)

type storeConfig struct {
	evaluator    Evaluator
	programCache ProgramCache
	functions    *FunctionRegistry
	logger       EvaluatorLogger
	retention    []string
	metadata     map[string]any
	hooks        activity.Hooks
	activity     activity.Config
	now          func() time.Time
}

func applyOptions(opts []Option) storeConfig {
	cfg := storeConfig{
		activity: activity.Config{Enabled: true},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithEvaluator configures the engine used for retention rules. Defaults to
// the expr engine when rules are configured without one.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *storeConfig) {
		cfg.evaluator = e
	}
}

// WithRetentionRule registers an expression evaluated at sweep time for each
// otherwise-evictable slot; a rule returning true keeps the slot alive into
// the next window. May be repeated; rules are tried in registration order.
func WithRetentionRule(expr string) Option {
	return func(cfg *storeConfig) {
		if expr == "" {
			return
		}
		cfg.retention = append(cfg.retention, expr)
	}
}

// WithRetentionMetadata exposes host metadata to retention expressions under
// the metadata binding. The map is copied.
func WithRetentionMetadata(metadata map[string]any) Option {
	return func(cfg *storeConfig) {
		if len(metadata) == 0 {
			return
		}
		cfg.metadata = make(map[string]any, len(metadata))
		for key, value := range metadata {
			cfg.metadata[key] = value
		}
	}
}

// WithProgramCache registers a cache for compiled retention programs.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *storeConfig) {
		cfg.programCache = cache
	}
}

// WithFunctionRegistry configures the store's retention evaluator to use
// registry.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *storeConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for retention expressions.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *storeConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

// WithEvaluatorLogger attaches a logger receiving one event per retention
// evaluation.
func WithEvaluatorLogger(logger EvaluatorLogger) Option {
	return func(cfg *storeConfig) {
		if logger == nil {
			cfg.logger = noopEvaluatorLogger{}
			return
		}
		cfg.logger = logger
	}
}

// WithActivityHooks attaches lifecycle hooks notified on root, evict,
// retain, and sweep. Hooks are cloned and nil entries dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *storeConfig) {
		cfg.hooks = normalized
	}
}

// WithActivityConfig overrides lifecycle emission defaults (enabled flag,
// channel).
func WithActivityConfig(config activity.Config) Option {
	return func(cfg *storeConfig) {
		cfg.activity = config
	}
}

// WithNow overrides the store clock; intended for tests and replay hosts.
func WithNow(now func() time.Time) Option {
	return func(cfg *storeConfig) {
		cfg.now = now
	}
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.LifecycleHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}
