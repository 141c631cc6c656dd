package rooted

import (
	"context"
	"time"

	"github.com/goliatone/go-rooted/pkg/activity"
)

// Sweep runs the generational pass the host invokes exactly once per
// traversal cycle, strictly between cycles. It evicts every slot left
// untouched since the previous sweep (unless a retention rule pins it) and
// resets the touched flag on survivors, opening the next window. Evicted
// values stay reachable through handles that were obtained earlier.
//
// Retention rules run with Store.mu released so custom functions may call
// back into the store; a slot that is rooted or touched again while its
// rule evaluates survives the pass.
func (s *Store) Sweep() {
	s.compileRetention()
	now := s.now()

	s.mu.Lock()
	slotCandidates, kept := markRegistry(s.slots)
	contextCandidates, keptContexts := markRegistry(s.contexts)
	s.mu.Unlock()
	kept += keptContexts

	retainedSlots, dropSlots := partitionUntouched(s, slotCandidates, now)
	retainedContexts, dropContexts := partitionUntouched(s, contextCandidates, now)

	s.mu.Lock()
	evicted := evictFromRegistry(s.slots, dropSlots)
	evicted = append(evicted, evictFromRegistry(s.contexts, dropContexts)...)
	s.mu.Unlock()

	retained := append(retainedSlots, retainedContexts...)

	for _, entry := range evicted {
		s.emit(activity.VerbEvicted, entry, nil)
	}
	for _, entry := range retained {
		s.emit(activity.VerbRetained, entry, map[string]any{"survived": entry.survived})
	}
	if s.emitter.Enabled() {
		_ = s.emitter.Emit(context.Background(), activity.Event{
			Verb:       activity.VerbSwept,
			ObjectType: "store",
			ObjectID:   s.id,
			Metadata: map[string]any{
				"evicted":  len(evicted),
				"retained": len(retained),
				"survived": kept,
			},
			OccurredAt: now,
		})
	}
}

// sweepCandidate remembers an untouched slot and its registry key so the
// eviction pass can find it again after the lock was dropped.
type sweepCandidate[K comparable] struct {
	key   K
	entry *slot
}

// markRegistry walks one registry under Store.mu: touched slots survive with
// the flag cleared, untouched slots become eviction candidates. It is a free
// function because the two registries differ in key type.
func markRegistry[K comparable](registry map[K]*slot) (untouched []sweepCandidate[K], kept int) {
	for key, entry := range registry {
		if entry.touched.Swap(false) {
			entry.survived++
			kept++
			continue
		}
		untouched = append(untouched, sweepCandidate[K]{key: key, entry: entry})
	}
	return untouched, kept
}

// partitionUntouched evaluates retention rules for each candidate with the
// store unlocked, splitting pinned slots from those to evict.
func partitionUntouched[K comparable](s *Store, candidates []sweepCandidate[K], now time.Time) (retained []*slot, drop []sweepCandidate[K]) {
	for _, candidate := range candidates {
		if s.retainUntouched(candidate.entry, now) {
			candidate.entry.survived++
			retained = append(retained, candidate.entry)
			continue
		}
		drop = append(drop, candidate)
	}
	return retained, drop
}

// evictFromRegistry removes dropped candidates under Store.mu. A candidate
// is skipped when it was touched again while retention ran, or when its key
// now maps to a different slot.
func evictFromRegistry[K comparable](registry map[K]*slot, drop []sweepCandidate[K]) (evicted []*slot) {
	for _, candidate := range drop {
		if candidate.entry.touched.Load() {
			continue
		}
		if current, ok := registry[candidate.key]; !ok || current != candidate.entry {
			continue
		}
		delete(registry, candidate.key)
		evicted = append(evicted, candidate.entry)
	}
	return evicted
}

// retentionRule pairs a configured expression with its compiled program.
type retentionRule struct {
	expr     string
	engine   string
	compiled CompiledRule
}

// compileRetention compiles configured retention expressions on first sweep.
// Expressions that fail to compile are logged and skipped; a misconfigured
// rule must not turn Sweep into a fallible operation.
func (s *Store) compileRetention() {
	s.retentionOnce.Do(func() {
		if len(s.cfg.retention) == 0 {
			return
		}
		evaluator := s.cfg.evaluator
		if evaluator == nil {
			evaluator = NewExprEvaluator(
				ExprWithProgramCache(s.cfg.programCache),
				ExprWithFunctionRegistry(s.cfg.functions),
			)
		}
		engine := evaluatorEngineName(evaluator)
		for _, expr := range s.cfg.retention {
			compiled, err := evaluator.Compile(expr)
			if err != nil {
				s.logger().LogEvaluation(EvaluatorLogEvent{
					Engine: engine,
					Expr:   expr,
					Err:    wrapEvaluationError(engine, expr, "", err),
				})
				continue
			}
			s.retention = append(s.retention, retentionRule{
				expr:     expr,
				engine:   engine,
				compiled: compiled,
			})
		}
	})
}

// retainUntouched reports whether any retention rule pins an untouched slot.
// Every evaluation is logged with its engine, expression, and duration;
// evaluation errors and non-boolean results count as "do not retain".
func (s *Store) retainUntouched(entry *slot, now time.Time) bool {
	if len(s.retention) == 0 {
		return false
	}
	ctx := s.retentionContext(entry, now)
	for i := range s.retention {
		rule := &s.retention[i]
		start := time.Now()
		value, err := rule.compiled.Evaluate(ctx)
		duration := time.Since(start)
		err = wrapEvaluationError(rule.engine, rule.expr, ctx.Kind, err)
		s.logger().LogEvaluation(EvaluatorLogEvent{
			Engine:   rule.engine,
			Expr:     rule.expr,
			Kind:     ctx.Kind,
			Duration: duration,
			Err:      err,
		})
		if err != nil {
			continue
		}
		if retain, ok := value.(bool); ok && retain {
			return true
		}
	}
	return false
}

func (s *Store) retentionContext(entry *slot, now time.Time) RetentionContext {
	position := ""
	if !entry.isContext {
		position = entry.key.at.String()
	}
	return RetentionContext{
		Kind:     entry.key.typ.String(),
		Position: position,
		Context:  entry.isContext,
		Age:      now.Sub(entry.createdAt),
		Survived: entry.survived,
		Now:      &now,
		Metadata: s.cfg.metadata,
	}
}

func (s *Store) logger() EvaluatorLogger {
	if s.cfg.logger != nil {
		return s.cfg.logger
	}
	return noopEvaluatorLogger{}
}
