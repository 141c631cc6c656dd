package rooted

import "time"

// EvaluatorLogEvent describes one retention evaluation for logging.
type EvaluatorLogEvent struct {
	Engine   string
	Expr     string
	Kind     string
	Duration time.Duration
	Err      error
}

// EvaluatorLogger records retention evaluation events.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}
