package service

import (
	"go.uber.org/zap"

	"github.com/spec-kit/crew-ticket-service/internal/observability"
)

// Warning records a side effect that failed after the primary mutation
// committed. Warnings never turn a successful operation into a failure.
type Warning struct {
	Step string
	Err  error
}

func (w Warning) String() string {
	if w.Err == nil {
		return w.Step
	}
	return w.Step + ": " + w.Err.Error()
}

// Outcome carries the primary result of an operation plus its warnings.
type Outcome[T any] struct {
	Value    T
	Warnings []Warning
}

// OK reports whether every side effect succeeded.
func (o Outcome[T]) OK() bool {
	return len(o.Warnings) == 0
}

// warner logs and counts side effect failures for one operation.
type warner struct {
	logger  *zap.Logger
	metrics *observability.Metrics
	fields  []zap.Field
	list    []Warning
}

func newWarner(logger *zap.Logger, metrics *observability.Metrics, fields ...zap.Field) *warner {
	return &warner{logger: logger, metrics: metrics, fields: fields}
}

func (w *warner) add(step string, err error) {
	if err == nil {
		return
	}
	fields := append(append([]zap.Field{}, w.fields...), zap.String("step", step), zap.Error(err))
	w.logger.Warn("side effect failed", fields...)
	w.metrics.RecordWarning(step)
	w.list = append(w.list, Warning{Step: step, Err: err})
}

func (w *warner) merge(other []Warning) {
	w.list = append(w.list, other...)
}

func (w *warner) warnings() []Warning {
	return w.list
}
