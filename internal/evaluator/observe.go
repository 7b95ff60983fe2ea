package evaluator

import (
	"context"
	"time"
)

// ObserveFunc receives the outcome of each evaluator call.
type ObserveFunc func(kind string, elapsed time.Duration, err error)

type Observed struct {
	next    Evaluator
	observe ObserveFunc
}

func NewObserved(next Evaluator, observe ObserveFunc) *Observed {
	return &Observed{next: next, observe: observe}
}

func (o *Observed) Evaluate(ctx context.Context, system, payload string) (string, error) {
	start := time.Now()
	text, err := o.next.Evaluate(ctx, system, payload)
	o.observe("text", time.Since(start), err)
	return text, err
}

func (o *Observed) EvaluateStructured(ctx context.Context, system, payload string, schema Schema) (map[string]any, error) {
	start := time.Now()
	obj, err := o.next.EvaluateStructured(ctx, system, payload, schema)
	o.observe("structured", time.Since(start), err)
	return obj, err
}
