package evaluator

import (
	"context"
	"sync/atomic"
)

type fakeEvaluator struct {
	calls      atomic.Int32
	text       func(ctx context.Context, n int32) (string, error)
	structured func(ctx context.Context, n int32) (map[string]any, error)
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, system, payload string) (string, error) {
	n := f.calls.Add(1)
	return f.text(ctx, n)
}

func (f *fakeEvaluator) EvaluateStructured(ctx context.Context, system, payload string, schema Schema) (map[string]any, error) {
	n := f.calls.Add(1)
	return f.structured(ctx, n)
}
