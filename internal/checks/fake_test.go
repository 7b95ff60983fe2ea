package checks

import (
	"context"
	"sync"

	"github.com/davidahmann/lendguard/internal/evaluator"
)

type scriptedEvaluator struct {
	mu       sync.Mutex
	text     string
	obj      map[string]any
	err      error
	raw      bool // return obj without schema coercion
	systems  []string
	payloads []string
}

func (s *scriptedEvaluator) record(system, payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.systems = append(s.systems, system)
	s.payloads = append(s.payloads, payload)
}

func (s *scriptedEvaluator) Evaluate(ctx context.Context, system, payload string) (string, error) {
	s.record(system, payload)
	return s.text, s.err
}

func (s *scriptedEvaluator) EvaluateStructured(ctx context.Context, system, payload string, schema evaluator.Schema) (map[string]any, error) {
	s.record(system, payload)
	if s.err != nil {
		return nil, s.err
	}
	if s.raw {
		return s.obj, nil
	}
	return schema.Coerce(s.obj)
}
