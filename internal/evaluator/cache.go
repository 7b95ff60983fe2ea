package evaluator

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/davidahmann/lendguard/internal/crypto"
)

// Cached memoises successful evaluations for a bounded time. Failures are
// never cached.
type Cached struct {
	next       Evaluator
	text       *expirable.LRU[string, string]
	structured *expirable.LRU[string, map[string]any]
}

func NewCached(next Evaluator, size int, ttl time.Duration) *Cached {
	return &Cached{
		next:       next,
		text:       expirable.NewLRU[string, string](size, nil, ttl),
		structured: expirable.NewLRU[string, map[string]any](size, nil, ttl),
	}
}

func (c *Cached) Evaluate(ctx context.Context, system, payload string) (string, error) {
	key := crypto.DigestParts("text", system, payload)
	if text, ok := c.text.Get(key); ok {
		return text, nil
	}
	text, err := c.next.Evaluate(ctx, system, payload)
	if err != nil {
		return "", err
	}
	c.text.Add(key, text)
	return text, nil
}

func (c *Cached) EvaluateStructured(ctx context.Context, system, payload string, schema Schema) (map[string]any, error) {
	key := crypto.DigestParts("structured", system, payload, schema.Describe())
	if obj, ok := c.structured.Get(key); ok {
		return copyObject(obj), nil
	}
	obj, err := c.next.EvaluateStructured(ctx, system, payload, schema)
	if err != nil {
		return nil, err
	}
	c.structured.Add(key, copyObject(obj))
	return obj, nil
}

func copyObject(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		if list, ok := v.([]string); ok {
			v = append([]string(nil), list...)
		}
		out[k] = v
	}
	return out
}
