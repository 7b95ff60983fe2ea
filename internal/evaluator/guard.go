package evaluator

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"

	"github.com/davidahmann/lendguard/internal/logging"
)

const defaultRetryDelay = 200 * time.Millisecond

// Guard bounds every call to the wrapped Evaluator with a timeout and retries
// failed attempts. An attempt that outlives its timeout fails with ErrTimeout
// even if the wrapped Evaluator ignores context cancellation.
type Guard struct {
	next     Evaluator
	timeout  time.Duration
	attempts uint
	delay    time.Duration
}

func NewGuard(next Evaluator, timeout time.Duration, attempts int) *Guard {
	if attempts < 1 {
		attempts = 1
	}
	return &Guard{next: next, timeout: timeout, attempts: uint(attempts), delay: defaultRetryDelay}
}

// WithRetryDelay overrides the base backoff delay between attempts.
func (g *Guard) WithRetryDelay(d time.Duration) *Guard {
	g.delay = d
	return g
}

type textResult struct {
	text string
	err  error
}

type structuredResult struct {
	obj map[string]any
	err error
}

func (g *Guard) Evaluate(ctx context.Context, system, payload string) (string, error) {
	return retry.DoWithData(func() (string, error) {
		callCtx, cancel := g.attemptContext(ctx)
		defer cancel()

		done := make(chan textResult, 1)
		go func() {
			text, err := g.next.Evaluate(callCtx, system, payload)
			done <- textResult{text: text, err: err}
		}()

		select {
		case res := <-done:
			return res.text, g.classify(ctx, callCtx, res.err)
		case <-callCtx.Done():
			return "", g.classify(ctx, callCtx, callCtx.Err())
		}
	}, g.options(ctx)...)
}

func (g *Guard) EvaluateStructured(ctx context.Context, system, payload string, schema Schema) (map[string]any, error) {
	return retry.DoWithData(func() (map[string]any, error) {
		callCtx, cancel := g.attemptContext(ctx)
		defer cancel()

		done := make(chan structuredResult, 1)
		go func() {
			obj, err := g.next.EvaluateStructured(callCtx, system, payload, schema)
			done <- structuredResult{obj: obj, err: err}
		}()

		select {
		case res := <-done:
			return res.obj, g.classify(ctx, callCtx, res.err)
		case <-callCtx.Done():
			return nil, g.classify(ctx, callCtx, callCtx.Err())
		}
	}, g.options(ctx)...)
}

func (g *Guard) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

// classify maps a per-attempt deadline to ErrTimeout and stops retrying once
// the caller's own context is done.
func (g *Guard) classify(parent, attempt context.Context, err error) error {
	if err == nil {
		return nil
	}
	if parent.Err() != nil {
		return retry.Unrecoverable(errors.Wrap(parent.Err(), "evaluator call cancelled"))
	}
	if errors.Is(attempt.Err(), context.DeadlineExceeded) {
		return errors.Wrapf(ErrTimeout, "after %s", g.timeout)
	}
	return err
}

func (g *Guard) options(ctx context.Context) []retry.Option {
	logger := logging.FromContext(ctx)
	return []retry.Option{
		retry.Attempts(g.attempts),
		retry.LastErrorOnly(true),
		retry.Delay(g.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.WarnContext(ctx, "evaluator attempt failed, retrying", "attempt", n+1, "error", err)
		}),
	}
}
