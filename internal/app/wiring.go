package app

import (
	"io"
	"net/http"

	"github.com/pkg/errors"

	"github.com/davidahmann/lendguard/internal/approval"
	"github.com/davidahmann/lendguard/internal/config"
	"github.com/davidahmann/lendguard/internal/evaluator"
	"github.com/davidahmann/lendguard/internal/policy"
	"github.com/davidahmann/lendguard/internal/store"
	"github.com/davidahmann/lendguard/internal/store/sqlstore"
)

// EscalationChannelName labels outbox entries written by the queued channel.
const EscalationChannelName = "slack"

// OpenStore returns the configured store and a closer for it.
func OpenStore(cfg config.StoreConfig) (store.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Driver {
	case "jsonfile":
		return store.NewJSONFileStore(cfg.Path), noop, nil
	case "memory":
		return store.NewInMemoryStore(), noop, nil
	case "sqlite", "postgres":
		s, err := sqlstore.Open(store.DBDriver(cfg.Driver), cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, errors.Errorf("unsupported store.driver: %s", cfg.Driver)
	}
}

// BuildEvaluator layers observation, timeout/retry and caching over the
// configured provider. Caching sits outermost so hits skip the guard.
func BuildEvaluator(cfg config.EvaluatorConfig, p policy.Policy, observe evaluator.ObserveFunc) (evaluator.Evaluator, error) {
	var base evaluator.Evaluator
	switch cfg.Provider {
	case "heuristic":
		base = evaluator.NewHeuristic(p)
	case "openai":
		llm, err := evaluator.NewLLM(evaluator.LLMOptions{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey, Model: cfg.Model})
		if err != nil {
			return nil, err
		}
		base = llm
	default:
		return nil, errors.Errorf("unsupported evaluator.provider: %s", cfg.Provider)
	}

	var eval evaluator.Evaluator = base
	if observe != nil {
		eval = evaluator.NewObserved(eval, observe)
	}
	eval = evaluator.NewGuard(eval, cfg.Timeout, cfg.Retries)
	if cfg.CacheTTL > 0 && cfg.CacheSize > 0 {
		eval = evaluator.NewCached(eval, cfg.CacheSize, cfg.CacheTTL)
	}
	return eval, nil
}

// BuildChannel returns the approval channel for the escalation config.
func BuildChannel(cfg config.EscalationConfig, st store.Store, in io.Reader, out io.Writer) (approval.Channel, error) {
	switch cfg.Channel {
	case "none":
		return approval.StaticChannel{}, nil
	case "console":
		return approval.NewConsoleChannel(in, out), nil
	case "queued":
		outbox, ok := st.(store.Outbox)
		if !ok {
			return nil, errors.New("escalation.channel=queued requires a store with an outbox")
		}
		return approval.NewQueuedChannel(outbox, EscalationChannelName), nil
	default:
		return nil, errors.Errorf("unsupported escalation.channel: %s", cfg.Channel)
	}
}

// BuildPoster returns the Slack poster when a webhook is configured and a
// line writer otherwise.
func BuildPoster(cfg config.EscalationConfig, out io.Writer, client *http.Client) approval.Poster {
	if cfg.SlackWebhookURL != "" {
		return approval.NewSlackWebhookPoster(cfg.SlackWebhookURL, client)
	}
	return approval.WriterPoster{W: out}
}
