package evaluator

import (
	"context"

	"github.com/checkmarble/llmberjack"
	"github.com/checkmarble/llmberjack/llms/openai"
	"github.com/pkg/errors"
)

type LLMOptions struct {
	BaseURL string
	APIKey  string
	Model   string
}

// LLM evaluates prompts against an OpenAI-compatible chat endpoint such as a
// local Ollama server.
type LLM struct {
	client *llmberjack.Llmberjack
	model  string
}

func NewLLM(opts LLMOptions) (*LLM, error) {
	providerOpts := []openai.Opt{}
	if opts.BaseURL != "" {
		providerOpts = append(providerOpts, openai.WithBaseUrl(opts.BaseURL))
	}
	if opts.APIKey != "" {
		providerOpts = append(providerOpts, openai.WithApiKey(opts.APIKey))
	}

	provider, err := openai.New(providerOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create OpenAI provider")
	}

	client, err := llmberjack.New(
		llmberjack.WithProvider("main", provider),
		llmberjack.WithDefaultModel(opts.Model),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create LLM adapter")
	}
	return &LLM{client: client, model: opts.Model}, nil
}

func (l *LLM) Evaluate(ctx context.Context, system, payload string) (string, error) {
	resp, err := llmberjack.NewUntypedRequest().
		WithModel(l.model).
		WithInstruction(system).
		WithText(llmberjack.RoleUser, payload).
		Do(ctx, l.client)
	if err != nil {
		return "", errors.Wrap(err, "could not generate completion")
	}

	text, err := resp.Get(0)
	if err != nil {
		return "", errors.Wrap(err, "could not read completion")
	}
	return text, nil
}

func (l *LLM) EvaluateStructured(ctx context.Context, system, payload string, schema Schema) (map[string]any, error) {
	text, err := l.Evaluate(ctx, StructuredInstruction(system, schema), payload)
	if err != nil {
		return nil, err
	}
	obj, err := ExtractObject(text)
	if err != nil {
		return nil, err
	}
	return schema.Coerce(obj)
}
