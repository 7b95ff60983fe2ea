package evaluator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrMalformedResponse = errors.New("evaluator returned no parseable JSON object")
	ErrSchemaValidation  = errors.New("evaluator response does not match schema")
	ErrTimeout           = errors.New("evaluator call timed out")
)

// Evaluator is the language-model collaborator behind every check stage.
// Implementations must be safe for concurrent use.
type Evaluator interface {
	Evaluate(ctx context.Context, system, payload string) (string, error)
	EvaluateStructured(ctx context.Context, system, payload string, schema Schema) (map[string]any, error)
}

type FieldType string

const (
	FieldBool       FieldType = "bool"
	FieldString     FieldType = "string"
	FieldStringList FieldType = "[]string"
)

// Schema maps required top-level keys to their expected types.
type Schema map[string]FieldType

// Keys returns the schema keys in sorted order.
func (s Schema) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Describe renders the schema as a JSON-shaped hint for a prompt.
func (s Schema) Describe() string {
	parts := make([]string, 0, len(s))
	for _, k := range s.Keys() {
		var example string
		switch s[k] {
		case FieldBool:
			example = "true|false"
		case FieldStringList:
			example = `["..."]`
		default:
			example = `"..."`
		}
		parts = append(parts, fmt.Sprintf("%q: %s", k, example))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Coerce checks obj against the schema and returns a copy whose list fields
// are []string. Keys outside the schema are dropped.
func (s Schema) Coerce(obj map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(s))
	for _, key := range s.Keys() {
		raw, ok := obj[key]
		if !ok {
			return nil, errors.Wrapf(ErrSchemaValidation, "missing field %q", key)
		}
		switch s[key] {
		case FieldBool:
			b, ok := raw.(bool)
			if !ok {
				return nil, errors.Wrapf(ErrSchemaValidation, "field %q: want bool, got %T", key, raw)
			}
			out[key] = b
		case FieldString:
			str, ok := raw.(string)
			if !ok {
				return nil, errors.Wrapf(ErrSchemaValidation, "field %q: want string, got %T", key, raw)
			}
			out[key] = str
		case FieldStringList:
			list, err := stringList(raw)
			if err != nil {
				return nil, errors.Wrapf(ErrSchemaValidation, "field %q: %v", key, err)
			}
			out[key] = list
		default:
			return nil, errors.Errorf("field %q: unknown schema type %q", key, s[key])
		}
	}
	return out, nil
}

func stringList(raw any) ([]string, error) {
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, errors.Errorf("element %d: want string, got %T", i, item)
			}
			out = append(out, str)
		}
		return out, nil
	case nil:
		return []string{}, nil
	default:
		return nil, errors.Errorf("want list of strings, got %T", raw)
	}
}

// StructuredInstruction appends the reply-format constraint to a system context.
func StructuredInstruction(system string, schema Schema) string {
	return system + "\n\nRespond with a single JSON object and nothing else, shaped exactly as: " + schema.Describe()
}
