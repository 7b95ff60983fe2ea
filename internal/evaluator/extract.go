package evaluator

import (
	"strings"

	"github.com/tidwall/gjson"
)

// ExtractObject returns the first well-formed JSON object embedded in text,
// tolerating markdown fences and surrounding prose. For each opening brace it
// tries the widest closing brace first.
func ExtractObject(text string) (map[string]any, error) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		for end := strings.LastIndexByte(text, '}'); end > start; end = strings.LastIndexByte(text[:end], '}') {
			candidate := text[start : end+1]
			if !gjson.Valid(candidate) {
				continue
			}
			if obj, ok := gjson.Parse(candidate).Value().(map[string]any); ok {
				return obj, nil
			}
		}

		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, ErrMalformedResponse
}
