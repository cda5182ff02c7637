package generate

import "encoding/json"

var structuredPaths = [][]any{
	{"candidates", 0, "content", "parts", 0, "text"},
}

var legacyPaths = [][]any{
	{"candidates", 0, "output"},
	{"candidates", 0, "text"},
	{"output"},
	{"text"},
	{"predictions", 0, "content"},
}

// extractor returns a function that reads the answer from the first path that
// exists. Non-string values are serialized. If nothing matches, the raw body is
// the answer.
func extractor(paths [][]any) func(body []byte) string {
	return func(body []byte) string {
		var v any
		if err := json.Unmarshal(body, &v); err != nil {
			return string(body)
		}
		for _, path := range paths {
			found, ok := lookup(v, path)
			if !ok {
				continue
			}
			if s, ok := found.(string); ok {
				return s
			}
			if b, err := json.Marshal(found); err == nil {
				return string(b)
			}
		}
		return string(body)
	}
}

func lookup(v any, path []any) (any, bool) {
	for _, p := range path {
		switch p := p.(type) {
		case string:
			m, ok := v.(map[string]any)
			if !ok {
				return nil, false
			}
			if v, ok = m[p]; !ok {
				return nil, false
			}
		case int:
			a, ok := v.([]any)
			if !ok || p >= len(a) {
				return nil, false
			}
			v = a[p]
		}
	}
	return v, v != nil
}
