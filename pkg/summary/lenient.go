package summary

import "strings"

// stringField returns a string value; any other type, null or a missing key
// keeps the fallback.
func stringField(obj map[string]any, key, fallback string) string {
	if v, ok := obj[key].(string); ok {
		return v
	}
	return fallback
}

func boolField(obj map[string]any, key string, fallback bool) bool {
	if v, ok := obj[key].(bool); ok {
		return v
	}
	return fallback
}

// stringList keeps string items of an array field; a non-array keeps the fallback.
func stringList(obj map[string]any, key string, fallback []string) []string {
	items, ok := obj[key].([]any)
	if !ok {
		return fallback
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if v, ok := item.(string); ok {
			if s := strings.TrimSpace(v); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
