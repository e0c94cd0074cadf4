package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseJSONObject(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]any
		ok   bool
	}{
		{"plain", `{"a":1}`, map[string]any{"a": float64(1)}, true},
		{"fenced", "```json\n{\"a\":\"x\"}\n```", map[string]any{"a": "x"}, true},
		{"trailing comma", `{"a":"x",}`, map[string]any{"a": "x"}, true},
		{"array", `[1,2]`, nil, false},
		{"empty", "   ", nil, false},
		{"null", "null", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseJSONObject(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
