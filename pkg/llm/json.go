package llm

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ParseJSONObject reads a JSON object out of model output. Code fences are
// stripped and malformed JSON is passed through jsonrepair once.
func ParseJSONObject(raw string) (map[string]any, bool) {
	text := StripCodeFence(raw)
	if text == "" {
		return nil, false
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		return obj, obj != nil
	}

	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return nil, false
	}
	if err := json.Unmarshal([]byte(repaired), &obj); err != nil {
		return nil, false
	}
	return obj, obj != nil
}

func StripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
