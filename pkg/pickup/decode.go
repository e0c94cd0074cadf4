package pickup

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
)

const maxUnwrapDepth = 2

// request is the envelope the detector posts back.
type request struct {
	Result   json.RawMessage `json:"result"`
	FrameRef *string         `json:"frame_ref"`
}

// detection is the decoded detector output after unwrapping.
type detection struct {
	PickupDetected    bool
	Confidence        *float64
	VisibleText       []string
	BrandHint         string
	CategoryHint      string
	VisualDescription string
}

// decodeRequest parses the outer envelope and unwraps the result. ok is false
// for anything that is not a well formed detection.
func decodeRequest(raw []byte) (detection, string, bool) {
	var req request
	if err := json.Unmarshal(raw, &req); err != nil {
		return detection{}, "", false
	}
	frameRef := ""
	if req.FrameRef != nil {
		frameRef = strings.TrimSpace(*req.FrameRef)
	}
	out, ok := unwrap(req.Result, 1)
	return out, frameRef, ok
}

// unwrap resolves result values that are JSON text or {result: ...} wrappers.
func unwrap(raw json.RawMessage, depth int) (detection, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return detection{}, false
	}

	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return detection{}, false
		}
		raw = bytes.TrimSpace([]byte(text))
		if len(raw) == 0 || raw[0] != '{' {
			return detection{}, false
		}
	}
	if raw[0] != '{' {
		return detection{}, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return detection{}, false
	}

	_, hasFlag := fields["pickup_detected"]
	if inner, wrapped := fields["result"]; wrapped && !hasFlag {
		if depth >= maxUnwrapDepth {
			return detection{}, false
		}
		return unwrap(inner, depth+1)
	}

	return toDetection(fields), true
}

func toDetection(fields map[string]json.RawMessage) detection {
	var d detection
	_ = json.Unmarshal(fields["pickup_detected"], &d.PickupDetected)

	var confidence float64
	if err := json.Unmarshal(fields["confidence"], &confidence); err == nil &&
		!math.IsNaN(confidence) && !math.IsInf(confidence, 0) {
		d.Confidence = &confidence
	}

	var items []any
	if err := json.Unmarshal(fields["visible_text"], &items); err == nil {
		for _, item := range items {
			if s, ok := item.(string); ok {
				d.VisibleText = append(d.VisibleText, s)
			}
		}
	}

	d.BrandHint = stringField(fields["brand_hint"])
	d.CategoryHint = stringField(fields["category_hint"])
	d.VisualDescription = stringField(fields["visual_description"])
	return d
}

func stringField(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
