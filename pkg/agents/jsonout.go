package agents

import (
	"encoding/json"
	"fmt"
	"strings"
)

// decodeModelJSON parses the model's completion as JSON into out.
// Models wrap JSON in prose or code fences often enough that the raw
// text is scanned for the outermost object when direct parsing fails.
func decodeModelJSON(text string, out any) error {
	text = strings.TrimSpace(text)
	if err := json.Unmarshal([]byte(text), out); err == nil {
		return nil
	}

	if fenced := stripCodeFence(text); fenced != text {
		if err := json.Unmarshal([]byte(fenced), out); err == nil {
			return nil
		}
		text = fenced
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(text[start:end+1]), out); err == nil {
			return nil
		}
	}
	return fmt.Errorf("model output is not valid JSON")
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	body := strings.TrimPrefix(text, "```")
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	}
	if i := strings.LastIndex(body, "```"); i >= 0 {
		body = body[:i]
	}
	return strings.TrimSpace(body)
}
