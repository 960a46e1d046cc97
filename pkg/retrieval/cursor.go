package retrieval

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

type cursorPayload struct {
	Offset int `json:"offset"`
}

// EncodeCursor produces an opaque pagination token for the raw
// retrieve endpoint. Callers must not parse it.
func EncodeCursor(offset int) string {
	if offset <= 0 {
		return ""
	}
	raw, _ := json.Marshal(cursorPayload{Offset: offset})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor reverses EncodeCursor. An empty token means offset 0.
func DecodeCursor(token string) (int, error) {
	if token == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, fmt.Errorf("malformed cursor: %w", err)
	}
	var p cursorPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return 0, fmt.Errorf("malformed cursor: %w", err)
	}
	if p.Offset < 0 {
		return 0, fmt.Errorf("malformed cursor: negative offset")
	}
	return p.Offset, nil
}
