package planner

import (
	"encoding/json"
	"strings"

	"tripchat-backend/internal/i18n"
)

// ParseResponse normalizes the assistant's raw response body into a single
// display string. The webhook's response shape is not contractually fixed
// (deployments have returned JSON arrays, JSON objects, and plain text), so
// parsing is tolerant and total: it never fails, it only degrades.
//
// Attempts, first success wins:
//  1. JSON array whose first element carries an "output" field.
//  2. JSON object carrying "message", "plan", or "output" (in that priority).
//  3. Non-empty JSON object with none of those fields: its compact
//     serialization, so nothing is silently dropped.
//  4. The raw text body, when JSON parsing fails or yielded an empty object.
//  5. A localized placeholder when the body is empty.
func ParseResponse(body []byte, lang i18n.Lang) string {
	if text, ok := parseArrayOutput(body); ok {
		return text
	}
	if text, ok := parseObjectField(body); ok {
		return text
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return i18n.T(lang, i18n.KeyEmptyResponse)
}

// parseArrayOutput handles the array-of-objects shape: [{"output": "..."}].
func parseArrayOutput(body []byte) (string, bool) {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil || len(items) == 0 {
		return "", false
	}
	return stringField(items[0], "output")
}

// parseObjectField handles the single-object shapes. Field priority is
// message > plan > output; a non-empty object with none of them is
// re-serialized as the fallback.
func parseObjectField(body []byte) (string, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil || len(obj) == 0 {
		return "", false
	}
	for _, field := range []string{"message", "plan", "output"} {
		if text, ok := stringField(obj, field); ok {
			return text, true
		}
	}
	serialized, err := json.Marshal(obj)
	if err != nil {
		return "", false
	}
	return string(serialized), true
}

// stringField extracts a JSON string field from a decoded object.
func stringField(obj map[string]json.RawMessage, field string) (string, bool) {
	raw, ok := obj[field]
	if !ok {
		return "", false
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil || text == "" {
		return "", false
	}
	return text, true
}
