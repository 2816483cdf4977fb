package ai

import (
	"strings"
)

// CleanModelJSON strips Markdown fences and surrounding prose from model
// output that was asked for raw JSON but did not fully comply.
func CleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// If there is still junk around the JSON value, keep only the outermost
	// object or array.
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(s, pair[0])
		end := strings.LastIndex(s, pair[1])
		if start != -1 && end > start && (start == 0 || !strings.ContainsAny(s[:start], "{[")) {
			s = strings.TrimSpace(s[start : end+1])
			break
		}
	}
	return s
}

// The model's JSON is untrusted: every field is read defensively, checking
// presence and kind before use. Wrong-typed or null fields read as absent.

// OptionalString returns a trimmed string field, or "" when the field is
// missing, null, empty or not a string.
func OptionalString(m map[string]interface{}, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// OptionalFloat returns a numeric field, or (0, false) when missing, null
// or not a number.
func OptionalFloat(m map[string]interface{}, key string) (float64, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case int: // unlikely from encoding/json, but harmless to support
		return float64(val), true
	default:
		return 0, false
	}
}

// OptionalBool returns a boolean field, defaulting to false.
func OptionalBool(m map[string]interface{}, key string) bool {
	v, ok := m[key]
	if !ok || v == nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// OptionalStringSlice returns a field that should be an array of strings.
func OptionalStringSlice(m map[string]interface{}, key string) []string {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
