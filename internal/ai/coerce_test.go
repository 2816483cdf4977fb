package ai

import "testing"

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain json untouched",
			input: `{"amount": 10}`,
			want:  `{"amount": 10}`,
		},
		{
			name:  "json fence",
			input: "```json\n{\"amount\": 10}\n```",
			want:  `{"amount": 10}`,
		},
		{
			name:  "bare fence",
			input: "```\n[1, 2]\n```",
			want:  `[1, 2]`,
		},
		{
			name:  "prose around object",
			input: "Here is the result: {\"ok\": true} hope that helps",
			want:  `{"ok": true}`,
		},
		{
			name:  "whitespace only",
			input: "   \n  ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanModelJSON(tt.input); got != tt.want {
				t.Errorf("CleanModelJSON(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestOptionalString(t *testing.T) {
	m := map[string]interface{}{
		"ok":     " value ",
		"null":   nil,
		"number": 3.14,
		"empty":  "",
	}

	tests := []struct {
		key  string
		want string
	}{
		{"ok", "value"},
		{"null", ""},
		{"number", ""},
		{"empty", ""},
		{"missing", ""},
	}

	for _, tt := range tests {
		if got := OptionalString(m, tt.key); got != tt.want {
			t.Errorf("OptionalString(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestOptionalFloat(t *testing.T) {
	m := map[string]interface{}{
		"ok":     84.3,
		"string": "84.3",
		"null":   nil,
	}

	if v, ok := OptionalFloat(m, "ok"); !ok || v != 84.3 {
		t.Errorf("OptionalFloat(ok) = %v, %v", v, ok)
	}
	if _, ok := OptionalFloat(m, "string"); ok {
		t.Error("string value should not read as a float")
	}
	if _, ok := OptionalFloat(m, "null"); ok {
		t.Error("null value should not read as a float")
	}
	if _, ok := OptionalFloat(m, "missing"); ok {
		t.Error("missing key should not read as a float")
	}
}

func TestOptionalBool(t *testing.T) {
	m := map[string]interface{}{
		"yes":    true,
		"no":     false,
		"string": "true",
	}

	if !OptionalBool(m, "yes") {
		t.Error("expected true")
	}
	if OptionalBool(m, "no") || OptionalBool(m, "string") || OptionalBool(m, "missing") {
		t.Error("expected false for no/string/missing")
	}
}

func TestOptionalStringSlice(t *testing.T) {
	m := map[string]interface{}{
		"items": []interface{}{"a", " b ", "", 3},
		"wrong": "not a slice",
	}

	got := OptionalStringSlice(m, "items")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("OptionalStringSlice(items) = %v", got)
	}
	if OptionalStringSlice(m, "wrong") != nil {
		t.Error("expected nil for non-slice value")
	}
}
