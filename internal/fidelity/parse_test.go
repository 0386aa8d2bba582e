package fidelity

import (
	"testing"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		found    bool
		desc     string
	}{
		{`{"a": 1}`, `{"a": 1}`, true, "Bare object"},
		{"Sure!\n```json\n{\"results\": []}\n```", `{"results": []}`, true, "Fenced object"},
		{`{"a": "}{"} trailing {"b": 2}`, `{"a": "}{"}`, true, "Braces inside strings"},
		{`{"a": "say \"}\""}`, `{"a": "say \"}\""}`, true, "Escaped quotes"},
		{`{not json} then {"ok": true}`, `{"ok": true}`, true, "Skips invalid candidate"},
		{`{"outer": {"inner": 1}}`, `{"outer": {"inner": 1}}`, true, "Nested"},
		{`no json at all`, "", false, "No braces"},
		{`{"unterminated": `, "", false, "Unbalanced"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got, found := ExtractJSONObject(tt.input)
			if found != tt.found || got != tt.expected {
				t.Errorf("Expected (%q, %v), got (%q, %v)", tt.expected, tt.found, got, found)
			}
		})
	}
}

func TestNormalizeClaims(t *testing.T) {
	got := NormalizeClaims([]string{" one ", "", "two", "one", "\t", "three"})
	want := []string{"one", "two", "three"}

	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, got)
		}
	}
}
