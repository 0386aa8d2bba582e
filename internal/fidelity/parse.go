package fidelity

import (
	"encoding/json"
	"strings"
)

// judgment is one per-claim verdict of the verification stage
type judgment struct {
	Index     *int   `json:"index,omitempty"`
	Point     string `json:"point"`
	Preserved bool   `json:"preserved"`
}

// verdict is the JSON payload of the verification stage
type verdict struct {
	Results     []judgment `json:"results"`
	Suggestions []string   `json:"suggestions"`
}

// ExtractJSONObject returns the first balanced {...} substring of text that
// is valid JSON. Braces inside JSON strings are ignored while balancing.
func ExtractJSONObject(text string) (string, bool) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end, ok := balancedEnd(text, start); ok {
			candidate := text[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}

		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// balancedEnd finds the index of the brace closing the one at start
func balancedEnd(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// reconcile maps oracle judgments onto the author's claims. Each claim is
// judged at most once: by index when the oracle echoes a valid one,
// otherwise by exact then normalised text. Unmatched and repeated judgments
// are dropped; claims the oracle skipped are lost, in author order.
func reconcile(claims []string, results []judgment) (preserved, lost []string) {
	judged := make([]bool, len(claims))

	exact := make(map[string]int, len(claims))
	loose := make(map[string]int, len(claims))
	for i, c := range claims {
		if _, ok := exact[c]; !ok {
			exact[c] = i
		}
		if _, ok := loose[normalize(c)]; !ok {
			loose[normalize(c)] = i
		}
	}

	preserved = []string{}
	lost = []string{}

	for _, r := range results {
		idx := -1
		if r.Index != nil && *r.Index >= 1 && *r.Index <= len(claims) && !judged[*r.Index-1] {
			idx = *r.Index - 1
		} else if i, ok := exact[strings.TrimSpace(r.Point)]; ok && !judged[i] {
			idx = i
		} else if i, ok := loose[normalize(r.Point)]; ok && !judged[i] {
			idx = i
		}
		if idx < 0 {
			continue
		}

		judged[idx] = true
		if r.Preserved {
			preserved = append(preserved, claims[idx])
		} else {
			lost = append(lost, claims[idx])
		}
	}

	for i, c := range claims {
		if !judged[i] {
			lost = append(lost, c)
		}
	}
	return preserved, lost
}

// NormalizeClaims trims claims and drops empty and duplicate ones, keeping
// the first occurrence
func NormalizeClaims(claims []string) []string {
	seen := make(map[string]bool, len(claims))
	out := make([]string, 0, len(claims))
	for _, c := range claims {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func cleanSuggestions(in []string) []string {
	out := []string{}
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
