package content

import (
	"testing"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		desc     string
	}{
		{
			input:    "<h1>Title</h1><p>First <strong>bold</strong> paragraph.</p><p>Second.</p>",
			expected: "Title\n\nFirst bold paragraph.\n\nSecond.",
			desc:     "Headings and paragraphs",
		},
		{
			input:    "<ul><li>One</li><li>Two</li></ul><p>After</p>",
			expected: "- One\n- Two\n\nAfter",
			desc:     "Lists",
		},
		{
			input:    "<p>Line one<br>Line two</p>",
			expected: "Line one\nLine two",
			desc:     "Line breaks",
		},
		{
			input:    "<p>Text</p><script>alert(1)</script><style>p{}</style>",
			expected: "Text",
			desc:     "Scripts and styles dropped",
		},
		{
			input:    "<p>Fish &amp; chips&nbsp;today</p>",
			expected: "Fish & chips today",
			desc:     "Entities decoded",
		},
		{
			input:    "Plain   markdown\n\n\n\nwith gaps",
			expected: "Plain markdown with gaps",
			desc:     "Non-HTML input",
		},
		{
			input:    "",
			expected: "",
			desc:     "Empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got, err := PlainText(tt.input)
			if err != nil {
				t.Fatalf("PlainText failed: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestReadingTime(t *testing.T) {
	if got := ReadingTime(""); got != 0 {
		t.Errorf("Expected 0 for empty text, got %d", got)
	}
	if got := ReadingTime("one two three"); got != 1 {
		t.Errorf("Expected 1 minute, got %d", got)
	}

	words := make([]byte, 0, 401*4)
	for i := 0; i < 401; i++ {
		words = append(words, "abc "...)
	}
	if got := ReadingTime(string(words)); got != 3 {
		t.Errorf("Expected 3 minutes for 401 words, got %d", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("Expected untouched text, got %q", got)
	}
	if got := Truncate("hello", 3); got != "hel" {
		t.Errorf("Expected hel, got %q", got)
	}
	if got := Truncate("你好世界", 2); got != "你好" {
		t.Errorf("Expected rune-safe cut, got %q", got)
	}
	if got := Truncate("abc", 0); got != "abc" {
		t.Errorf("Expected no limit for 0, got %q", got)
	}
}
