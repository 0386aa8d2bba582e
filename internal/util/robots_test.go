package util

import (
	"strings"
	"testing"

	"github.com/yaoqinxue-cmd/BriStack/internal/model"
)

func TestRobotsPolicy_AllowAll(t *testing.T) {
	policy, err := NewRobotsPolicy(model.RobotsConfig{})
	if err != nil {
		t.Fatalf("NewRobotsPolicy failed: %v", err)
	}

	if !strings.Contains(policy.Body(), "User-agent: *") {
		t.Errorf("Expected wildcard group, got:\n%s", policy.Body())
	}
	if !policy.Allows("GPTBot/1.0", "/p/hello") {
		t.Error("Expected every agent to be allowed")
	}
}

func TestRobotsPolicy_DisallowAI(t *testing.T) {
	policy, err := NewRobotsPolicy(model.RobotsConfig{
		DisallowAI: true,
		AIAgents:   []string{"GPTBot", "ClaudeBot"},
		Disallow:   []string{"/admin"},
	})
	if err != nil {
		t.Fatalf("NewRobotsPolicy failed: %v", err)
	}

	tests := []struct {
		ua       string
		path     string
		expected bool
		desc     string
	}{
		{"Mozilla/5.0 AppleWebKit/537.36 (KHTML, like Gecko; compatible; GPTBot/1.2; +https://openai.com/gptbot)", "/p/hello", false, "AI crawler with full header"},
		{"ClaudeBot/1.0", "/", false, "AI crawler token first"},
		{"Mozilla/5.0 (Windows NT 10.0) Chrome/124.0", "/p/hello", true, "Browser on content"},
		{"Mozilla/5.0 (Windows NT 10.0) Chrome/124.0", "/admin/users", false, "Browser on disallowed path"},
		{"Googlebot/2.1", "", true, "Other crawler on root"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := policy.Allows(tt.ua, tt.path); got != tt.expected {
				t.Errorf("Expected %v for %s on %s, got %v", tt.expected, tt.ua, tt.path, got)
			}
		})
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	tests := map[string]string{
		"GPTBot/1.0 (+https://openai.com/gptbot)": "GPTBot",
		"curl/8.4.0":                              "curl",
		"":                                        "",
	}

	for ua, want := range tests {
		if got := NormalizeUserAgent(ua); got != want {
			t.Errorf("NormalizeUserAgent(%q) = %q, want %q", ua, got, want)
		}
	}
}
