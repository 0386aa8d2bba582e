package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func newTestViper(t *testing.T, yamlConfig string) *viper.Viper {
	t.Helper()
	v := viper.New()
	bindEnv(v)

	if yamlConfig != "" {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte(yamlConfig), 0o600); err != nil {
			t.Fatal(err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			t.Fatalf("read config: %v", err)
		}
	}
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(newTestViper(t, ""))
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("Expected default addr, got %q", cfg.Server.Addr)
	}
	if cfg.Engagement.ReadDepth != 90 || cfg.Engagement.VerificationReads != 3 {
		t.Errorf("Unexpected engagement defaults: %+v", cfg.Engagement)
	}
	if len(cfg.Detection.Categories) == 0 || cfg.Detection.Categories[0].Category != "openai" {
		t.Errorf("Expected default categories, got %+v", cfg.Detection.Categories)
	}
	if cfg.LLM.Provider != "" {
		t.Errorf("Expected oracle disabled by default, got %q", cfg.LLM.Provider)
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	t.Setenv("BRISTACK_SERVER_ADDR", ":9090")
	t.Setenv("BRISTACK_HASH_SECRET", "pepper")
	t.Setenv("BRISTACK_ENGAGEMENT_VERIFICATION_READS", "5")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	v := newTestViper(t, `
server:
  addr: ":7070"
  trust_forwarded: true
detection:
  suspicion_threshold: 0.6
llm:
  provider: anthropic
`)

	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	tests := []struct {
		got      any
		expected any
		desc     string
	}{
		{cfg.Server.Addr, ":9090", "Env overrides file"},
		{cfg.Server.TrustForwarded, true, "File overrides default"},
		{cfg.Detection.SuspicionThreshold, 0.6, "Nested float from file"},
		{cfg.Detection.InstantResponseMs, 50, "Untouched default kept"},
		{cfg.Engagement.VerificationReads, 5, "Env for key absent from file"},
		{cfg.Privacy.HashSecret, "pepper", "Unprefixed secret alias"},
		{cfg.LLM.APIKey, "sk-ant-test", "Provider key from conventional variable"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, tt.got)
			}
		})
	}
}

func TestLoadConfig_OllamaBaseURL(t *testing.T) {
	t.Setenv("BRISTACK_LLM_PROVIDER", "ollama")
	t.Setenv("OLLAMA_BASE_URL", "http://gpu-box:11434")

	cfg, err := loadConfig(newTestViper(t, ""))
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.LLM.BaseURL != "http://gpu-box:11434" {
		t.Errorf("Expected OLLAMA_BASE_URL, got %q", cfg.LLM.BaseURL)
	}
}

func TestLoadConfig_FetchProxy(t *testing.T) {
	inherited, err := loadConfig(newTestViper(t, `
llm:
  http_proxy: http://proxy.internal:3128
  no_proxy: localhost
`))
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if inherited.Fetch.HTTPProxy != "http://proxy.internal:3128" || inherited.Fetch.NoProxy != "localhost" {
		t.Errorf("Expected llm proxy settings for fetch, got %+v", inherited.Fetch)
	}

	own, err := loadConfig(newTestViper(t, `
llm:
  http_proxy: http://proxy.internal:3128
fetch:
  https_proxy: http://egress:8443
`))
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if own.Fetch.HTTPProxy != "" || own.Fetch.HTTPSProxy != "http://egress:8443" {
		t.Errorf("Expected fetch proxy settings kept, got %+v", own.Fetch)
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"short", "****"},
		{"sk-ant-api03-abcdef", "sk-a****"},
	}

	for _, tt := range tests {
		if got := mask(tt.input); got != tt.expected {
			t.Errorf("mask(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestMaskDSN(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"bristack.db", "bristack.db"},
		{"postgres://app:s3cret@db:5432/bristack?sslmode=disable", "postgres://app:****@db:5432/bristack?sslmode=disable"},
		{"postgres://app@db/bristack", "postgres://app@db/bristack"},
	}

	for _, tt := range tests {
		if got := maskDSN(tt.input); got != tt.expected {
			t.Errorf("maskDSN(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
