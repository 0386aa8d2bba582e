package llm

import (
	"testing"

	"github.com/yaoqinxue-cmd/BriStack/internal/model"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		config   Config
		wantName string
		wantErr  bool
		desc     string
	}{
		{Config{}, "", false, "disabled"},
		{Config{Provider: "OpenAI", APIKey: "k"}, "openai", false, "openai case-insensitive"},
		{Config{Provider: "claude", APIKey: "k"}, "anthropic", false, "claude alias"},
		{Config{Provider: "ollama"}, "ollama", false, "ollama without key"},
		{Config{Provider: "anthropic"}, "", true, "anthropic without key"},
		{Config{Provider: "gemini", APIKey: "k"}, "", true, "unknown provider"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			provider, err := NewProvider(tt.config)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				if provider != nil {
					t.Error("Expected untyped nil provider on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tt.wantName == "" {
				if provider != nil {
					t.Errorf("Expected nil provider, got %s", provider.Name())
				}
				return
			}
			if provider.Name() != tt.wantName {
				t.Errorf("Expected %s, got %s", tt.wantName, provider.Name())
			}
		})
	}
}

func TestConfigFromModel(t *testing.T) {
	cfg := ConfigFromModel(model.LLMConfig{
		Provider:  "openai",
		Model:     "gpt-4o-mini",
		APIKey:    "k",
		Timeout:   12,
		MaxTokens: 300,
		HTTPProxy: "http://proxy:3128",
	})

	if cfg.Provider != "openai" || cfg.Model != "gpt-4o-mini" || cfg.Timeout != 12 || cfg.MaxTokens != 300 {
		t.Errorf("Unexpected config: %+v", cfg)
	}
	if cfg.HTTPProxy != "http://proxy:3128" {
		t.Errorf("Proxy not carried over: %+v", cfg)
	}
}

func TestConfigResolve(t *testing.T) {
	cfg := Config{Model: "configured", MaxTokens: 500}

	model, system, maxTokens := cfg.resolve(CompletionRequest{}, "fallback")
	if model != "configured" || system != DefaultSystemPrompt || maxTokens != 500 {
		t.Errorf("Unexpected defaults: %s %q %d", model, system, maxTokens)
	}

	model, system, maxTokens = cfg.resolve(CompletionRequest{Model: "req", System: "sys", MaxTokens: 10}, "fallback")
	if model != "req" || system != "sys" || maxTokens != 10 {
		t.Errorf("Request values not preferred: %s %q %d", model, system, maxTokens)
	}

	model, _, maxTokens = Config{}.resolve(CompletionRequest{}, "fallback")
	if model != "fallback" || maxTokens != 1000 {
		t.Errorf("Unexpected fallbacks: %s %d", model, maxTokens)
	}
}
