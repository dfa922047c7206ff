package llm

import (
	"testing"

	"github.com/farmachile/medagent/config"
)

func TestNewFromConfigMissingKey(t *testing.T) {
	cfg := config.Config{OpenAIModel: "gpt-4o-mini"}
	if _, err := NewFromConfig(cfg); err != ErrLLMDisabled {
		t.Fatalf("expected ErrLLMDisabled, got %v", err)
	}
}

func TestNewFromConfigWithKey(t *testing.T) {
	cfg := config.Config{OpenAIModel: "gpt-4o-mini", OpenAIAPIKey: "sk-test123"}
	client, err := NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if client == nil {
		t.Fatal("expected client, got nil")
	}
	var _ Client = client
}
