// Package llm wraps the chat model behind a minimal interface so the
// classifier stages can run against fakes in tests.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/farmachile/medagent/config"
)

var ErrLLMDisabled = errors.New("llm client disabled (missing api key)")

// Client is the single capability the pipeline needs from a chat model.
type Client interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// OpenAIClient adapts a langchaingo OpenAI model to Client. Classification
// calls run at temperature zero; the per-call timeout comes from config.
type OpenAIClient struct {
	model   llms.Model
	timeout time.Duration
}

// NewFromConfig builds the chat client. A missing key is a deliberate
// disabled state, not a crash; callers decide whether the heuristic
// fallbacks are enough.
func NewFromConfig(cfg config.Config) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		return nil, ErrLLMDisabled
	}
	model, err := openai.New(
		openai.WithModel(cfg.OpenAIModel),
		openai.WithToken(cfg.OpenAIAPIKey),
	)
	if err != nil {
		return nil, fmt.Errorf("llm: init openai client: %w", err)
	}
	return &OpenAIClient{model: model, timeout: cfg.LLMTimeout}, nil
}

// Chat sends one system+user exchange and returns the trimmed completion.
func (c *OpenAIClient) Chat(ctx context.Context, system, user string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	msgs := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}
	resp, err := c.model.GenerateContent(ctx, msgs, llms.WithTemperature(0))
	if err != nil {
		return "", fmt.Errorf("llm: chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm: empty choices")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}
