package llmservice

import (
	"context"
	"errors"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/wagadu/finsight/internal/config"
)

// Generator produces a chat completion for a system prompt and user
// message. The production implementation calls an OpenAI-compatible
// endpoint; tests substitute fakes.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

type client struct {
	cfg *config.LLMConfig
}

func NewClient(cfg *config.LLMConfig) Generator {
	return &client{cfg: cfg}
}

func (c *client) Generate(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	llm, err := openai.New(
		openai.WithBaseURL(c.cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(c.cfg.Key, "Bearer ")),
		openai.WithModel(c.cfg.Model),
	)
	if err != nil {
		return "", err
	}

	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, userMessage),
	}
	res, err := llm.GenerateContent(ctx, messages, llms.WithTemperature(0.2))
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", errors.New("generation returned no choices")
	}
	return res.Choices[0].Content, nil
}
