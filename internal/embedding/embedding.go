// Package embedding wraps the external embedding provider behind a small
// client interface so retrieval and ingestion can be tested with fakes.
package embedding

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/wagadu/finsight/internal/config"
)

// ErrUnavailable is returned when no embedding provider is configured or
// the provider returned no vector. Callers on the retrieval path degrade
// to an empty result rather than surfacing this to the user.
var ErrUnavailable = errors.New("embedding provider unavailable")

// Client produces a fixed-length vector for a piece of text.
type Client interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// NewEmbedder creates an embedder against an OpenAI-compatible endpoint.
func NewEmbedder(cfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbedder(llm)
}

// NewOllamaEmbedder creates an embedder against a local ollama server.
func NewOllamaEmbedder(cfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbedder(llm)
}

// Embed returns the vector for text, mapping missing-provider and
// empty-vector conditions onto ErrUnavailable.
func Embed(ctx context.Context, client Client, text string) ([]float32, error) {
	if client == nil {
		return nil, ErrUnavailable
	}
	vec, err := client.EmbedQuery(ctx, text)
	if err != nil {
		log.Warn().Err(err).Msg("embedding call failed")
		return nil, err
	}
	if len(vec) == 0 {
		return nil, ErrUnavailable
	}
	return vec, nil
}
