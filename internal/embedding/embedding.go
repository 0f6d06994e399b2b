package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"ragstore/internal/config"
)

// Embedder converts text into fixed-dimension vectors. EmbedDocuments
// returns one vector per input text, in the same order.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Factory builds embedders for a given model name over the configured
// provider. Every store records the model it was built with, and queries
// must embed with that same model, so the factory is the single place
// embedders come from.
type Factory struct {
	cfg *config.LLMConfig
}

func NewFactory(cfg *config.LLMConfig) *Factory {
	return &Factory{cfg: cfg}
}

// New returns an embedder for the named model. An empty model falls back
// to the configured default.
func (f *Factory) New(model string) (Embedder, error) {
	if model == "" {
		model = f.cfg.Model
	}
	switch f.cfg.Provider {
	case "ollama", "":
		return newOllamaEmbedder(f.cfg.BaseURL, model)
	case "openai":
		return newOpenAIEmbedder(f.cfg.BaseURL, f.cfg.Key, model)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", f.cfg.Provider)
	}
}

func newOllamaEmbedder(baseURL, model string) (*embeddings.EmbedderImpl, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(baseURL),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama embedding client: %v", err)
	}
	return embeddings.NewEmbedder(llm)
}

func newOpenAIEmbedder(baseURL, key, model string) (*embeddings.EmbedderImpl, error) {
	llm, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(strings.TrimPrefix(key, "Bearer ")),
		openai.WithModel(model),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize openai embedding client: %v", err)
	}
	return embeddings.NewEmbedder(llm)
}
