// Package retrieval finds knowledge-base fragments semantically close to a question.
package retrieval

import (
	"context"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
)

// Searcher returns up to k documents ordered by similarity to query.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]model.Document, error)
}

// Embedder turns text into a vector. langchaingo embedders satisfy it.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// NewOllamaEmbedder embeds through a local Ollama server.
func NewOllamaEmbedder(cfg model.SearchConfig) (Embedder, error) {
	llm, err := ollama.New(
		ollama.WithModel(cfg.EmbeddingModel),
		ollama.WithServerURL(cfg.OllamaURL),
	)
	if err != nil {
		return nil, err
	}
	emb, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, err
	}
	return emb, nil
}
