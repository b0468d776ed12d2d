package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/khabar/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// requestBatchSize caps the texts langchaingo sends in one HTTP request.
const requestBatchSize = 64

// Embedder implements ai.Embedder against an OpenAI-compatible
// /embeddings endpoint, such as Ollama serving all-minilm.
type Embedder struct {
	embedder   embeddings.Embedder
	model      string
	dimensions int
	logger     *slog.Logger
}

func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Local services ignore the token, but the client refuses to start without one.
	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken("none"),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithStripNewLines(true),
		embeddings.WithBatchSize(requestBatchSize),
	)
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder:   embedder,
		model:      config.EmbeddingModel,
		dimensions: config.Dimensions,
		logger:     slog.Default().With("component", "openai-embedder", "model", config.EmbeddingModel),
	}, nil
}

// NewEmbedder creates an embedder for the host and model in config.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText embeds a single item text or query.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedTexts embeds texts in order, one vector per text. A response with a
// different vector count fails the whole call with ErrVectorCount.
// Vectors whose length differs from the configured dimensions are
// returned as-is and logged; consumers that need a fixed length drop them.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("embedding request failed", "texts", len(texts), "err", err)
		return nil, err
	}
	if len(vecs) != len(texts) {
		e.logger.Error("embedding response size mismatch", "texts", len(texts), "vectors", len(vecs))
		return nil, fmt.Errorf("%w: %d vectors for %d texts", ErrVectorCount, len(vecs), len(texts))
	}

	if off := e.offDimension(vecs); off > 0 {
		e.logger.Warn("embedding dimension differs from configuration",
			"vectors", off, "of", len(vecs), "want", e.dimensions)
	}
	e.logger.Debug("embedded texts", "texts", len(texts))
	return vecs, nil
}

// offDimension counts vectors whose length is not the configured size.
func (e *Embedder) offDimension(vecs [][]float32) int {
	if e.dimensions <= 0 {
		return 0
	}
	off := 0
	for _, vec := range vecs {
		if len(vec) != e.dimensions {
			off++
		}
	}
	return off
}
