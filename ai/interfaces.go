package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The same text must produce the same vector for the lifetime of the process.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// TopicModel groups documents into topics from their texts and embeddings.
// Implementations must be thread-safe for concurrent use.
type TopicModel interface {
	// Fit assigns every document a topic id. The returned slice has one entry
	// per input document, in input order; -1 marks an outlier. A successful Fit
	// replaces whatever the model learned before.
	Fit(ctx context.Context, texts []string, embeddings [][]float32) ([]int, error)

	// Keywords returns the representative words of a topic from the most
	// recent successful Fit, best first. Unknown topics yield nil.
	Keywords(topicID int) []TopicKeyword
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages the Embedder and TopicModel instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// TopicModel returns the topic modeling service.
	// The returned TopicModel is safe for concurrent use.
	TopicModel() TopicModel

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
