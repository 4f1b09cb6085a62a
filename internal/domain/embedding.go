package domain

import "context"

// EmbedMode selects the embedding computation. Document and query vectors
// from the same model share geometry and are comparable under cosine
// similarity; some models prefix different instructions per mode.
type EmbedMode string

const (
	// EmbedDocument embeds text that will be stored.
	EmbedDocument EmbedMode = "document"
	// EmbedQuery embeds text that will be searched.
	EmbedQuery EmbedMode = "query"
)

// Embedder vectorizes a batch of texts. The result has the same length
// and order as the input.
type Embedder interface {
	Embed(ctx context.Context, texts []string, mode EmbedMode) ([][]float32, error)
}
