package answer

import (
	"context"

	"github.com/kailas-cloud/voicerag/internal/domain"
)

// Repository defines the retrieval contract for segments.
type Repository interface {
	SearchKNN(ctx context.Context, session domain.SessionID, vector []float32, k int) ([]domain.Hit, error)
}

// Embedder vectorizes a batch of texts.
type Embedder interface {
	Embed(ctx context.Context, texts []string, mode domain.EmbedMode) ([][]float32, error)
}

// Synthesizer composes a natural-language answer grounded in context snippets.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, snippets []string) (string, error)
}
