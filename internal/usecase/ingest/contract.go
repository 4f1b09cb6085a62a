package ingest

import (
	"context"
	"io"

	"github.com/kailas-cloud/voicerag/internal/domain"
)

// Repository defines the storage contract for segments.
type Repository interface {
	InsertMany(ctx context.Context, segments []domain.Segment) error
	EnsureIndex(ctx context.Context, dim int) error
	ListBySession(ctx context.Context, session domain.SessionID) ([]domain.Segment, error)
	Purge(ctx context.Context) error
}

// Transcriber converts raw audio into an ordered diarized transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) ([]domain.Utterance, error)
}

// Embedder vectorizes a batch of texts.
type Embedder interface {
	Embed(ctx context.Context, texts []string, mode domain.EmbedMode) ([][]float32, error)
}
