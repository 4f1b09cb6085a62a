// Package ingest runs the recording pipeline: transcribe, embed, persist,
// ensure the vector index.
package ingest

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/kailas-cloud/voicerag/internal/domain"
)

// IndexStatus reports whether the vector index is confirmed after ingestion.
type IndexStatus string

const (
	// IndexReady means the index exists or was created during ingestion.
	IndexReady IndexStatus = "ready"
	// IndexUnknown means segments are persisted but index creation could
	// not be confirmed. Queries may fail until a later ingestion repairs it.
	IndexUnknown IndexStatus = "unknown"
)

// Receipt summarizes a completed ingestion.
type Receipt struct {
	SessionID   domain.SessionID
	Segments    int
	IndexStatus IndexStatus
}

// Service handles recording ingestion and storage reset.
type Service struct {
	repo        Repository
	transcriber Transcriber
	embedder    Embedder
	logger      *zap.Logger
}

// New creates an ingest service.
func New(repo Repository, transcriber Transcriber, embedder Embedder, logger *zap.Logger) *Service {
	return &Service{
		repo:        repo,
		transcriber: transcriber,
		embedder:    embedder,
		logger:      logger,
	}
}

// Ingest transcribes a recording, embeds every segment, and persists them
// under a fresh session id. Index creation failure does not fail the
// ingestion: segments are durable and the receipt reports IndexUnknown.
func (s *Service) Ingest(ctx context.Context, audio io.Reader, filename string) (Receipt, error) {
	utterances, err := s.transcriber.Transcribe(ctx, audio, filename)
	if err != nil {
		return Receipt{}, fmt.Errorf("transcribe %s: %w", filename, err)
	}
	if len(utterances) == 0 {
		return Receipt{}, fmt.Errorf("transcript of %s has no utterances: %w", filename, domain.ErrEmptyInput)
	}

	texts := make([]string, len(utterances))
	for i, u := range utterances {
		texts[i] = u.SegmentText()
	}

	vectors, err := s.embedder.Embed(ctx, texts, domain.EmbedDocument)
	if err != nil {
		return Receipt{}, fmt.Errorf("embed %d segments: %w", len(texts), err)
	}

	session := domain.NewSessionID()
	segments, err := domain.BuildSegments(session, utterances, vectors)
	if err != nil {
		return Receipt{}, fmt.Errorf("build segments: %w", err)
	}

	if err := s.repo.InsertMany(ctx, segments); err != nil {
		return Receipt{}, fmt.Errorf("persist session %s: %w: %w", session, domain.ErrStoreWrite, err)
	}

	receipt := Receipt{
		SessionID:   session,
		Segments:    len(segments),
		IndexStatus: IndexReady,
	}

	// Dimension comes from the vectors just produced, so the index always
	// matches what the configured embedding model actually returns.
	if err := s.repo.EnsureIndex(ctx, len(vectors[0])); err != nil {
		s.logger.Warn("index creation not confirmed, segments remain stored",
			zap.String("session_id", session.String()),
			zap.Error(fmt.Errorf("%w: %w", domain.ErrIndexStatusUnknown, err)),
		)
		receipt.IndexStatus = IndexUnknown
	}

	s.logger.Info("recording ingested",
		zap.String("session_id", session.String()),
		zap.String("filename", filename),
		zap.Int("segments", receipt.Segments),
		zap.String("index_status", string(receipt.IndexStatus)),
	)

	return receipt, nil
}

// Transcript returns a session's stored segments in utterance order.
func (s *Service) Transcript(ctx context.Context, session domain.SessionID) ([]domain.Segment, error) {
	segments, err := s.repo.ListBySession(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("list session %s: %w", session, err)
	}
	return segments, nil
}

// Reset deletes every stored segment and drops the vector index.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.repo.Purge(ctx); err != nil {
		return fmt.Errorf("reset storage: %w: %w", domain.ErrStoreWrite, err)
	}
	s.logger.Info("storage reset, all sessions purged")
	return nil
}
