// Package answer runs the query pipeline: embed the question, retrieve the
// most similar segments, synthesize a grounded answer.
package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/voicerag/internal/domain"
)

// Fixed answer texts for degraded outcomes. The not-found text mirrors what
// retrieval-empty always returned in this system: no LLM call is made.
const (
	noContextAnswer       = "Sorry, I could not find any relevant information in the stored recordings."
	retrievalFailedAnswer = "Search failed, please try again later."
	synthesisFailedAnswer = "Answer generation failed; the retrieved excerpts are attached."
)

// Service answers questions about ingested recordings.
type Service struct {
	repo        Repository
	embedder    Embedder
	synthesizer Synthesizer
	defaultTopK int
	maxTopK     int
	logger      *zap.Logger
}

// New creates an answer service.
func New(repo Repository, embedder Embedder, synthesizer Synthesizer, logger *zap.Logger) *Service {
	return &Service{
		repo:        repo,
		embedder:    embedder,
		synthesizer: synthesizer,
		defaultTopK: 5,
		maxTopK:     20,
		logger:      logger,
	}
}

// WithTopK configures retrieval depth limits.
func (s *Service) WithTopK(defaultTopK, maxTopK int) *Service {
	if defaultTopK > 0 {
		s.defaultTopK = defaultTopK
	}
	if maxTopK > 0 {
		s.maxTopK = maxTopK
	}
	return s
}

// Answer resolves a question against one session's segments. Remote
// failures never surface as errors: the outcome field classifies them and
// the text stays presentable. An error is returned only for invalid input.
func (s *Service) Answer(
	ctx context.Context, query string, session domain.SessionID, topK int,
) (domain.Answer, error) {
	if strings.TrimSpace(query) == "" {
		return domain.Answer{}, fmt.Errorf("empty query: %w", domain.ErrEmptyInput)
	}

	k := topK
	if k <= 0 {
		k = s.defaultTopK
	}
	if k > s.maxTopK {
		k = s.maxTopK
	}

	vectors, err := s.embedder.Embed(ctx, []string{query}, domain.EmbedQuery)
	if err != nil {
		s.logger.Error("query embedding failed", zap.Error(err))
		return domain.Answer{Text: retrievalFailedAnswer, Outcome: domain.OutcomeRetrievalFailed}, nil
	}

	hits, err := s.repo.SearchKNN(ctx, session, vectors[0], k)
	if err != nil {
		s.logger.Error("segment search failed",
			zap.String("session_id", session.String()),
			zap.Error(err),
		)
		return domain.Answer{Text: retrievalFailedAnswer, Outcome: domain.OutcomeRetrievalFailed}, nil
	}

	if len(hits) == 0 {
		return domain.Answer{Text: noContextAnswer, Outcome: domain.OutcomeNoContext}, nil
	}

	snippets := make([]string, len(hits))
	citations := make([]domain.Citation, len(hits))
	for i, h := range hits {
		snippets[i] = h.Text
		citations[i] = domain.Citation{Text: h.Text, Score: h.Score}
	}

	text, err := s.synthesizer.Synthesize(ctx, query, snippets)
	if err != nil {
		s.logger.Error("answer synthesis failed",
			zap.String("session_id", session.String()),
			zap.Int("hits", len(hits)),
			zap.Error(err),
		)
		return domain.Answer{
			Text:      synthesisFailedAnswer,
			Outcome:   domain.OutcomeSynthesisFailed,
			Citations: citations,
		}, nil
	}

	s.logger.Info("question answered",
		zap.String("session_id", session.String()),
		zap.Int("hits", len(hits)),
		zap.Int("top_k", k),
	)

	return domain.Answer{
		Text:      text,
		Outcome:   domain.OutcomeGrounded,
		Citations: citations,
	}, nil
}
