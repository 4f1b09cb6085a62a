// Package voicerag is an embedded client for the voicerag pipeline: ingest
// diarized recordings into a Redis vector index and ask grounded questions
// about them, without running the HTTP server.
//
//	client, _ := voicerag.New(
//	    voicerag.WithRedis([]string{"localhost:6379"}, ""),
//	    voicerag.WithAssemblyAI(os.Getenv("ASSEMBLYAI_API_KEY")),
//	    voicerag.WithEmbedding(os.Getenv("OPENAI_API_KEY"), "text-embedding-3-small"),
//	    voicerag.WithGeneration(os.Getenv("OPENAI_API_KEY"), "gpt-4o-mini"),
//	)
//	defer client.Close()
//
//	receipt, _ := client.IngestRecording(ctx, audioFile, "meeting.mp3")
//	answer, _ := client.Ask(ctx, "what was decided?", voicerag.InSession(receipt.SessionID))
package voicerag

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/voicerag/internal/db"
	dbRedis "github.com/kailas-cloud/voicerag/internal/db/redis"
	"github.com/kailas-cloud/voicerag/internal/domain"
	segmentrepo "github.com/kailas-cloud/voicerag/internal/repository/segment"
	answeruc "github.com/kailas-cloud/voicerag/internal/usecase/answer"
	ingestuc "github.com/kailas-cloud/voicerag/internal/usecase/ingest"
)

const defaultReadinessTimeout = 10 * time.Second

// Re-exported domain types, so SDK users never import internal packages.
type (
	// SessionID identifies one ingested recording.
	SessionID = domain.SessionID
	// Segment is one stored transcript utterance.
	Segment = domain.Segment
	// Answer is the query pipeline result.
	Answer = domain.Answer
	// Receipt summarizes a completed ingestion.
	Receipt = ingestuc.Receipt
)

// Client is the voicerag SDK entry point.
type Client struct {
	store  db.Store
	ingest *ingestuc.Service
	answer *answeruc.Service
}

func newClientConfig() *clientConfig {
	return &clientConfig{
		keyPrefix:   "voicerag:",
		indexParams: segmentrepo.IndexParams{M: 32, EFConstruct: 400},
		logger:      zap.NewNop(),
	}
}

// New creates a Client and connects to the database.
func New(opts ...Option) (*Client, error) {
	cfg := newClientConfig()
	for _, o := range opts {
		o(cfg)
	}
	cfg.buildProviders()

	store := cfg.store
	if store == nil {
		if len(cfg.redisAddrs) == 0 {
			return nil, errors.New("voicerag: a database is required (WithRedis or WithStore)")
		}
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.redisAddrs,
			Password: cfg.redisPassword,
		})
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), defaultReadinessTimeout)
		defer cancel()
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, err
		}
		store = s
	}

	if cfg.transcriber == nil {
		return nil, errors.New("voicerag: a transcriber is required (WithAssemblyAI or WithTranscriber)")
	}
	if cfg.embedder == nil {
		return nil, errors.New("voicerag: an embedder is required (WithEmbedding or WithEmbedder)")
	}
	if cfg.synthesizer == nil {
		return nil, errors.New("voicerag: a synthesizer is required (WithGeneration or WithSynthesizer)")
	}

	repo := segmentrepo.New(store, cfg.keyPrefix, cfg.indexParams)

	c := &Client{
		store:  store,
		ingest: ingestuc.New(repo, cfg.transcriber, cfg.embedder, cfg.logger),
		answer: answeruc.New(repo, cfg.embedder, cfg.synthesizer, cfg.logger),
	}
	if cfg.topK > 0 {
		c.answer.WithTopK(cfg.topK, cfg.maxTopK)
	}
	return c, nil
}

// IngestRecording transcribes, embeds, and stores a recording under a fresh
// session id.
func (c *Client) IngestRecording(ctx context.Context, audio io.Reader, filename string) (Receipt, error) {
	return c.ingest.Ingest(ctx, audio, filename)
}

// AskOption scopes a question.
type AskOption func(*askConfig)

type askConfig struct {
	session SessionID
	topK    int
}

// InSession restricts retrieval to one session.
func InSession(session SessionID) AskOption {
	return func(c *askConfig) { c.session = session }
}

// WithDepth overrides how many segments are retrieved.
func WithDepth(topK int) AskOption {
	return func(c *askConfig) { c.topK = topK }
}

// Ask answers a question grounded in stored segments. The answer's Outcome
// field reports degraded results; err is non-nil only for invalid input.
func (c *Client) Ask(ctx context.Context, query string, opts ...AskOption) (Answer, error) {
	var cfg askConfig
	for _, o := range opts {
		o(&cfg)
	}
	return c.answer.Answer(ctx, query, cfg.session, cfg.topK)
}

// Transcript returns a session's segments in utterance order.
func (c *Client) Transcript(ctx context.Context, session SessionID) ([]Segment, error) {
	return c.ingest.Transcript(ctx, session)
}

// Reset purges all stored segments and drops the index.
func (c *Client) Reset(ctx context.Context) error {
	return c.ingest.Reset(ctx)
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// Close releases the database connection.
func (c *Client) Close() {
	c.store.Close()
}
