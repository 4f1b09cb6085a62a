package voicerag

import (
	"go.uber.org/zap"

	"github.com/kailas-cloud/voicerag/internal/db"
	"github.com/kailas-cloud/voicerag/internal/domain"
	segmentrepo "github.com/kailas-cloud/voicerag/internal/repository/segment"
	"github.com/kailas-cloud/voicerag/internal/transport/assemblyai"
	openaiTransport "github.com/kailas-cloud/voicerag/internal/transport/openai"
)

// providerSettings are recorded by provider options and turned into
// adapters only after all options have applied, so the final logger is
// the one the adapters receive.
type providerSettings struct {
	apiKey string
	model  string
}

type clientConfig struct {
	redisAddrs    []string
	redisPassword string
	store         db.Store

	assemblyai providerSettings
	embedding  providerSettings
	generation providerSettings

	transcriber domain.Transcriber
	embedder    domain.Embedder
	synthesizer domain.Synthesizer

	keyPrefix   string
	indexParams segmentrepo.IndexParams
	topK        int
	maxTopK     int
	logger      *zap.Logger
}

// buildProviders constructs the built-in adapters for any settings-based
// options; injected providers take precedence.
func (c *clientConfig) buildProviders() {
	if c.transcriber == nil && c.assemblyai.apiKey != "" {
		c.transcriber = assemblyai.New(&assemblyai.Config{
			APIKey: c.assemblyai.apiKey,
			Logger: c.logger,
		})
	}
	if c.embedder == nil && c.embedding.apiKey != "" {
		c.embedder = openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
			APIKey:   c.embedding.apiKey,
			Model:    c.embedding.model,
			Provider: "openai",
			Logger:   c.logger,
		})
	}
	if c.synthesizer == nil && c.generation.apiKey != "" {
		c.synthesizer = openaiTransport.NewSynthesizer(&openaiTransport.SynthesizerConfig{
			APIKey:   c.generation.apiKey,
			Model:    c.generation.model,
			Provider: "openai",
			Logger:   c.logger,
		})
	}
}

// Option configures a Client.
type Option func(*clientConfig)

// WithRedis points the client at a Redis deployment. Password may be empty.
func WithRedis(addrs []string, password string) Option {
	return func(c *clientConfig) {
		c.redisAddrs = addrs
		c.redisPassword = password
	}
}

// WithStore injects a pre-built store, bypassing WithRedis. The caller owns
// readiness; Close still closes it.
func WithStore(store db.Store) Option {
	return func(c *clientConfig) { c.store = store }
}

// WithAssemblyAI uses AssemblyAI for speaker-diarized transcription.
func WithAssemblyAI(apiKey string) Option {
	return func(c *clientConfig) {
		c.assemblyai = providerSettings{apiKey: apiKey}
	}
}

// WithEmbedding uses an OpenAI-compatible embedding endpoint.
func WithEmbedding(apiKey, model string) Option {
	return func(c *clientConfig) {
		c.embedding = providerSettings{apiKey: apiKey, model: model}
	}
}

// WithGeneration uses an OpenAI-compatible chat endpoint for answer synthesis.
func WithGeneration(apiKey, model string) Option {
	return func(c *clientConfig) {
		c.generation = providerSettings{apiKey: apiKey, model: model}
	}
}

// WithTranscriber injects a custom transcription provider.
func WithTranscriber(t domain.Transcriber) Option {
	return func(c *clientConfig) { c.transcriber = t }
}

// WithEmbedder injects a custom embedding provider.
func WithEmbedder(e domain.Embedder) Option {
	return func(c *clientConfig) { c.embedder = e }
}

// WithSynthesizer injects a custom answer synthesis provider.
func WithSynthesizer(s domain.Synthesizer) Option {
	return func(c *clientConfig) { c.synthesizer = s }
}

// WithKeyPrefix overrides the key namespace (default "voicerag:").
func WithKeyPrefix(prefix string) Option {
	return func(c *clientConfig) { c.keyPrefix = prefix }
}

// WithIndexParams overrides HNSW build parameters.
func WithIndexParams(m, efConstruct int) Option {
	return func(c *clientConfig) {
		c.indexParams = segmentrepo.IndexParams{M: m, EFConstruct: efConstruct}
	}
}

// WithTopK sets the default and maximum retrieval depth.
func WithTopK(topK, maxTopK int) Option {
	return func(c *clientConfig) {
		c.topK = topK
		c.maxTopK = maxTopK
	}
}

// WithLogger attaches a logger. Option order does not matter: built-in
// providers are constructed after all options have applied.
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) { c.logger = logger }
}
