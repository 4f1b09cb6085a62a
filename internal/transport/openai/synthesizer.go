package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/voicerag/internal/domain"
	"github.com/kailas-cloud/voicerag/internal/metrics"
)

// Synthesizer generates grounded answers via the chat completions API.
type Synthesizer struct {
	client   *openai.Client
	model    string
	language string
	provider string
	logger   *zap.Logger
}

// SynthesizerConfig holds the generation provider settings.
type SynthesizerConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Provider string

	// AnswerLanguage is injected into the prompt; answers come back in it
	// regardless of the transcript language.
	AnswerLanguage string

	Logger *zap.Logger
}

// NewSynthesizer creates an OpenAI-compatible chat completion provider.
func NewSynthesizer(cfg *SynthesizerConfig) *Synthesizer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Synthesizer{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		language: cfg.AnswerLanguage,
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

// contextSeparator joins retrieved snippets inside the prompt's context block.
const contextSeparator = "\n\n---\n\n"

// Synthesize implements domain.Synthesizer. The prompt constrains the model
// to the supplied snippets only.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, snippets []string) (string, error) {
	if len(snippets) == 0 {
		return "", fmt.Errorf("no context snippets: %w", domain.ErrEmptyInput)
	}

	prompt := buildPrompt(query, snippets, s.language)

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	duration := time.Since(start)

	if err != nil {
		metrics.SynthesisRequestsTotal.WithLabelValues(s.provider, s.model, "error").Inc()
		return "", parseAPIError("synthesis", err, domain.ErrSynthesis)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		metrics.SynthesisRequestsTotal.WithLabelValues(s.provider, s.model, "error").Inc()
		return "", fmt.Errorf("empty completion response: %w", domain.ErrSynthesis)
	}

	metrics.SynthesisRequestsTotal.WithLabelValues(s.provider, s.model, "success").Inc()
	metrics.SynthesisRequestDuration.WithLabelValues(s.provider, s.model).Observe(duration.Seconds())

	s.logger.Debug("synthesized answer",
		zap.Int("snippets", len(snippets)),
		zap.Duration("duration", duration),
	)

	return resp.Choices[0].Message.Content, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (s *Synthesizer) HealthCheck(ctx context.Context) error {
	if _, err := s.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func buildPrompt(query string, snippets []string, language string) string {
	var b strings.Builder
	b.WriteString("Context information is below.\n")
	b.WriteString("-----------------------\n")
	b.WriteString(strings.Join(snippets, contextSeparator))
	b.WriteString("\n-----------------------\n")
	b.WriteString("Given the context information above, think step by step ")
	b.WriteString("to answer the query in a crisp manner. ")
	fmt.Fprintf(&b, "Please answer in %s.\n", language)
	fmt.Fprintf(&b, "Query: %s\n", query)
	b.WriteString("Answer: ")
	return b.String()
}
