// Package assemblyai implements diarized speech-to-text over the AssemblyAI
// REST v2 API: upload the audio, create a transcript job with speaker
// labels, then poll until the job settles.
package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/voicerag/internal/domain"
	"github.com/kailas-cloud/voicerag/internal/metrics"
)

const providerName = "assemblyai"

// Transcriber implements domain.Transcriber against the AssemblyAI API.
type Transcriber struct {
	baseURL      string
	apiKey       string
	languageCode string
	speechModel  string
	pollInterval time.Duration
	pollTimeout  time.Duration
	httpClient   *http.Client
	logger       *zap.Logger
}

// Config holds the transcription provider settings.
type Config struct {
	APIKey       string
	BaseURL      string
	LanguageCode string
	SpeechModel  string
	PollInterval time.Duration
	PollTimeout  time.Duration
	Logger       *zap.Logger
}

// New creates an AssemblyAI transcription provider.
func New(cfg *Config) *Transcriber {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.assemblyai.com"
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}
	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 10 * time.Minute
	}

	return &Transcriber{
		baseURL:      baseURL,
		apiKey:       cfg.APIKey,
		languageCode: cfg.LanguageCode,
		speechModel:  cfg.SpeechModel,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
		httpClient:   &http.Client{Timeout: 2 * time.Minute},
		logger:       cfg.Logger,
	}
}

// transcriptRequest is the POST /v2/transcript body.
type transcriptRequest struct {
	AudioURL      string `json:"audio_url"`
	SpeakerLabels bool   `json:"speaker_labels"`
	LanguageCode  string `json:"language_code,omitempty"`
	SpeechModel   string `json:"speech_model,omitempty"`
}

// transcriptResponse is the transcript resource returned on create and poll.
type transcriptResponse struct {
	ID         string `json:"id"`
	Status     string `json:"status"` // queued | processing | completed | error
	Error      string `json:"error,omitempty"`
	Utterances []struct {
		Speaker string `json:"speaker"`
		Text    string `json:"text"`
	} `json:"utterances"`
}

// Transcribe implements domain.Transcriber. Blocks until the remote job
// completes, fails, or the poll timeout elapses.
func (t *Transcriber) Transcribe(ctx context.Context, audio io.Reader, filename string) ([]domain.Utterance, error) {
	start := time.Now()

	utterances, err := t.transcribe(ctx, audio, filename)
	duration := time.Since(start)

	if err != nil {
		metrics.TranscriptionRequestsTotal.WithLabelValues(providerName, "error").Inc()
		return nil, err
	}

	metrics.TranscriptionRequestsTotal.WithLabelValues(providerName, "success").Inc()
	metrics.TranscriptionDuration.WithLabelValues(providerName).Observe(duration.Seconds())

	t.logger.Info("transcription completed",
		zap.String("filename", filename),
		zap.Int("utterances", len(utterances)),
		zap.Duration("duration", duration),
	)

	return utterances, nil
}

func (t *Transcriber) transcribe(ctx context.Context, audio io.Reader, filename string) ([]domain.Utterance, error) {
	audioURL, err := t.upload(ctx, audio)
	if err != nil {
		return nil, err
	}

	jobID, err := t.createJob(ctx, audioURL)
	if err != nil {
		return nil, err
	}

	t.logger.Debug("transcript job created",
		zap.String("job_id", jobID),
		zap.String("filename", filename),
	)

	final, err := t.poll(ctx, jobID)
	if err != nil {
		return nil, err
	}

	utterances := make([]domain.Utterance, len(final.Utterances))
	for i, u := range final.Utterances {
		utterances[i] = domain.Utterance{
			// The API labels speakers "A", "B", ...; the stored form is "Speaker A".
			Speaker: "Speaker " + u.Speaker,
			Text:    u.Text,
		}
	}
	return utterances, nil
}

// upload streams the audio bytes to /v2/upload and returns the temporary URL.
func (t *Transcriber) upload(ctx context.Context, audio io.Reader) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v2/upload", audio)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Authorization", t.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload audio: %v: %w", err, domain.ErrTranscription)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apiError("upload", resp)
	}

	var parsed struct {
		UploadURL string `json:"upload_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode upload response: %v: %w", err, domain.ErrTranscription)
	}
	if parsed.UploadURL == "" {
		return "", fmt.Errorf("upload response missing url: %w", domain.ErrTranscription)
	}
	return parsed.UploadURL, nil
}

// createJob submits a diarized transcript job for an uploaded audio URL.
func (t *Transcriber) createJob(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(transcriptRequest{
		AudioURL:      audioURL,
		SpeakerLabels: true,
		LanguageCode:  t.languageCode,
		SpeechModel:   t.speechModel,
	})
	if err != nil {
		return "", fmt.Errorf("marshal transcript request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v2/transcript", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build transcript request: %w", err)
	}
	req.Header.Set("Authorization", t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create transcript: %v: %w", err, domain.ErrTranscription)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apiError("create transcript", resp)
	}

	var parsed transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode transcript response: %v: %w", err, domain.ErrTranscription)
	}
	if parsed.ID == "" {
		return "", fmt.Errorf("transcript response missing id: %w", domain.ErrTranscription)
	}
	return parsed.ID, nil
}

// poll fetches the transcript resource until its status settles.
func (t *Transcriber) poll(ctx context.Context, jobID string) (*transcriptResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, t.pollTimeout)
	defer cancel()

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		current, err := t.fetchJob(ctx, jobID)
		if err != nil {
			return nil, err
		}

		switch current.Status {
		case "completed":
			return current, nil
		case "error":
			return nil, fmt.Errorf("transcript job %s failed: %s: %w",
				jobID, current.Error, domain.ErrTranscription)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("transcript job %s: %v: %w", jobID, ctx.Err(), domain.ErrTranscription)
		case <-ticker.C:
		}
	}
}

func (t *Transcriber) fetchJob(ctx context.Context, jobID string) (*transcriptResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/v2/transcript/"+jobID, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build poll request: %w", err)
	}
	req.Header.Set("Authorization", t.apiKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll transcript: %v: %w", err, domain.ErrTranscription)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError("poll transcript", resp)
	}

	var parsed transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode poll response: %v: %w", err, domain.ErrTranscription)
	}
	return &parsed, nil
}

// HealthCheck verifies API reachability and key validity with a cheap
// listing request.
func (t *Transcriber) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/v2/transcript?limit=1", http.NoBody)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	req.Header.Set("Authorization", t.apiKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("transcription API unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("transcription API returned %d", resp.StatusCode)
	}
	return nil
}

func apiError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("%s: API error %d: %s: %w",
		op, resp.StatusCode, string(body), domain.ErrTranscription)
}
