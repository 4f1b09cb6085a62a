package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/voicerag/internal/domain"
)

type chatCompletionResponse struct {
	Object  string `json:"object"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func newChatServer(t *testing.T, handle func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(handle))
	t.Cleanup(server.Close)
	return server
}

func chatOK(content string) chatCompletionResponse {
	var resp chatCompletionResponse
	resp.Object = "chat.completion"
	resp.Choices = make([]struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	}, 1)
	resp.Choices[0].Message.Role = "assistant"
	resp.Choices[0].Message.Content = content
	resp.Choices[0].FinishReason = "stop"
	return resp
}

func TestSynthesizer_Synthesize(t *testing.T) {
	var gotPrompt string

	server := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) != 1 {
			t.Fatalf("expected 1 message, got %d", len(req.Messages))
		}
		gotPrompt = req.Messages[0].Content

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatOK("The budget was approved."))
	})

	syn := NewSynthesizer(&SynthesizerConfig{
		APIKey:         "test-key",
		BaseURL:        server.URL,
		Model:          "test-model",
		Provider:       "test",
		AnswerLanguage: "English",
		Logger:         zap.NewNop(),
	})

	answer, err := syn.Synthesize(context.Background(),
		"what was decided about the budget?",
		[]string{"Speaker A: budget is approved", "Speaker B: great"},
	)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if answer != "The budget was approved." {
		t.Errorf("unexpected answer: %q", answer)
	}

	for _, want := range []string{
		"Context information is below.",
		"Speaker A: budget is approved\n\n---\n\nSpeaker B: great",
		"think step by step",
		"Please answer in English.",
		"Query: what was decided about the budget?",
	} {
		if !strings.Contains(gotPrompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, gotPrompt)
		}
	}
}

func TestSynthesizer_Synthesize_NoSnippets(t *testing.T) {
	syn := NewSynthesizer(&SynthesizerConfig{
		APIKey: "k", Model: "m", AnswerLanguage: "English", Logger: zap.NewNop(),
	})

	_, err := syn.Synthesize(context.Background(), "query", nil)
	if !errors.Is(err, domain.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestSynthesizer_Synthesize_APIError(t *testing.T) {
	server := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"detail": "model overloaded"}`))
	})

	syn := NewSynthesizer(&SynthesizerConfig{
		APIKey: "k", BaseURL: server.URL, Model: "m", Provider: "test",
		AnswerLanguage: "English", Logger: zap.NewNop(),
	})

	_, err := syn.Synthesize(context.Background(), "query", []string{"snippet"})
	if !errors.Is(err, domain.ErrSynthesis) {
		t.Fatalf("expected ErrSynthesis, got %v", err)
	}
}

func TestSynthesizer_Synthesize_EmptyCompletion(t *testing.T) {
	server := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object": "chat.completion", "choices": []}`))
	})

	syn := NewSynthesizer(&SynthesizerConfig{
		APIKey: "k", BaseURL: server.URL, Model: "m", Provider: "test",
		AnswerLanguage: "English", Logger: zap.NewNop(),
	})

	_, err := syn.Synthesize(context.Background(), "query", []string{"snippet"})
	if !errors.Is(err, domain.ErrSynthesis) {
		t.Fatalf("expected ErrSynthesis, got %v", err)
	}
}
