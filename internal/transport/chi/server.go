// Package chi exposes the HTTP API: recording ingestion, question
// answering, transcript listing, reset, health, and metrics.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/voicerag/internal/domain"
	answeruc "github.com/kailas-cloud/voicerag/internal/usecase/answer"
	healthuc "github.com/kailas-cloud/voicerag/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/voicerag/internal/usecase/ingest"
)

// maxUploadBytes caps recording uploads (100 MiB).
const maxUploadBytes = 100 << 20

// ErrorCode is a machine-readable error identifier in error responses.
type ErrorCode string

const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeEmptyInput       ErrorCode = "empty_input"
	CodeSessionNotFound  ErrorCode = "session_not_found"
	CodeUpstreamFailed   ErrorCode = "upstream_failed"
	CodeStoreUnavailable ErrorCode = "store_unavailable"
	CodeInternalError    ErrorCode = "internal_error"
)

// errorResponse is the JSON error body.
type errorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Server handles the HTTP API.
type Server struct {
	ingest *ingestuc.Service
	answer *answeruc.Service
	health *healthuc.Service
	logger *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	ingest *ingestuc.Service,
	answer *answeruc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	return &Server{
		ingest: ingest,
		answer: answer,
		health: health,
		logger: logger,
	}
}

// Routes registers all endpoints on the router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/recordings", s.handleCreateRecording)
		r.Post("/questions", s.handleAskQuestion)
		r.Get("/sessions/{sessionID}/segments", s.handleListSegments)
		r.Post("/reset", s.handleReset)
	})
}

// --- Recordings ---

type recordingResponse struct {
	SessionID   string `json:"session_id"`
	Segments    int    `json:"segments"`
	IndexStatus string `json:"index_status"`
}

// handleCreateRecording handles POST /v1/recordings (multipart, field "audio").
func (s *Server) handleCreateRecording(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "multipart field 'audio' is required")
		return
	}
	defer file.Close()

	if header.Size == 0 {
		writeError(w, http.StatusBadRequest, CodeEmptyInput, "uploaded audio is empty")
		return
	}

	receipt, err := s.ingest.Ingest(r.Context(), file, header.Filename)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, recordingResponse{
		SessionID:   receipt.SessionID.String(),
		Segments:    receipt.Segments,
		IndexStatus: string(receipt.IndexStatus),
	})
}

// --- Questions ---

type questionRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
	TopK      int    `json:"top_k,omitempty"`
}

type citationDTO struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

type answerResponse struct {
	Answer    string        `json:"answer"`
	Outcome   string        `json:"outcome"`
	Citations []citationDTO `json:"citations"`
}

// handleAskQuestion handles POST /v1/questions. Degraded outcomes still
// return 200: the outcome field tells them apart.
func (s *Server) handleAskQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return
	}

	// session_id is optional: absent means searching across all sessions.
	var session domain.SessionID
	if req.SessionID != "" {
		parsed, err := domain.ParseSessionID(req.SessionID)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid session_id")
			return
		}
		session = parsed
	}

	answer, err := s.answer.Answer(r.Context(), req.Query, session, req.TopK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	citations := make([]citationDTO, len(answer.Citations))
	for i, c := range answer.Citations {
		citations[i] = citationDTO{Text: c.Text, Score: c.Score}
	}

	writeJSON(w, http.StatusOK, answerResponse{
		Answer:    answer.Text,
		Outcome:   string(answer.Outcome),
		Citations: citations,
	})
}

// --- Sessions ---

type segmentDTO struct {
	Seq  int    `json:"seq"`
	Text string `json:"text"`
}

type segmentsResponse struct {
	SessionID string       `json:"session_id"`
	Segments  []segmentDTO `json:"segments"`
}

// handleListSegments handles GET /v1/sessions/{sessionID}/segments.
func (s *Server) handleListSegments(w http.ResponseWriter, r *http.Request) {
	session, err := domain.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil || session.IsZero() {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid session id")
		return
	}

	segments, err := s.ingest.Transcript(r.Context(), session)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	dtos := make([]segmentDTO, len(segments))
	for i, seg := range segments {
		dtos[i] = segmentDTO{Seq: seg.Seq, Text: seg.Text}
	}

	writeJSON(w, http.StatusOK, segmentsResponse{
		SessionID: session.String(),
		Segments:  dtos,
	})
}

// --- Reset ---

// handleReset handles POST /v1/reset.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.ingest.Reset(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Health ---

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// handleHealth handles GET /health. Degraded providers still return 200;
// only a dead database yields 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for name, result := range report.Checks {
		checks[name] = string(result)
	}

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// --- Error mapping ---

// sentinelStatus maps domain sentinels to HTTP responses.
var sentinelStatus = []struct {
	sentinel error
	status   int
	code     ErrorCode
}{
	{domain.ErrEmptyInput, http.StatusBadRequest, CodeEmptyInput},
	{domain.ErrVectorDimMismatch, http.StatusBadRequest, CodeBadRequest},
	{domain.ErrSessionNotFound, http.StatusNotFound, CodeSessionNotFound},
	{domain.ErrTranscription, http.StatusBadGateway, CodeUpstreamFailed},
	{domain.ErrEmbedding, http.StatusBadGateway, CodeUpstreamFailed},
	{domain.ErrSynthesis, http.StatusBadGateway, CodeUpstreamFailed},
	{domain.ErrStoreWrite, http.StatusBadGateway, CodeStoreUnavailable},
	{domain.ErrStoreQuery, http.StatusBadGateway, CodeStoreUnavailable},
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	for _, m := range sentinelStatus {
		if errors.Is(err, m.sentinel) {
			s.logger.Warn("domain error", zap.Error(err))
			writeError(w, m.status, m.code, m.sentinel.Error())
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
