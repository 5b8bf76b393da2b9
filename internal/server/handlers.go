package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/factcheck"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/model"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/youtube"
)

type healthResponse struct {
	Status                  string `json:"status"`
	Service                 string `json:"service"`
	FactCheckProvider       string `json:"fact_check_provider"`
	PerplexityAPIConfigured bool   `json:"perplexity_api_configured"`
	OpenAIAPIConfigured     bool   `json:"openai_api_configured"`
	DatabaseConnected       bool   `json:"database_connected"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:              "healthy",
		Service:             "TruthSeeker",
		FactCheckProvider:   s.deps.Checker.ProviderName(),
		OpenAIAPIConfigured: s.deps.OpenAIConfigured,
	}
	resp.PerplexityAPIConfigured = resp.FactCheckProvider == "perplexity"

	if s.deps.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		resp.DatabaseConnected = s.deps.Store.Ping(ctx) == nil
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFactCheck(w http.ResponseWriter, r *http.Request) {
	var req model.FactCheckRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, s.logger, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	result, err := s.deps.Pipeline.CheckStatement(r.Context(), req)
	if errors.Is(err, factcheck.ErrEmptyStatement) {
		writeError(w, s.logger, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		writeInternalError(w, s.logger, "fact-checking service error", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTranscription(w http.ResponseWriter, r *http.Request) {
	var update model.TranscriptionUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		writeError(w, s.logger, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	resp, err := s.deps.Pipeline.ProcessTranscription(r.Context(), update)
	if err != nil {
		writeInternalError(w, s.logger, "transcription processing error", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

type sessionFactChecksResponse struct {
	SessionID  string                  `json:"session_id"`
	FactChecks []model.FactCheckRecord `json:"fact_checks"`
}

func (s *Server) handleSessionFactChecks(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	records, err := s.deps.Pipeline.SessionFactChecks(r.Context(), sessionID)
	if err != nil {
		writeInternalError(w, s.logger, "error retrieving fact checks", err)
		return
	}

	writeJSON(w, http.StatusOK, sessionFactChecksResponse{SessionID: sessionID, FactChecks: records})
}

func (s *Server) handleSetVideo(w http.ResponseWriter, r *http.Request) {
	var req model.SetVideoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, s.logger, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if strings.TrimSpace(req.AdminUser) == "" {
		req.AdminUser = "admin"
	}

	result, err := s.deps.Processor.SetVideo(r.Context(), req.VideoURL, req.AdminUser)
	switch {
	case errors.Is(err, youtube.ErrInvalidURL):
		writeJSON(w, http.StatusBadRequest, result)
	case err != nil:
		s.logger.Error("error setting video", zap.String("url", req.VideoURL), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, result)
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

type processingResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Status  model.ProcessorStatus `json:"status"`
}

func (s *Server) handleStartProcessing(w http.ResponseWriter, r *http.Request) {
	started := s.deps.Processor.StartProcessing()
	status := s.deps.Processor.Status()

	resp := processingResponse{Success: true, Status: status}
	switch {
	case started:
		resp.Message = "Processing started"
	case status.VideoID == "":
		resp.Success = false
		resp.Message = "No video selected"
	case !status.IsProcessing:
		resp.Success = false
		resp.Message = "Video change in progress"
	default:
		resp.Message = "Processing already running"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStopProcessing(w http.ResponseWriter, r *http.Request) {
	s.deps.Processor.StopProcessing()
	writeJSON(w, http.StatusOK, processingResponse{
		Success: true,
		Message: "Processing stopped",
		Status:  s.deps.Processor.Status(),
	})
}

type currentSessionResponse struct {
	Success    bool                   `json:"success"`
	Session    *model.VideoSession    `json:"session"`
	FactChecks []model.VideoFactCheck `json:"fact_checks"`
}

func (s *Server) handleCurrentSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.deps.Processor.CurrentSession(r.Context())
	if err != nil {
		writeInternalError(w, s.logger, "error getting current session", err)
		return
	}

	resp := currentSessionResponse{Success: true, Session: session, FactChecks: []model.VideoFactCheck{}}
	if session != nil {
		checks, err := s.deps.Processor.SessionFactChecks(r.Context(), session.VideoID)
		if err != nil {
			writeInternalError(w, s.logger, "error getting current session", err)
			return
		}
		resp.FactChecks = checks
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleYouTubeStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Processor.Status())
}

type videoFactChecksResponse struct {
	VideoID    string                 `json:"video_id"`
	FactChecks []model.VideoFactCheck `json:"fact_checks"`
}

func (s *Server) handleVideoFactChecks(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "video_id")

	checks, err := s.deps.Processor.SessionFactChecks(r.Context(), videoID)
	if err != nil {
		writeInternalError(w, s.logger, "error retrieving fact checks", err)
		return
	}

	writeJSON(w, http.StatusOK, videoFactChecksResponse{VideoID: videoID, FactChecks: checks})
}

func (s *Server) handleSessionSocket(w http.ResponseWriter, r *http.Request) {
	s.deps.Hub.ServeSession(w, r, chi.URLParam(r, "session_id"), s.deps.Pipeline)
}

func (s *Server) handleYouTubeSocket(w http.ResponseWriter, r *http.Request) {
	s.deps.Hub.ServeYouTube(w, r, s.deps.Processor)
}
