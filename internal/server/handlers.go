package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/notionrag/internal/answer"
	"github.com/hyperjump/notionrag/internal/indexer"
	"github.com/hyperjump/notionrag/internal/models"
	"github.com/hyperjump/notionrag/internal/quota"
)

type queryResponse struct {
	Answer    string                  `json:"answer"`
	Failed    bool                    `json:"failed,omitempty"`
	Used      int                     `json:"used"`
	Limit     int                     `json:"limit"`
	Remaining int                     `json:"remaining"`
	Chunks    []models.RetrievedChunk `json:"chunks,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userFrom(ctx)

	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The prompt is reserved before answering, so a failed answer still uses it up.
	usage, err := s.quota.Record(ctx, user)
	if errors.Is(err, quota.ErrLimitReached) {
		s.respondJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"error":     quota.LimitMessage(usage.Limit),
			"used":      usage.Used,
			"limit":     usage.Limit,
			"remaining": 0,
		})
		return
	}
	if err != nil {
		s.logger.Error("usage lookup failed", zap.String("user", user), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "usage unavailable")
		return
	}

	s.logger.Debug("query request", zap.String("user", user), zap.Bool("debug", req.Debug))
	a, err := s.assistant.Ask(ctx, req.Question)
	if errors.Is(err, indexer.ErrNoIndex) {
		if _, rerr := s.quota.Release(ctx, user); rerr != nil {
			s.logger.Warn("failed to release usage", zap.String("user", user), zap.Error(rerr))
		}
		s.respondError(w, http.StatusServiceUnavailable, answer.NoIndexMessage)
		return
	}
	if err != nil {
		s.logger.Error("query failed", zap.String("user", user), zap.Error(err))
	}

	resp := queryResponse{
		Answer:    a.Text,
		Failed:    a.Failed,
		Used:      usage.Used,
		Limit:     usage.Limit,
		Remaining: usage.Remaining,
	}
	if req.Debug {
		resp.Chunks = a.Chunks
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	usage, err := s.quota.Usage(r.Context(), user)
	if err != nil {
		s.logger.Error("usage lookup failed", zap.String("user", user), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "usage unavailable")
		return
	}
	s.respondJSON(w, http.StatusOK, usage)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.assistant.Status(r.Context())
	if errors.Is(err, indexer.ErrNoIndex) {
		s.respondError(w, http.StatusServiceUnavailable, answer.NoIndexMessage)
		return
	}
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
