package http

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"classdesk/internal/model"
)

type qaLogPayload struct {
	ID           string         `json:"id"`
	AssignmentID string         `json:"assignmentId"`
	StudentID    string         `json:"studentId"`
	StudentName  string         `json:"studentName,omitempty"`
	Question     string         `json:"question"`
	Answer       string         `json:"answer"`
	Source       model.QASource `json:"source"`
	CreatedAt    string         `json:"createdAt"`
}

func mapQALog(log model.QALog) qaLogPayload {
	return qaLogPayload{
		ID:           log.ID,
		AssignmentID: log.AssignmentID,
		StudentID:    log.StudentID,
		Question:     log.Question,
		Answer:       log.Answer,
		Source:       log.Source,
		CreatedAt:    log.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type askQuestionRequest struct {
	AssignmentID string `json:"assignmentId"`
	Question     string `json:"question"`
}

func (s *Server) handleAskQuestion(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req askQuestionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST")
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.AssignmentID == "" || req.Question == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS")
		return
	}

	assignment, err := s.store.GetAssignment(r.Context(), req.AssignmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "ASSIGNMENT_NOT_FOUND")
			return
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	answer, ok := s.cachedAnswer(r, assignment.ID, req.Question)
	if !ok {
		answer, err = s.answerer.Answer(r.Context(), assignment.Title, req.Question)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
			return
		}
		s.cacheAnswer(r, assignment.ID, req.Question, answer)
	}

	log := model.QALog{
		ID:           uuid.NewString(),
		AssignmentID: assignment.ID,
		StudentID:    claims.UserID,
		Question:     req.Question,
		Answer:       answer,
		Source:       model.QASourceLLM,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateQALog(r.Context(), log); err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	writeJSON(w, http.StatusCreated, mapQALog(log))
}

func (s *Server) handleListQALogs(w http.ResponseWriter, r *http.Request) {
	assignmentID := chi.URLParam(r, "assignmentID")

	entries, err := s.store.ListQALogsByAssignment(r.Context(), assignmentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	payload := make([]qaLogPayload, 0, len(entries))
	for _, entry := range entries {
		mapped := mapQALog(entry.Log)
		mapped.StudentName = entry.StudentName
		payload = append(payload, mapped)
	}
	writeJSON(w, http.StatusOK, payload)
}

// Answer cache. Redis is optional; without it every question goes straight
// to the answerer.

func qaCacheKey(assignmentID, question string) string {
	sum := sha256.Sum256([]byte(assignmentID + "\x00" + question))
	return "qa:" + hex.EncodeToString(sum[:])
}

func (s *Server) cachedAnswer(r *http.Request, assignmentID, question string) (string, bool) {
	if s.redis == nil {
		return "", false
	}
	answer, err := s.redis.Get(r.Context(), qaCacheKey(assignmentID, question)).Result()
	if err != nil {
		return "", false
	}
	return answer, true
}

func (s *Server) cacheAnswer(r *http.Request, assignmentID, question, answer string) {
	if s.redis == nil {
		return
	}
	_ = s.redis.Set(r.Context(), qaCacheKey(assignmentID, question), answer, s.cfg.QACacheTTL).Err()
}
