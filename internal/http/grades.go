package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"classdesk/internal/model"
	"classdesk/internal/repository"
)

type gradePayload struct {
	ID           string  `json:"id"`
	SubmissionID string  `json:"submissionId"`
	Score        int     `json:"score"`
	Feedback     *string `json:"feedback"`
	GradedBy     string  `json:"gradedBy"`
	GradedAt     string  `json:"gradedAt"`
}

func mapGrade(grade model.Grade) gradePayload {
	return gradePayload{
		ID:           grade.ID,
		SubmissionID: grade.SubmissionID,
		Score:        grade.Score,
		Feedback:     grade.Feedback,
		GradedBy:     grade.GradedBy,
		GradedAt:     grade.GradedAt.UTC().Format(time.RFC3339),
	}
}

type gradeRequest struct {
	Score    int     `json:"score"`
	Feedback *string `json:"feedback"`
}

func (s *Server) handleGradeSubmission(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	submissionID := chi.URLParam(r, "submissionID")

	var req gradeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	submission, err := s.store.GetSubmission(r.Context(), submissionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "SUBMISSION_NOT_FOUND")
			return
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	assignment, err := s.store.GetAssignment(r.Context(), submission.AssignmentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}
	if req.Score < 0 || req.Score > assignment.MaxScore {
		writeError(w, http.StatusBadRequest, "INVALID_SCORE")
		return
	}

	// Re-grading updates the existing row in place. A resubmission resets
	// the submission to pending but keeps its grade row, so the POST path
	// must handle both cases.
	existing, err := s.store.GetGradeBySubmission(r.Context(), submissionID)
	switch {
	case err == nil:
		grade, err := s.store.UpdateGrade(r.Context(), existing.ID, repository.GradeUpdate{
			Score:    &req.Score,
			Feedback: req.Feedback,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
			return
		}
		if err := s.store.SetSubmissionStatus(r.Context(), submissionID, model.SubmissionGraded); err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
			return
		}
		writeJSON(w, http.StatusOK, mapGrade(grade))
		return
	case !errors.Is(err, pgx.ErrNoRows):
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	grade := model.Grade{
		ID:           uuid.NewString(),
		SubmissionID: submissionID,
		Score:        req.Score,
		Feedback:     req.Feedback,
		GradedBy:     claims.UserID,
		GradedAt:     time.Now().UTC(),
	}
	if err := s.store.CreateGrade(r.Context(), grade); err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}
	if err := s.store.SetSubmissionStatus(r.Context(), submissionID, model.SubmissionGraded); err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	writeJSON(w, http.StatusCreated, mapGrade(grade))
}

func (s *Server) handleMyGrades(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	submissions, err := s.store.ListGradedSubmissionsByStudent(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	type entry struct {
		gradePayload
		AssignmentID string `json:"assignmentId"`
	}
	payload := make([]entry, 0, len(submissions))
	for _, submission := range submissions {
		grade, err := s.store.GetGradeBySubmission(r.Context(), submission.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
			return
		}
		payload = append(payload, entry{
			gradePayload: mapGrade(grade),
			AssignmentID: submission.AssignmentID,
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleAssignmentGrades(w http.ResponseWriter, r *http.Request) {
	assignmentID := chi.URLParam(r, "assignmentID")

	submissions, err := s.store.ListSubmissionsByAssignment(r.Context(), assignmentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	type entry struct {
		gradePayload
		StudentID string `json:"studentId"`
	}
	payload := make([]entry, 0, len(submissions))
	for _, submission := range submissions {
		grade, err := s.store.GetGradeBySubmission(r.Context(), submission.ID)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
			return
		}
		payload = append(payload, entry{
			gradePayload: mapGrade(grade),
			StudentID:    submission.StudentID,
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

type updateGradeRequest struct {
	Score    *int    `json:"score"`
	Feedback *string `json:"feedback"`
}

func (s *Server) handleUpdateGrade(w http.ResponseWriter, r *http.Request) {
	gradeID := chi.URLParam(r, "gradeID")

	var req updateGradeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	if req.Score != nil {
		grade, err := s.store.GetGrade(r.Context(), gradeID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeError(w, http.StatusNotFound, "GRADE_NOT_FOUND")
				return
			}
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
			return
		}
		submission, err := s.store.GetSubmission(r.Context(), grade.SubmissionID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
			return
		}
		assignment, err := s.store.GetAssignment(r.Context(), submission.AssignmentID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
			return
		}
		if *req.Score < 0 || *req.Score > assignment.MaxScore {
			writeError(w, http.StatusBadRequest, "INVALID_SCORE")
			return
		}
	}

	grade, err := s.store.UpdateGrade(r.Context(), gradeID, repository.GradeUpdate{
		Score:    req.Score,
		Feedback: req.Feedback,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "GRADE_NOT_FOUND")
			return
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, mapGrade(grade))
}

func (s *Server) handleDeleteGrade(w http.ResponseWriter, r *http.Request) {
	gradeID := chi.URLParam(r, "gradeID")

	grade, err := s.store.GetGrade(r.Context(), gradeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "GRADE_NOT_FOUND")
			return
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	deleted, err := s.store.DeleteGrade(r.Context(), gradeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "GRADE_NOT_FOUND")
		return
	}

	if err := s.store.SetSubmissionStatus(r.Context(), grade.SubmissionID, model.SubmissionPending); err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
