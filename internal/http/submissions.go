package http

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"classdesk/internal/model"
)

type submissionPayload struct {
	ID           string                  `json:"id"`
	AssignmentID string                  `json:"assignmentId"`
	StudentID    string                  `json:"studentId"`
	Content      *string                 `json:"content"`
	SubmittedAt  string                  `json:"submittedAt"`
	Status       model.SubmissionStatus  `json:"status"`
	Files        []submissionFilePayload `json:"files,omitempty"`
}

type submissionFilePayload struct {
	ID         string `json:"id"`
	FileName   string `json:"fileName"`
	FileSize   int64  `json:"fileSize"`
	MimeType   string `json:"mimeType"`
	UploadedAt string `json:"uploadedAt"`
}

func mapSubmission(submission model.Submission) submissionPayload {
	return submissionPayload{
		ID:           submission.ID,
		AssignmentID: submission.AssignmentID,
		StudentID:    submission.StudentID,
		Content:      submission.Content,
		SubmittedAt:  submission.SubmittedAt.UTC().Format(time.RFC3339),
		Status:       submission.Status,
	}
}

func mapSubmissionFile(file model.SubmissionFile) submissionFilePayload {
	return submissionFilePayload{
		ID:         file.ID,
		FileName:   file.FileName,
		FileSize:   file.FileSize,
		MimeType:   file.MimeType,
		UploadedAt: file.UploadedAt.UTC().Format(time.RFC3339),
	}
}

type submitRequest struct {
	Content *string `json:"content"`
}

// upsertSubmission creates or refreshes the caller's submission for an
// assignment, enforcing the due date. Resubmitting clears any prior grade
// state back to pending.
func (s *Server) upsertSubmission(w http.ResponseWriter, r *http.Request, content *string) (model.Submission, bool) {
	claims := claimsFromContext(r.Context())
	assignmentID := chi.URLParam(r, "assignmentID")

	assignment, err := s.store.GetAssignment(r.Context(), assignmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "ASSIGNMENT_NOT_FOUND")
			return model.Submission{}, false
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return model.Submission{}, false
	}

	now := time.Now().UTC()
	if now.After(assignment.DueDate) {
		writeError(w, http.StatusBadRequest, "DEADLINE_PASSED")
		return model.Submission{}, false
	}

	existing, err := s.store.GetSubmissionForStudent(r.Context(), assignmentID, claims.UserID)
	switch {
	case err == nil:
		submission, err := s.store.ResubmitSubmission(r.Context(), existing.ID, content, now)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
			return model.Submission{}, false
		}
		return submission, true
	case errors.Is(err, pgx.ErrNoRows):
		submission := model.Submission{
			ID:           uuid.NewString(),
			AssignmentID: assignmentID,
			StudentID:    claims.UserID,
			Content:      content,
			SubmittedAt:  now,
			Status:       model.SubmissionPending,
		}
		if err := s.store.CreateSubmission(r.Context(), submission); err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
			return model.Submission{}, false
		}
		return submission, true
	default:
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return model.Submission{}, false
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST")
		return
	}
	if req.Content == nil || *req.Content == "" {
		writeError(w, http.StatusBadRequest, "MISSING_CONTENT")
		return
	}

	submission, ok := s.upsertSubmission(w, r, req.Content)
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, mapSubmission(submission))
}

// handleSubmitWithFiles accepts a multipart form with an optional "content"
// field and one or more "files" parts.
func (s *Server) handleSubmitWithFiles(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_UPLOAD")
		return
	}

	var content *string
	if value := r.FormValue("content"); value != "" {
		content = &value
	}
	headers := r.MultipartForm.File["files"]
	if content == nil && len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "EMPTY_SUBMISSION")
		return
	}

	submission, ok := s.upsertSubmission(w, r, content)
	if !ok {
		return
	}

	files := make([]submissionFilePayload, 0, len(headers))
	for _, header := range headers {
		part, err := header.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_UPLOAD")
			return
		}
		stored, err := s.saveUpload(part, header)
		part.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE")
			return
		}

		file := model.SubmissionFile{
			ID:           stored.ID,
			SubmissionID: submission.ID,
			FileName:     header.Filename,
			FilePath:     stored.Path,
			FileSize:     stored.Size,
			MimeType:     stored.Mime,
			UploadedAt:   time.Now().UTC(),
		}
		if err := s.store.CreateSubmissionFile(r.Context(), file); err != nil {
			_ = os.Remove(stored.Path)
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
			return
		}
		files = append(files, mapSubmissionFile(file))
	}

	payload := mapSubmission(submission)
	payload.Files = files
	writeJSON(w, http.StatusCreated, payload)
}

func (s *Server) handleMySubmissions(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	submissions, err := s.store.ListSubmissionsByStudent(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	payload := make([]submissionPayload, 0, len(submissions))
	for _, submission := range submissions {
		payload = append(payload, mapSubmission(submission))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleAssignmentSubmissions(w http.ResponseWriter, r *http.Request) {
	assignmentID := chi.URLParam(r, "assignmentID")

	submissions, err := s.store.ListSubmissionsByAssignment(r.Context(), assignmentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	payload := make([]submissionPayload, 0, len(submissions))
	for _, submission := range submissions {
		mapped := mapSubmission(submission)
		files, err := s.store.ListSubmissionFiles(r.Context(), submission.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
			return
		}
		for _, file := range files {
			mapped.Files = append(mapped.Files, mapSubmissionFile(file))
		}
		payload = append(payload, mapped)
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleDeleteSubmissionFile(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	submissionID := chi.URLParam(r, "submissionID")
	fileID := chi.URLParam(r, "fileID")

	submission, err := s.store.GetSubmission(r.Context(), submissionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "SUBMISSION_NOT_FOUND")
			return
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}
	if submission.StudentID != claims.UserID {
		writeError(w, http.StatusForbidden, codeForbidden)
		return
	}

	file, err := s.store.GetSubmissionFile(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "FILE_NOT_FOUND")
			return
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	deleted, err := s.store.DeleteSubmissionFile(r.Context(), fileID, submissionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "FILE_NOT_FOUND")
		return
	}

	_ = os.Remove(file.FilePath)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleDownloadSubmissionFile allows the owning student plus any professor
// or admin.
func (s *Server) handleDownloadSubmissionFile(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	fileID := chi.URLParam(r, "fileID")

	file, err := s.store.GetSubmissionFile(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "FILE_NOT_FOUND")
			return
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	if claims.Role == model.RoleStudent {
		submission, err := s.store.GetSubmission(r.Context(), file.SubmissionID)
		if err != nil || submission.StudentID != claims.UserID {
			writeError(w, http.StatusForbidden, codeForbidden)
			return
		}
	}

	serveStoredFile(w, r, file.FilePath, file.FileName, file.MimeType)
}
