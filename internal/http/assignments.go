package http

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"classdesk/internal/model"
	"classdesk/internal/repository"
)

var allowedUploadExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".txt":  true,
	".md":   true,
	".zip":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

type assignmentPayload struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate"`
	MaxScore    int    `json:"maxScore"`
	ProfessorID string `json:"professorId"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func mapAssignment(assignment model.Assignment) assignmentPayload {
	return assignmentPayload{
		ID:          assignment.ID,
		Title:       assignment.Title,
		Description: assignment.Description,
		DueDate:     assignment.DueDate.UTC().Format(time.RFC3339),
		MaxScore:    assignment.MaxScore,
		ProfessorID: assignment.ProfessorID,
		CreatedAt:   assignment.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   assignment.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type attachmentPayload struct {
	ID         string `json:"id"`
	FileName   string `json:"fileName"`
	FileSize   int64  `json:"fileSize"`
	MimeType   string `json:"mimeType"`
	UploadedAt string `json:"uploadedAt"`
}

func mapAttachment(attachment model.Attachment) attachmentPayload {
	return attachmentPayload{
		ID:         attachment.ID,
		FileName:   attachment.FileName,
		FileSize:   attachment.FileSize,
		MimeType:   attachment.MimeType,
		UploadedAt: attachment.UploadedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.ListAssignments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	type summaryPayload struct {
		assignmentPayload
		ProfessorName   string `json:"professorName"`
		AttachmentCount int    `json:"attachmentCount"`
	}
	payload := make([]summaryPayload, 0, len(summaries))
	for _, summary := range summaries {
		payload = append(payload, summaryPayload{
			assignmentPayload: mapAssignment(summary.Assignment),
			ProfessorName:     summary.ProfessorName,
			AttachmentCount:   summary.AttachmentCount,
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

type createAssignmentRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate"`
	MaxScore    int    `json:"maxScore"`
}

func (s *Server) handleCreateAssignment(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req createAssignmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.Description == "" || req.DueDate == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS")
		return
	}
	dueDate, err := time.Parse(time.RFC3339, req.DueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_DUE_DATE")
		return
	}
	if req.MaxScore <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_MAX_SCORE")
		return
	}

	now := time.Now().UTC()
	assignment := model.Assignment{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		DueDate:     dueDate.UTC(),
		MaxScore:    req.MaxScore,
		ProfessorID: claims.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateAssignment(r.Context(), assignment); err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	writeJSON(w, http.StatusCreated, mapAssignment(assignment))
}

// handleGetAssignment is reachable anonymously: unauthenticated callers see
// the public fields only, authenticated ones also get the attachment list.
func (s *Server) handleGetAssignment(w http.ResponseWriter, r *http.Request) {
	assignmentID := chi.URLParam(r, "assignmentID")

	assignment, err := s.store.GetAssignment(r.Context(), assignmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "ASSIGNMENT_NOT_FOUND")
			return
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	if claimsFromContext(r.Context()) == nil {
		writeJSON(w, http.StatusOK, mapAssignment(assignment))
		return
	}

	attachments, err := s.store.ListAttachments(r.Context(), assignmentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}
	attachmentList := make([]attachmentPayload, 0, len(attachments))
	for _, attachment := range attachments {
		attachmentList = append(attachmentList, mapAttachment(attachment))
	}

	writeJSON(w, http.StatusOK, struct {
		assignmentPayload
		Attachments []attachmentPayload `json:"attachments"`
	}{mapAssignment(assignment), attachmentList})
}

type updateAssignmentRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"dueDate"`
	MaxScore    *int    `json:"maxScore"`
}

func (s *Server) handleUpdateAssignment(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	assignmentID := chi.URLParam(r, "assignmentID")

	var req updateAssignmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	update := repository.AssignmentUpdate{
		Title:       req.Title,
		Description: req.Description,
		MaxScore:    req.MaxScore,
	}
	if req.DueDate != nil {
		dueDate, err := time.Parse(time.RFC3339, *req.DueDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_DUE_DATE")
			return
		}
		dueDate = dueDate.UTC()
		update.DueDate = &dueDate
	}
	if req.MaxScore != nil && *req.MaxScore <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_MAX_SCORE")
		return
	}

	ownerID := claims.UserID
	if claims.Role == model.RoleAdmin {
		assignment, err := s.store.GetAssignment(r.Context(), assignmentID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeError(w, http.StatusNotFound, "ASSIGNMENT_NOT_FOUND")
				return
			}
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
			return
		}
		ownerID = assignment.ProfessorID
	}

	assignment, err := s.store.UpdateAssignment(r.Context(), assignmentID, ownerID, update)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "ASSIGNMENT_NOT_FOUND")
			return
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, mapAssignment(assignment))
}

func (s *Server) handleDeleteAssignment(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	assignmentID := chi.URLParam(r, "assignmentID")

	ownerID := claims.UserID
	if claims.Role == model.RoleAdmin {
		assignment, err := s.store.GetAssignment(r.Context(), assignmentID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeError(w, http.StatusNotFound, "ASSIGNMENT_NOT_FOUND")
				return
			}
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
			return
		}
		ownerID = assignment.ProfessorID
	}

	// Remove stored attachment files before the rows cascade away.
	paths, err := s.store.ListAttachmentPaths(r.Context(), assignmentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	deleted, err := s.store.DeleteAssignment(r.Context(), assignmentID, ownerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "ASSIGNMENT_NOT_FOUND")
		return
	}

	for _, path := range paths {
		_ = os.Remove(path)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	assignmentID := chi.URLParam(r, "assignmentID")

	assignment, err := s.store.GetAssignment(r.Context(), assignmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "ASSIGNMENT_NOT_FOUND")
			return
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}
	if claims.Role != model.RoleAdmin && assignment.ProfessorID != claims.UserID {
		writeError(w, http.StatusForbidden, codeForbidden)
		return
	}

	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_UPLOAD")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "MISSING_FILE")
		return
	}
	defer file.Close()

	stored, err := s.saveUpload(file, header)
	if err != nil {
		writeError(w, http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE")
		return
	}

	attachment := model.Attachment{
		ID:           stored.ID,
		AssignmentID: assignmentID,
		FileName:     header.Filename,
		FilePath:     stored.Path,
		FileSize:     stored.Size,
		MimeType:     stored.Mime,
		UploadedAt:   time.Now().UTC(),
	}

	if err := s.store.CreateAttachment(r.Context(), attachment); err != nil {
		_ = os.Remove(attachment.FilePath)
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	writeJSON(w, http.StatusCreated, mapAttachment(attachment))
}

type storedUpload struct {
	ID   string
	Path string
	Size int64
	Mime string
}

// saveUpload validates the extension and writes the part to the upload dir
// under a uuid-based name so colliding client filenames never clobber each
// other.
func (s *Server) saveUpload(file multipart.File, header *multipart.FileHeader) (storedUpload, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedUploadExtensions[ext] {
		return storedUpload{}, fmt.Errorf("unsupported extension %q", ext)
	}

	id := uuid.NewString()
	path := filepath.Join(s.cfg.UploadDir, id+ext)
	dst, err := os.Create(path)
	if err != nil {
		return storedUpload{}, err
	}
	defer dst.Close()

	size, err := io.Copy(dst, file)
	if err != nil {
		_ = os.Remove(path)
		return storedUpload{}, err
	}

	mime := header.Header.Get("Content-Type")
	if mime == "" {
		mime = "application/octet-stream"
	}
	return storedUpload{ID: id, Path: path, Size: size, Mime: mime}, nil
}

func (s *Server) handleListAttachments(w http.ResponseWriter, r *http.Request) {
	assignmentID := chi.URLParam(r, "assignmentID")

	attachments, err := s.store.ListAttachments(r.Context(), assignmentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	payload := make([]attachmentPayload, 0, len(attachments))
	for _, attachment := range attachments {
		payload = append(payload, mapAttachment(attachment))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleDownloadAttachment(w http.ResponseWriter, r *http.Request) {
	attachmentID := chi.URLParam(r, "attachmentID")

	attachment, err := s.store.GetAttachment(r.Context(), attachmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "FILE_NOT_FOUND")
			return
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	serveStoredFile(w, r, attachment.FilePath, attachment.FileName, attachment.MimeType)
}

func serveStoredFile(w http.ResponseWriter, r *http.Request, path, name, mime string) {
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "FILE_NOT_FOUND")
		return
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}
