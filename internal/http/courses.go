package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"classdesk/internal/model"
)

type coursePayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ProfessorID string `json:"professorId"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func mapCourse(course model.Course) coursePayload {
	return coursePayload{
		ID:          course.ID,
		Name:        course.Name,
		ProfessorID: course.ProfessorID,
		CreatedAt:   course.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   course.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type studentPayload struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := s.store.ListCourses(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	payload := make([]coursePayload, 0, len(courses))
	for _, course := range courses {
		payload = append(payload, mapCourse(course))
	}
	writeJSON(w, http.StatusOK, payload)
}

type createCourseRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req createCourseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "MISSING_NAME")
		return
	}

	now := time.Now().UTC()
	course := model.Course{
		ID:          uuid.NewString(),
		Name:        req.Name,
		ProfessorID: claims.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateCourse(r.Context(), course); err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	writeJSON(w, http.StatusCreated, mapCourse(course))
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")

	course, err := s.store.GetCourse(r.Context(), courseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "COURSE_NOT_FOUND")
			return
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	students, err := s.store.ListCourseStudents(r.Context(), courseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	studentList := make([]studentPayload, 0, len(students))
	for _, student := range students {
		studentList = append(studentList, studentPayload{
			ID:       student.ID,
			FullName: student.FullName,
			Email:    student.Email,
		})
	}

	writeJSON(w, http.StatusOK, struct {
		coursePayload
		Students []studentPayload `json:"students"`
	}{mapCourse(course), studentList})
}

type updateCourseRequest struct {
	Name string `json:"name"`
}

// courseOwnerOrAdmin loads the course and enforces that only the owning
// professor or an admin may modify it.
func (s *Server) courseOwnerOrAdmin(w http.ResponseWriter, r *http.Request) (model.Course, bool) {
	claims := claimsFromContext(r.Context())
	courseID := chi.URLParam(r, "courseID")

	course, err := s.store.GetCourse(r.Context(), courseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "COURSE_NOT_FOUND")
			return model.Course{}, false
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return model.Course{}, false
	}
	if claims.Role != model.RoleAdmin && course.ProfessorID != claims.UserID {
		writeError(w, http.StatusForbidden, codeForbidden)
		return model.Course{}, false
	}
	return course, true
}

func (s *Server) handleUpdateCourse(w http.ResponseWriter, r *http.Request) {
	course, ok := s.courseOwnerOrAdmin(w, r)
	if !ok {
		return
	}

	var req updateCourseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "MISSING_NAME")
		return
	}

	updated, err := s.store.UpdateCourseName(r.Context(), course.ID, req.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, mapCourse(updated))
}

func (s *Server) handleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	course, ok := s.courseOwnerOrAdmin(w, r)
	if !ok {
		return
	}

	deleted, err := s.store.DeleteCourse(r.Context(), course.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "COURSE_NOT_FOUND")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type enrollRequest struct {
	StudentID string `json:"studentId"`
}

func (s *Server) handleEnrollStudent(w http.ResponseWriter, r *http.Request) {
	course, ok := s.courseOwnerOrAdmin(w, r)
	if !ok {
		return
	}

	var req enrollRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST")
		return
	}
	if req.StudentID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_STUDENT_ID")
		return
	}

	student, err := s.store.GetUserByID(r.Context(), req.StudentID)
	if err != nil || student.Role != model.RoleStudent {
		writeError(w, http.StatusBadRequest, "STUDENT_NOT_FOUND")
		return
	}

	enrolled, err := s.store.IsEnrolled(r.Context(), course.ID, req.StudentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}
	if enrolled {
		writeError(w, http.StatusConflict, "ALREADY_ENROLLED")
		return
	}

	enrollment := model.Enrollment{
		CourseID:  course.ID,
		StudentID: req.StudentID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.EnrollStudent(r.Context(), enrollment); err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "enrolled"})
}

func (s *Server) handleUnenrollStudent(w http.ResponseWriter, r *http.Request) {
	course, ok := s.courseOwnerOrAdmin(w, r)
	if !ok {
		return
	}

	var req enrollRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST")
		return
	}
	if req.StudentID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_STUDENT_ID")
		return
	}

	removed, err := s.store.UnenrollStudent(r.Context(), course.ID, req.StudentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "ENROLLMENT_NOT_FOUND")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "unenrolled"})
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := s.store.ListStudents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	payload := make([]studentPayload, 0, len(students))
	for _, student := range students {
		payload = append(payload, studentPayload{
			ID:       student.ID,
			FullName: student.FullName,
			Email:    student.Email,
		})
	}
	writeJSON(w, http.StatusOK, payload)
}
