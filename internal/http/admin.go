package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"classdesk/internal/model"
)

func (s *Server) handlePendingUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsersByStatus(r.Context(), model.StatusPending)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	payload := make([]userPayload, 0, len(users))
	for _, user := range users {
		payload = append(payload, mapUser(user))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleApproveUser(w http.ResponseWriter, r *http.Request) {
	s.setUserStatus(w, r, model.StatusApproved)
}

func (s *Server) handleRejectUser(w http.ResponseWriter, r *http.Request) {
	s.setUserStatus(w, r, model.StatusRejected)
}

func (s *Server) setUserStatus(w http.ResponseWriter, r *http.Request, status model.UserStatus) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_USER_ID")
		return
	}

	updated, err := s.store.UpdateUserStatus(r.Context(), userID, status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}
	if !updated {
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
