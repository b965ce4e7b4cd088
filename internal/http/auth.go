package http

import (
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"classdesk/internal/crypto"
	"classdesk/internal/model"
	"classdesk/internal/repository"
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9]([-_.]?[A-Za-z0-9])*@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

type userPayload struct {
	ID        string           `json:"id"`
	Email     string           `json:"email"`
	FullName  string           `json:"fullName"`
	Role      model.Role       `json:"role"`
	Status    model.UserStatus `json:"status"`
	CreatedAt string           `json:"createdAt"`
	UpdatedAt string           `json:"updatedAt"`
}

type authResponse struct {
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
	User         userPayload `json:"user"`
}

func mapUser(user model.User) userPayload {
	return userPayload{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Role:      user.Role,
		Status:    user.Status,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if req.Email == "" || req.Password == "" || req.FullName == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS")
		return
	}
	if !emailPattern.MatchString(req.Email) {
		writeError(w, http.StatusBadRequest, "INVALID_EMAIL")
		return
	}
	if !validFullName(req.FullName) {
		writeError(w, http.StatusBadRequest, "INVALID_NAME")
		return
	}
	if !validPassword(req.Password) {
		writeError(w, http.StatusBadRequest, "WEAK_PASSWORD")
		return
	}
	role, ok := model.ParseRole(strings.ToUpper(strings.TrimSpace(req.Role)))
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_ROLE")
		return
	}

	if _, err := s.store.GetUserByEmail(r.Context(), req.Email); err == nil {
		writeError(w, http.StatusConflict, "EMAIL_TAKEN")
		return
	} else if !errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Role:         role,
		Status:       model.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Role, user.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "TOKEN_ERROR")
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         mapUser(user),
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "MISSING_CREDENTIALS")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS")
			return
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}
	if err := crypto.CheckPassword(user.PasswordHash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS")
		return
	}
	if user.Status != model.StatusApproved {
		writeError(w, http.StatusForbidden, "ACCOUNT_NOT_APPROVED")
		return
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Role, user.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "TOKEN_ERROR")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         mapUser(user),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST")
		return
	}
	if req.RefreshToken == "" {
		rejectAuth(w, http.StatusUnauthorized, codeInvalidRefreshToken)
		return
	}

	pair, err := s.tokens.Refresh(req.RefreshToken)
	if err != nil {
		rejectAuth(w, http.StatusUnauthorized, codeInvalidRefreshToken)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"token":        pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated)
		return
	}

	user, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND")
		return
	}
	writeJSON(w, http.StatusOK, map[string]userPayload{"user": mapUser(user)})
}

type updateProfileRequest struct {
	FullName *string `json:"fullName,omitempty"`
	Email    *string `json:"email,omitempty"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated)
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	update := repository.UserUpdate{}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name != "" {
			if !validFullName(name) {
				writeError(w, http.StatusBadRequest, "INVALID_NAME")
				return
			}
			update.FullName = &name
		}
	}
	if req.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*req.Email))
		if email != "" && email != claims.Email {
			if !emailPattern.MatchString(email) {
				writeError(w, http.StatusBadRequest, "INVALID_EMAIL")
				return
			}
			if _, err := s.store.GetUserByEmail(r.Context(), email); err == nil {
				writeError(w, http.StatusConflict, "EMAIL_TAKEN")
				return
			} else if !errors.Is(err, pgx.ErrNoRows) {
				writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
				return
			}
			update.Email = &email
		}
	}

	user, err := s.store.UpdateUser(r.Context(), claims.UserID, update)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "USER_NOT_FOUND")
			return
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	writeJSON(w, http.StatusOK, map[string]userPayload{"user": mapUser(user)})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated)
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST")
		return
	}
	if req.CurrentPassword == "" || !validPassword(req.NewPassword) {
		writeError(w, http.StatusBadRequest, "INVALID_PASSWORD")
		return
	}

	user, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND")
		return
	}
	if err := crypto.CheckPassword(user.PasswordHash, req.CurrentPassword); err != nil {
		writeError(w, http.StatusUnauthorized, "WRONG_PASSWORD")
		return
	}

	hash, err := crypto.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}
	if err := s.store.UpdatePassword(r.Context(), user.ID, hash); err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLogout is advisory: tokens are stateless, the client discards them.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if claims := claimsFromContext(r.Context()); claims == nil {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	// The response never reveals whether the account exists.
	if user, err := s.store.GetUserByEmail(r.Context(), req.Email); err == nil {
		token, err := s.tokens.SignResetToken(user.ID, user.Role, user.Email, s.cfg.ResetTokenTTL)
		if err == nil {
			// Delivery is a mailer concern. The token itself only reaches
			// the logs when LOG_RESET_TOKENS is set for local development.
			if s.cfg.LogResetTokens {
				log.Printf("password reset token issued for %s: %s", user.Email, token)
			} else {
				log.Printf("password reset token issued for %s", user.Email)
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST")
		return
	}
	if req.Token == "" || !validPassword(req.NewPassword) {
		writeError(w, http.StatusBadRequest, "INVALID_PASSWORD")
		return
	}

	claims, err := s.tokens.VerifyResetToken(req.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_RESET_TOKEN")
		return
	}

	hash, err := crypto.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}
	if err := s.store.UpdatePassword(r.Context(), claims.UserID, hash); err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// validPassword enforces 8-20 characters with at least one upper-case
// letter, one lower-case letter and one digit.
func validPassword(password string) bool {
	if len(password) < 8 || len(password) > 20 {
		return false
	}
	var upper, lower, digit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			upper = true
		case unicode.IsLower(ch):
			lower = true
		case unicode.IsDigit(ch):
			digit = true
		}
	}
	return upper && lower && digit
}

// validFullName accepts letters with single spaces between name parts.
func validFullName(name string) bool {
	if name == "" {
		return false
	}
	lastSpace := true
	for _, ch := range name {
		switch {
		case ch == ' ':
			if lastSpace {
				return false
			}
			lastSpace = true
		case unicode.IsLetter(ch):
			lastSpace = false
		default:
			return false
		}
	}
	return !lastSpace
}
