package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"classdesk/internal/auth"
	"classdesk/internal/config"
	"classdesk/internal/llm"
	"classdesk/internal/model"
	"classdesk/internal/repository"
)

// Machine-readable error codes surfaced to clients.
const (
	codeMissingToken        = "MISSING_TOKEN"
	codeMalformedToken      = "MALFORMED_TOKEN"
	codeTokenExpired        = "TOKEN_EXPIRED"
	codeInvalidToken        = "INVALID_TOKEN"
	codeUnauthenticated     = "UNAUTHENTICATED"
	codeForbidden           = "FORBIDDEN"
	codeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
)

var authRejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "classdesk_auth_rejections_total",
	Help: "Authentication and authorization rejections by error code.",
}, []string{"code"})

type Server struct {
	cfg      config.Config
	store    *repository.Store
	tokens   *auth.Service
	answerer *llm.Answerer
	redis    *redis.Client
}

func NewServer(cfg config.Config, store *repository.Store, redisClient *redis.Client) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		tokens:   auth.NewService(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.JWTIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
		answerer: llm.NewAnswerer(),
		redis:    redisClient,
	}
}

// Router wires every route against its allowed-role set. This table is the
// whole authorization policy; handlers only perform ownership checks.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	professorOrAdmin := s.requireRoles(model.RoleProfessor, model.RoleAdmin)
	studentOnly := s.requireRoles(model.RoleStudent)
	adminOnly := s.requireRoles(model.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/forgot-password", s.handleForgotPassword)
			r.Post("/reset-password", s.handleResetPassword)
			r.With(s.authenticate).Get("/me", s.handleGetMe)
			r.With(s.authenticate).Put("/update-profile", s.handleUpdateProfile)
			r.With(s.authenticate).Post("/change-password", s.handleChangePassword)
			r.With(s.authenticate).Post("/logout", s.handleLogout)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.authenticate, adminOnly)
			r.Get("/pending-users", s.handlePendingUsers)
			r.Post("/users/{userID}/approve", s.handleApproveUser)
			r.Post("/users/{userID}/reject", s.handleRejectUser)
		})

		r.Route("/courses", func(r chi.Router) {
			r.With(s.authenticate).Get("/", s.handleListCourses)
			r.With(s.authenticate, professorOrAdmin).Post("/", s.handleCreateCourse)
			r.With(s.authenticate).Get("/{courseID}", s.handleGetCourse)
			r.With(s.authenticate, professorOrAdmin).Put("/{courseID}", s.handleUpdateCourse)
			r.With(s.authenticate, professorOrAdmin).Delete("/{courseID}", s.handleDeleteCourse)
			r.With(s.authenticate, professorOrAdmin).Post("/{courseID}/enroll", s.handleEnrollStudent)
			r.With(s.authenticate, professorOrAdmin).Delete("/{courseID}/unenroll", s.handleUnenrollStudent)
		})

		r.With(s.authenticate, professorOrAdmin).Get("/users/students", s.handleListStudents)

		r.Route("/assignments", func(r chi.Router) {
			r.With(s.authenticate).Get("/", s.handleListAssignments)
			r.With(s.authenticate, professorOrAdmin).Post("/", s.handleCreateAssignment)
			r.With(s.optionalAuthenticate).Get("/{assignmentID}", s.handleGetAssignment)
			r.With(s.authenticate, professorOrAdmin).Put("/{assignmentID}", s.handleUpdateAssignment)
			r.With(s.authenticate, professorOrAdmin).Delete("/{assignmentID}", s.handleDeleteAssignment)
			r.With(s.authenticate, professorOrAdmin).Post("/{assignmentID}/upload", s.handleUploadAttachment)
			r.With(s.authenticate).Get("/{assignmentID}/files", s.handleListAttachments)
			r.With(s.authenticate).Get("/files/{attachmentID}/download", s.handleDownloadAttachment)
		})

		r.Route("/submissions", func(r chi.Router) {
			r.With(s.authenticate, studentOnly).Post("/assignments/{assignmentID}/submit", s.handleSubmit)
			r.With(s.authenticate, studentOnly).Post("/assignments/{assignmentID}/submit-with-files", s.handleSubmitWithFiles)
			r.With(s.authenticate, studentOnly).Get("/my-submissions", s.handleMySubmissions)
			r.With(s.authenticate, professorOrAdmin).Get("/assignments/{assignmentID}/submissions", s.handleAssignmentSubmissions)
			r.With(s.authenticate, studentOnly).Delete("/{submissionID}/files/{fileID}", s.handleDeleteSubmissionFile)
			r.With(s.authenticate).Get("/files/{fileID}/download", s.handleDownloadSubmissionFile)
		})

		r.Route("/grades", func(r chi.Router) {
			r.With(s.authenticate, professorOrAdmin).Post("/submissions/{submissionID}/grade", s.handleGradeSubmission)
			r.With(s.authenticate, studentOnly).Get("/my-grades", s.handleMyGrades)
			r.With(s.authenticate, professorOrAdmin).Get("/assignments/{assignmentID}/grades", s.handleAssignmentGrades)
			r.With(s.authenticate, professorOrAdmin).Put("/{gradeID}", s.handleUpdateGrade)
			r.With(s.authenticate, professorOrAdmin).Delete("/{gradeID}", s.handleDeleteGrade)
		})

		r.Route("/qa-logs", func(r chi.Router) {
			r.With(s.authenticate, studentOnly).Post("/", s.handleAskQuestion)
			r.With(s.authenticate).Get("/assignments/{assignmentID}", s.handleListQALogs)
		})
	})

	return r
}

// Auth

type claimsKey struct{}

// authenticate extracts and verifies the bearer token and attaches the
// decoded claims to the request context. All failures are 401s with
// distinct codes so clients know whether to refresh or re-login.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			rejectAuth(w, http.StatusUnauthorized, codeMissingToken)
			return
		}
		token, ok := bearerToken(header)
		if !ok {
			rejectAuth(w, http.StatusUnauthorized, codeMalformedToken)
			return
		}

		claims, err := s.tokens.VerifyAccess(token)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				rejectAuth(w, http.StatusUnauthorized, codeTokenExpired)
				return
			}
			rejectAuth(w, http.StatusUnauthorized, codeInvalidToken)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// optionalAuthenticate never rejects: a missing or bad token just leaves
// the request anonymous.
func (s *Server) optionalAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := bearerToken(header)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := s.tokens.VerifyAccess(token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRoles gates a route on the authenticated role. The forbidden
// response names both the allowed set and the caller's role.
func (s *Server) requireRoles(allowed ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := claimsFromContext(r.Context())
			if claims == nil {
				rejectAuth(w, http.StatusUnauthorized, codeUnauthenticated)
				return
			}
			for _, role := range allowed {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			authRejections.WithLabelValues(codeForbidden).Inc()
			writeJSON(w, http.StatusForbidden, forbiddenResponse{
				Error:         codeForbidden,
				RequiredRoles: allowed,
				CurrentRole:   claims.Role,
			})
		})
	}
}

type forbiddenResponse struct {
	Error         string       `json:"error"`
	RequiredRoles []model.Role `json:"requiredRoles"`
	CurrentRole   model.Role   `json:"currentRole"`
}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

func rejectAuth(w http.ResponseWriter, status int, code string) {
	authRejections.WithLabelValues(code).Inc()
	writeError(w, status, code)
}

// Helpers

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
