package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"classdesk/internal/config"
	"classdesk/internal/crypto"
	"classdesk/internal/db"
	"classdesk/internal/model"
	"classdesk/internal/repository"
)

func openTestDB(t *testing.T) *pgxpool.Pool {
	url := os.Getenv("CLASSDESK_TEST_DB")
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		t.Skip("CLASSDESK_TEST_DB or DATABASE_URL not set")
		return nil
	}
	pool, err := db.NewPool(context.Background(), url)
	if err != nil {
		t.Skipf("db unavailable: %v", err)
		return nil
	}
	return pool
}

func doReq(t *testing.T, method, url, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode error: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("http error: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func seedAdmin(t *testing.T, store *repository.Store) model.User {
	t.Helper()
	hash, err := crypto.HashPassword("AdminPass1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	now := time.Now().UTC()
	admin := model.User{
		ID:           uuid.NewString(),
		Email:        "admin." + time.Now().Format("150405.000") + "@example.local",
		PasswordHash: hash,
		FullName:     "Seed Admin",
		Role:         model.RoleAdmin,
		Status:       model.StatusApproved,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.CreateUser(context.Background(), admin); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	return admin
}

func TestAssignmentLifecycle(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()

	cfg := config.Config{
		HTTPAddr:         ":0",
		JWTSecret:        "test-secret",
		JWTRefreshSecret: "test-refresh-secret",
		JWTIssuer:        "test-issuer",
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  7 * 24 * time.Hour,
		UploadDir:        t.TempDir(),
		MaxUploadBytes:   32 << 20,
	}
	store := repository.NewStore(pool)
	server := NewServer(cfg, store, nil)
	app := httptest.NewServer(server.Router())
	defer app.Close()

	admin := seedAdmin(t, store)
	pair, err := server.tokens.IssuePair(admin.ID, admin.Role, admin.Email)
	if err != nil {
		t.Fatalf("admin token: %v", err)
	}
	adminToken := pair.AccessToken

	stamp := time.Now().Format("150405.000")

	// Register a professor and a student; both start pending.
	var professor, student authResponse
	resp := doReq(t, http.MethodPost, app.URL+"/api/auth/register", "", map[string]string{
		"email":    "prof." + stamp + "@example.local",
		"password": "ProfPass1",
		"fullName": "Ada Lovelace",
		"role":     "PROFESSOR",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register professor: expected 201, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &professor)

	resp = doReq(t, http.MethodPost, app.URL+"/api/auth/register", "", map[string]string{
		"email":    "student." + stamp + "@example.local",
		"password": "StudPass1",
		"fullName": "Alan Turing",
		"role":     "STUDENT",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register student: expected 201, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &student)

	// Login is gated on approval.
	resp = doReq(t, http.MethodPost, app.URL+"/api/auth/login", "", map[string]string{
		"email":    student.User.Email,
		"password": "StudPass1",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("pending login: expected 403, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	for _, id := range []string{professor.User.ID, student.User.ID} {
		resp = doReq(t, http.MethodPost, app.URL+"/api/admin/users/"+id+"/approve", adminToken, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("approve %s: expected 200, got %d", id, resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp = doReq(t, http.MethodPost, app.URL+"/api/auth/login", "", map[string]string{
		"email":    student.User.Email,
		"password": "StudPass1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approved login: expected 200, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &student)
	studentToken := student.Token
	professorToken := professor.Token

	// Course with the student enrolled.
	var course coursePayload
	resp = doReq(t, http.MethodPost, app.URL+"/api/courses", professorToken, map[string]string{
		"name": "Distributed Systems",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create course: expected 201, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &course)

	resp = doReq(t, http.MethodPost, app.URL+"/api/courses/"+course.ID+"/enroll", professorToken, map[string]string{
		"studentId": student.User.ID,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("enroll: expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Assignment due tomorrow.
	var assignment assignmentPayload
	resp = doReq(t, http.MethodPost, app.URL+"/api/assignments", professorToken, map[string]interface{}{
		"title":       "Consensus paper review",
		"description": "Summarize the paper and its failure model.",
		"dueDate":     time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339),
		"maxScore":    20,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create assignment: expected 201, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &assignment)

	// Students cannot create assignments.
	resp = doReq(t, http.MethodPost, app.URL+"/api/assignments", studentToken, map[string]interface{}{
		"title":       "nope",
		"description": "nope",
		"dueDate":     time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339),
		"maxScore":    10,
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("student create assignment: expected 403, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Submit, then resubmit.
	var submission submissionPayload
	resp = doReq(t, http.MethodPost, app.URL+"/api/submissions/assignments/"+assignment.ID+"/submit", studentToken, map[string]string{
		"content": "First draft.",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit: expected 201, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &submission)

	resp = doReq(t, http.MethodPost, app.URL+"/api/submissions/assignments/"+assignment.ID+"/submit", studentToken, map[string]string{
		"content": "Final draft.",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("resubmit: expected 201, got %d", resp.StatusCode)
	}
	var resubmitted submissionPayload
	decodeBody(t, resp, &resubmitted)
	if resubmitted.ID != submission.ID {
		t.Fatalf("resubmission created a new row: %s != %s", resubmitted.ID, submission.ID)
	}
	if resubmitted.Status != model.SubmissionPending {
		t.Fatalf("resubmission status: expected PENDING, got %s", resubmitted.Status)
	}

	// Scores outside [0, maxScore] are rejected.
	resp = doReq(t, http.MethodPost, app.URL+"/api/grades/submissions/"+submission.ID+"/grade", professorToken, map[string]interface{}{
		"score": 25,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("overscore: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	var grade gradePayload
	resp = doReq(t, http.MethodPost, app.URL+"/api/grades/submissions/"+submission.ID+"/grade", professorToken, map[string]interface{}{
		"score":    17,
		"feedback": "Solid analysis.",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("grade: expected 201, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &grade)
	if grade.Score != 17 {
		t.Fatalf("grade score: expected 17, got %d", grade.Score)
	}

	resp = doReq(t, http.MethodGet, app.URL+"/api/grades/my-grades", studentToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("my-grades: expected 200, got %d", resp.StatusCode)
	}
	var grades []map[string]interface{}
	decodeBody(t, resp, &grades)
	if len(grades) != 1 {
		t.Fatalf("my-grades: expected 1 entry, got %d", len(grades))
	}

	// Resubmitting keeps the grade row; grading again must update it in
	// place rather than conflict.
	resp = doReq(t, http.MethodPost, app.URL+"/api/submissions/assignments/"+assignment.ID+"/submit", studentToken, map[string]string{
		"content": "Revised after feedback.",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("resubmit after grading: expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doReq(t, http.MethodPost, app.URL+"/api/grades/submissions/"+submission.ID+"/grade", professorToken, map[string]interface{}{
		"score":    19,
		"feedback": "Much improved.",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("regrade: expected 200, got %d", resp.StatusCode)
	}
	var regrade gradePayload
	decodeBody(t, resp, &regrade)
	if regrade.ID != grade.ID {
		t.Fatalf("regrade created a new row: %s != %s", regrade.ID, grade.ID)
	}
	if regrade.Score != 19 {
		t.Fatalf("regrade score: expected 19, got %d", regrade.Score)
	}

	// Reset tokens stay out of the logs unless explicitly enabled.
	var logBuf bytes.Buffer
	log.SetOutput(&logBuf)
	defer log.SetOutput(os.Stderr)
	resp = doReq(t, http.MethodPost, app.URL+"/api/auth/forgot-password", "", map[string]string{
		"email": student.User.Email,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("forgot-password: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()
	if strings.Contains(logBuf.String(), "eyJ") {
		t.Fatal("reset token leaked into the logs")
	}

	// Q&A logs a templated answer.
	var qa qaLogPayload
	resp = doReq(t, http.MethodPost, app.URL+"/api/qa-logs", studentToken, map[string]string{
		"assignmentId": assignment.ID,
		"question":     "Which failure model should I assume?",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("ask question: expected 201, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &qa)
	if qa.Answer == "" || qa.Source != model.QASourceLLM {
		t.Fatalf("unexpected qa log: %+v", qa)
	}

	resp = doReq(t, http.MethodGet, app.URL+"/api/qa-logs/assignments/"+assignment.ID, professorToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list qa logs: expected 200, got %d", resp.StatusCode)
	}
	var logs []qaLogPayload
	decodeBody(t, resp, &logs)
	if len(logs) == 0 {
		t.Fatal("expected at least one qa log")
	}
}
