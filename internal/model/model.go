package model

import "time"

// Role is the closed set of account roles. Authorization decisions only
// ever compare against these three values.
type Role string

const (
	RoleStudent   Role = "STUDENT"
	RoleProfessor Role = "PROFESSOR"
	RoleAdmin     Role = "ADMIN"
)

func ParseRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleStudent, RoleProfessor, RoleAdmin:
		return Role(value), true
	default:
		return "", false
	}
}

type UserStatus string

const (
	StatusPending  UserStatus = "PENDING"
	StatusApproved UserStatus = "APPROVED"
	StatusRejected UserStatus = "REJECTED"
)

type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "PENDING"
	SubmissionGraded   SubmissionStatus = "GRADED"
	SubmissionReturned SubmissionStatus = "RETURNED"
)

type QASource string

const (
	QASourceLLM       QASource = "LLM"
	QASourceProfessor QASource = "PROFESSOR"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	Role         Role
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Course struct {
	ID          string
	Name        string
	ProfessorID string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Enrollment struct {
	CourseID  string
	StudentID string
	CreatedAt time.Time
}

type Assignment struct {
	ID          string
	Title       string
	Description string
	DueDate     time.Time
	MaxScore    int
	ProfessorID string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Attachment struct {
	ID           string
	AssignmentID string
	FileName     string
	FilePath     string
	FileSize     int64
	MimeType     string
	UploadedAt   time.Time
}

type Submission struct {
	ID           string
	AssignmentID string
	StudentID    string
	Content      *string
	SubmittedAt  time.Time
	Status       SubmissionStatus
}

type SubmissionFile struct {
	ID           string
	SubmissionID string
	FileName     string
	FilePath     string
	FileSize     int64
	MimeType     string
	UploadedAt   time.Time
}

type Grade struct {
	ID           string
	SubmissionID string
	Score        int
	Feedback     *string
	GradedBy     string
	GradedAt     time.Time
}

type QALog struct {
	ID           string
	AssignmentID string
	StudentID    string
	Question     string
	Answer       string
	Source       QASource
	CreatedAt    time.Time
}
