package repository

import (
	"context"
	"time"

	"classdesk/internal/model"
)

const submissionColumns = `id, assignment_id, student_id, content, submitted_at, status`

func scanSubmission(row interface{ Scan(...any) error }) (model.Submission, error) {
	var submission model.Submission
	err := row.Scan(
		&submission.ID,
		&submission.AssignmentID,
		&submission.StudentID,
		&submission.Content,
		&submission.SubmittedAt,
		&submission.Status,
	)
	return submission, err
}

func (s *Store) CreateSubmission(ctx context.Context, submission model.Submission) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO submissions (id, assignment_id, student_id, content, submitted_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, submission.ID, submission.AssignmentID, submission.StudentID, submission.Content, submission.SubmittedAt, submission.Status)
	return err
}

func (s *Store) GetSubmission(ctx context.Context, submissionID string) (model.Submission, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE id = $1
	`, submissionID)
	return scanSubmission(row)
}

func (s *Store) GetSubmissionForStudent(ctx context.Context, assignmentID, studentID string) (model.Submission, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE assignment_id = $1 AND student_id = $2
	`, assignmentID, studentID)
	return scanSubmission(row)
}

// ResubmitSubmission overwrites the content of an existing submission and
// resets its timestamp; grading state goes back to pending.
func (s *Store) ResubmitSubmission(ctx context.Context, submissionID string, content *string, submittedAt time.Time) (model.Submission, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE submissions
		SET content = $2, submitted_at = $3, status = $4
		WHERE id = $1
		RETURNING `+submissionColumns+`
	`, submissionID, content, submittedAt, model.SubmissionPending)
	return scanSubmission(row)
}

func (s *Store) SetSubmissionStatus(ctx context.Context, submissionID string, status model.SubmissionStatus) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE submissions SET status = $2 WHERE id = $1
	`, submissionID, status)
	return err
}

func (s *Store) ListSubmissionsByStudent(ctx context.Context, studentID string) ([]model.Submission, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE student_id = $1
		ORDER BY submitted_at DESC
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var submissions []model.Submission
	for rows.Next() {
		submission, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, submission)
	}
	return submissions, rows.Err()
}

func (s *Store) ListSubmissionsByAssignment(ctx context.Context, assignmentID string) ([]model.Submission, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE assignment_id = $1
		ORDER BY submitted_at DESC
	`, assignmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var submissions []model.Submission
	for rows.Next() {
		submission, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, submission)
	}
	return submissions, rows.Err()
}

func (s *Store) CreateSubmissionFile(ctx context.Context, file model.SubmissionFile) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO submission_files (id, submission_id, file_name, file_path, file_size, mime_type, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, file.ID, file.SubmissionID, file.FileName, file.FilePath, file.FileSize, file.MimeType, file.UploadedAt)
	return err
}

func (s *Store) GetSubmissionFile(ctx context.Context, fileID string) (model.SubmissionFile, error) {
	var file model.SubmissionFile
	row := s.pool.QueryRow(ctx, `
		SELECT id, submission_id, file_name, file_path, file_size, mime_type, uploaded_at
		FROM submission_files
		WHERE id = $1
	`, fileID)
	err := row.Scan(
		&file.ID,
		&file.SubmissionID,
		&file.FileName,
		&file.FilePath,
		&file.FileSize,
		&file.MimeType,
		&file.UploadedAt,
	)
	return file, err
}

func (s *Store) ListSubmissionFiles(ctx context.Context, submissionID string) ([]model.SubmissionFile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, submission_id, file_name, file_path, file_size, mime_type, uploaded_at
		FROM submission_files
		WHERE submission_id = $1
		ORDER BY uploaded_at
	`, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []model.SubmissionFile
	for rows.Next() {
		var file model.SubmissionFile
		err := rows.Scan(
			&file.ID,
			&file.SubmissionID,
			&file.FileName,
			&file.FilePath,
			&file.FileSize,
			&file.MimeType,
			&file.UploadedAt,
		)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func (s *Store) DeleteSubmissionFile(ctx context.Context, fileID, submissionID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM submission_files
		WHERE id = $1 AND submission_id = $2
	`, fileID, submissionID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
