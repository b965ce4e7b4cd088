package repository

import (
	"context"

	"classdesk/internal/model"
)

const gradeColumns = `id, submission_id, score, feedback, graded_by, graded_at`

func scanGrade(row interface{ Scan(...any) error }) (model.Grade, error) {
	var grade model.Grade
	err := row.Scan(
		&grade.ID,
		&grade.SubmissionID,
		&grade.Score,
		&grade.Feedback,
		&grade.GradedBy,
		&grade.GradedAt,
	)
	return grade, err
}

func (s *Store) CreateGrade(ctx context.Context, grade model.Grade) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO grades (id, submission_id, score, feedback, graded_by, graded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, grade.ID, grade.SubmissionID, grade.Score, grade.Feedback, grade.GradedBy, grade.GradedAt)
	return err
}

func (s *Store) GetGrade(ctx context.Context, gradeID string) (model.Grade, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+gradeColumns+`
		FROM grades
		WHERE id = $1
	`, gradeID)
	return scanGrade(row)
}

func (s *Store) GetGradeBySubmission(ctx context.Context, submissionID string) (model.Grade, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+gradeColumns+`
		FROM grades
		WHERE submission_id = $1
	`, submissionID)
	return scanGrade(row)
}

type GradeUpdate struct {
	Score    *int
	Feedback *string
}

func (s *Store) UpdateGrade(ctx context.Context, gradeID string, update GradeUpdate) (model.Grade, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE grades
		SET score = COALESCE($2, score),
		    feedback = COALESCE($3, feedback),
		    graded_at = now()
		WHERE id = $1
		RETURNING `+gradeColumns+`
	`, gradeID, update.Score, update.Feedback)
	return scanGrade(row)
}

func (s *Store) DeleteGrade(ctx context.Context, gradeID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM grades WHERE id = $1`, gradeID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListGradedSubmissionsByStudent returns only submissions that already have
// a grade, newest first.
func (s *Store) ListGradedSubmissionsByStudent(ctx context.Context, studentID string) ([]model.Submission, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.assignment_id, s.student_id, s.content, s.submitted_at, s.status
		FROM submissions s
		JOIN grades g ON g.submission_id = s.id
		WHERE s.student_id = $1
		ORDER BY s.submitted_at DESC
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
