package repository

import (
	"context"
	"time"

	"classdesk/internal/model"
)

const assignmentColumns = `id, title, description, due_date, max_score, professor_id, created_at, updated_at`

func scanAssignment(row interface{ Scan(...any) error }) (model.Assignment, error) {
	var assignment model.Assignment
	err := row.Scan(
		&assignment.ID,
		&assignment.Title,
		&assignment.Description,
		&assignment.DueDate,
		&assignment.MaxScore,
		&assignment.ProfessorID,
		&assignment.CreatedAt,
		&assignment.UpdatedAt,
	)
	return assignment, err
}

func (s *Store) CreateAssignment(ctx context.Context, assignment model.Assignment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO assignments (id, title, description, due_date, max_score, professor_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, assignment.ID, assignment.Title, assignment.Description, assignment.DueDate, assignment.MaxScore, assignment.ProfessorID, assignment.CreatedAt, assignment.UpdatedAt)
	return err
}

func (s *Store) GetAssignment(ctx context.Context, assignmentID string) (model.Assignment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignments
		WHERE id = $1
	`, assignmentID)
	return scanAssignment(row)
}

// AssignmentSummary carries the listing extras the dashboard shows next to
// each assignment.
type AssignmentSummary struct {
	Assignment      model.Assignment
	ProfessorName   string
	AttachmentCount int
}

func (s *Store) ListAssignments(ctx context.Context) ([]AssignmentSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.id, a.title, a.description, a.due_date, a.max_score, a.professor_id, a.created_at, a.updated_at,
		       u.full_name,
		       (SELECT count(*) FROM attachments att WHERE att.assignment_id = a.id)
		FROM assignments a
		JOIN users u ON u.id = a.professor_id
		ORDER BY a.due_date
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []AssignmentSummary
	for rows.Next() {
		var summary AssignmentSummary
		err := rows.Scan(
			&summary.Assignment.ID,
			&summary.Assignment.Title,
			&summary.Assignment.Description,
			&summary.Assignment.DueDate,
			&summary.Assignment.MaxScore,
			&summary.Assignment.ProfessorID,
			&summary.Assignment.CreatedAt,
			&summary.Assignment.UpdatedAt,
			&summary.ProfessorName,
			&summary.AttachmentCount,
		)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

type AssignmentUpdate struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	MaxScore    *int
}

// UpdateAssignment is owner-scoped: rows belonging to another professor are
// not touched and surface as pgx.ErrNoRows.
func (s *Store) UpdateAssignment(ctx context.Context, assignmentID, professorID string, update AssignmentUpdate) (model.Assignment, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE assignments
		SET title = COALESCE($3, title),
		    description = COALESCE($4, description),
		    due_date = COALESCE($5, due_date),
		    max_score = COALESCE($6, max_score),
		    updated_at = now()
		WHERE id = $1 AND professor_id = $2
		RETURNING `+assignmentColumns+`
	`, assignmentID, professorID, update.Title, update.Description, update.DueDate, update.MaxScore)
	return scanAssignment(row)
}

func (s *Store) DeleteAssignment(ctx context.Context, assignmentID, professorID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM assignments
		WHERE id = $1 AND professor_id = $2
	`, assignmentID, professorID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) CreateAttachment(ctx context.Context, attachment model.Attachment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO attachments (id, assignment_id, file_name, file_path, file_size, mime_type, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, attachment.ID, attachment.AssignmentID, attachment.FileName, attachment.FilePath, attachment.FileSize, attachment.MimeType, attachment.UploadedAt)
	return err
}

func (s *Store) ListAttachments(ctx context.Context, assignmentID string) ([]model.Attachment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, assignment_id, file_name, file_path, file_size, mime_type, uploaded_at
		FROM attachments
		WHERE assignment_id = $1
		ORDER BY uploaded_at
	`, assignmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []model.Attachment
	for rows.Next() {
		var attachment model.Attachment
		err := rows.Scan(
			&attachment.ID,
			&attachment.AssignmentID,
			&attachment.FileName,
			&attachment.FilePath,
			&attachment.FileSize,
			&attachment.MimeType,
			&attachment.UploadedAt,
		)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, attachment)
	}
	return attachments, rows.Err()
}

func (s *Store) GetAttachment(ctx context.Context, attachmentID string) (model.Attachment, error) {
	var attachment model.Attachment
	row := s.pool.QueryRow(ctx, `
		SELECT id, assignment_id, file_name, file_path, file_size, mime_type, uploaded_at
		FROM attachments
		WHERE id = $1
	`, attachmentID)
	err := row.Scan(
		&attachment.ID,
		&attachment.AssignmentID,
		&attachment.FileName,
		&attachment.FilePath,
		&attachment.FileSize,
		&attachment.MimeType,
		&attachment.UploadedAt,
	)
	return attachment, err
}

func (s *Store) ListAttachmentPaths(ctx context.Context, assignmentID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT file_path FROM attachments WHERE assignment_id = $1
	`, assignmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, rows.Err()
}
