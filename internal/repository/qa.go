package repository

import (
	"context"

	"classdesk/internal/model"
)

func (s *Store) CreateQALog(ctx context.Context, log model.QALog) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO qa_logs (id, assignment_id, student_id, question, answer, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, log.ID, log.AssignmentID, log.StudentID, log.Question, log.Answer, log.Source, log.CreatedAt)
	return err
}

// QALogEntry pairs a log row with the asking student's display name.
type QALogEntry struct {
	Log         model.QALog
	StudentName string
}

func (s *Store) ListQALogsByAssignment(ctx context.Context, assignmentID string) ([]QALogEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT q.id, q.assignment_id, q.student_id, q.question, q.answer, q.source, q.created_at,
		       u.full_name
		FROM qa_logs q
		JOIN users u ON u.id = q.student_id
		WHERE q.assignment_id = $1
		ORDER BY q.created_at
	`, assignmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []QALogEntry
	for rows.Next() {
		var entry QALogEntry
		err := rows.Scan(
			&entry.Log.ID,
			&entry.Log.AssignmentID,
			&entry.Log.StudentID,
			&entry.Log.Question,
			&entry.Log.Answer,
			&entry.Log.Source,
			&entry.Log.CreatedAt,
			&entry.StudentName,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
