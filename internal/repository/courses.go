package repository

import (
	"context"

	"classdesk/internal/model"
)

func (s *Store) CreateCourse(ctx context.Context, course model.Course) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO courses (id, name, professor_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, course.ID, course.Name, course.ProfessorID, course.CreatedAt, course.UpdatedAt)
	return err
}

func (s *Store) GetCourse(ctx context.Context, courseID string) (model.Course, error) {
	var course model.Course
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, professor_id, created_at, updated_at
		FROM courses
		WHERE id = $1
	`, courseID)
	err := row.Scan(&course.ID, &course.Name, &course.ProfessorID, &course.CreatedAt, &course.UpdatedAt)
	return course, err
}

func (s *Store) ListCourses(ctx context.Context) ([]model.Course, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, professor_id, created_at, updated_at
		FROM courses
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		var course model.Course
		if err := rows.Scan(&course.ID, &course.Name, &course.ProfessorID, &course.CreatedAt, &course.UpdatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, course)
	}
	return courses, rows.Err()
}

func (s *Store) UpdateCourseName(ctx context.Context, courseID, name string) (model.Course, error) {
	var course model.Course
	row := s.pool.QueryRow(ctx, `
		UPDATE courses
		SET name = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, name, professor_id, created_at, updated_at
	`, courseID, name)
	err := row.Scan(&course.ID, &course.Name, &course.ProfessorID, &course.CreatedAt, &course.UpdatedAt)
	return course, err
}

func (s *Store) DeleteCourse(ctx context.Context, courseID string) (bool, error) {
	if _, err := s.pool.Exec(ctx, `DELETE FROM enrollments WHERE course_id = $1`, courseID); err != nil {
		return false, err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, courseID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) EnrollStudent(ctx context.Context, enrollment model.Enrollment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO enrollments (course_id, student_id, created_at)
		VALUES ($1, $2, $3)
	`, enrollment.CourseID, enrollment.StudentID, enrollment.CreatedAt)
	return err
}

func (s *Store) IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error) {
	var enrolled bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM enrollments WHERE course_id = $1 AND student_id = $2)
	`, courseID, studentID).Scan(&enrolled)
	return enrolled, err
}

func (s *Store) UnenrollStudent(ctx context.Context, courseID, studentID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM enrollments
		WHERE course_id = $1 AND student_id = $2
	`, courseID, studentID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) ListCourseStudents(ctx context.Context, courseID string) ([]model.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT u.id, u.email, u.password_hash, u.full_name, u.role, u.status, u.created_at, u.updated_at
		FROM enrollments e
		JOIN users u ON u.id = e.student_id
		WHERE e.course_id = $1
		ORDER BY u.full_name
	`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []model.User
	for rows.Next() {
		student, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, student)
	}
	return students, rows.Err()
}
