package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const studentColumns = `id, student_id, first_name, last_name, phone, email, is_active, created_at, updated_at`

func scanStudent(row interface{ Scan(...interface{}) error }) (Student, error) {
	var s Student
	err := row.Scan(&s.ID, &s.StudentID, &s.FirstName, &s.LastName, &s.Phone, &s.Email, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func collectStudents(rows pgx.Rows) ([]Student, error) {
	defer rows.Close()
	var result []Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (q *Queries) ListStudents(ctx context.Context) ([]Student, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+studentColumns+` FROM students WHERE is_active = true ORDER BY student_id`)
	if err != nil {
		return nil, err
	}
	return collectStudents(rows)
}

func (q *Queries) GetStudent(ctx context.Context, id uuid.UUID) (Student, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = $1 AND is_active = true`, id)
	return scanStudent(row)
}

type CreateStudentParams struct {
	StudentID string
	FirstName string
	LastName  string
	Phone     string
	Email     string
}

func (q *Queries) CreateStudent(ctx context.Context, arg CreateStudentParams) (Student, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO students (student_id, first_name, last_name, phone, email)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+studentColumns,
		arg.StudentID, arg.FirstName, arg.LastName, arg.Phone, arg.Email)
	return scanStudent(row)
}

type UpdateStudentParams struct {
	ID        uuid.UUID
	StudentID string
	FirstName string
	LastName  string
	Phone     string
	Email     string
}

func (q *Queries) UpdateStudent(ctx context.Context, arg UpdateStudentParams) (Student, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE students
		SET student_id = $2, first_name = $3, last_name = $4, phone = $5, email = $6, updated_at = now()
		WHERE id = $1 AND is_active = true
		RETURNING `+studentColumns,
		arg.ID, arg.StudentID, arg.FirstName, arg.LastName, arg.Phone, arg.Email)
	return scanStudent(row)
}

func (q *Queries) SoftDeleteStudent(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx, `
		UPDATE students SET is_active = false, updated_at = now()
		WHERE id = $1 AND is_active = true
		RETURNING id`, id).Scan(&deleted)
	return deleted, err
}

// CountStudentConflictsParams checks studentId/phone/email uniqueness across
// active students, excluding the record being edited.
type CountStudentConflictsParams struct {
	StudentID string
	Phone     string
	Email     string
	ExcludeID uuid.UUID
}

func (q *Queries) CountStudentConflicts(ctx context.Context, arg CountStudentConflictsParams) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM students
		WHERE is_active = true
		  AND id <> $4
		  AND (student_id = $1 OR phone = $2 OR email = $3)`,
		arg.StudentID, arg.Phone, arg.Email, arg.ExcludeID).Scan(&count)
	return count, err
}

func (q *Queries) CountStudents(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM students WHERE is_active = true`).Scan(&count)
	return count, err
}
