package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"

	"classboard/internal/domain"
)

const enrollmentColumns = `id, kind, student_id, target_id, status, requested_at, decided_at, score`

func (s *Store) CreateEnrollment(ctx context.Context, enrollment domain.Enrollment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO enrollments (id, kind, student_id, target_id, status, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		enrollment.ID, string(enrollment.Kind), enrollment.StudentID,
		enrollment.TargetID, string(enrollment.Status), enrollment.RequestedAt)
	if uniqueViolation(err, "enrollments_kind_student_id_target_id_key") {
		return domain.ErrDuplicateRequest
	}
	return err
}

func (s *Store) EnrollmentByID(ctx context.Context, id string) (domain.Enrollment, error) {
	return s.scanEnrollment(s.pool.QueryRow(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1`, id))
}

func (s *Store) EnrollmentFor(ctx context.Context, kind domain.EnrollmentKind, studentID, targetID string) (domain.Enrollment, error) {
	return s.scanEnrollment(s.pool.QueryRow(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments
		 WHERE kind = $1 AND student_id = $2 AND target_id = $3`,
		string(kind), studentID, targetID))
}

func (s *Store) UpdateEnrollmentStatus(ctx context.Context, id string, status domain.EnrollmentStatus, decidedAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE enrollments SET status = $2, decided_at = $3 WHERE id = $1`,
		id, string(status), decidedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEnrollmentNotFound
	}
	return nil
}

func (s *Store) DeleteEnrollment(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEnrollmentNotFound
	}
	return nil
}

// ListPendingForTeacher joins both target kinds back to the owning teacher:
// subject enrollments directly, quiz enrollments via the quiz's subject.
func (s *Store) ListPendingForTeacher(ctx context.Context, teacherID string) ([]domain.Enrollment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.id, e.kind, e.student_id, e.target_id, e.status, e.requested_at, e.decided_at, e.score
		FROM enrollments e
		LEFT JOIN subjects s ON e.kind = 'subject' AND s.id = e.target_id
		LEFT JOIN quizzes q ON e.kind = 'quiz' AND q.id = e.target_id
		LEFT JOIN subjects qs ON qs.id = q.subject_id
		WHERE e.status = 'pending' AND (s.teacher_id = $1 OR qs.teacher_id = $1)
		ORDER BY e.requested_at, e.id`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Enrollment
	for rows.Next() {
		enrollment, err := s.scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, enrollment)
	}
	return out, rows.Err()
}

func (s *Store) ListApprovedStudents(ctx context.Context, quizID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT student_id FROM enrollments
		WHERE kind = 'quiz' AND target_id = $1 AND status = 'approved'
		ORDER BY student_id`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) scanEnrollment(row rowScanner) (domain.Enrollment, error) {
	var enrollment domain.Enrollment
	var kind, status string
	err := row.Scan(&enrollment.ID, &kind, &enrollment.StudentID, &enrollment.TargetID,
		&status, &enrollment.RequestedAt, &enrollment.DecidedAt, &enrollment.Score)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Enrollment{}, domain.ErrEnrollmentNotFound
	}
	if err != nil {
		return domain.Enrollment{}, err
	}
	enrollment.Kind = domain.EnrollmentKind(kind)
	enrollment.Status = domain.EnrollmentStatus(status)
	return enrollment, nil
}
