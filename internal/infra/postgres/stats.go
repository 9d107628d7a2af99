package postgres

import (
	"context"

	"classboard/internal/domain"
)

func (s *Store) TeacherStats(ctx context.Context, teacherID string) (domain.TeacherStats, error) {
	var stats domain.TeacherStats
	err := s.pool.QueryRow(ctx, `
		WITH owned AS (
			SELECT e.student_id, e.status
			FROM enrollments e
			LEFT JOIN subjects s ON e.kind = 'subject' AND s.id = e.target_id
			LEFT JOIN quizzes q ON e.kind = 'quiz' AND q.id = e.target_id
			LEFT JOIN subjects qs ON qs.id = q.subject_id
			WHERE s.teacher_id = $1 OR qs.teacher_id = $1
		)
		SELECT
			(SELECT COUNT(*) FROM subjects WHERE teacher_id = $1),
			(SELECT COUNT(*) FROM quizzes q
				JOIN subjects s ON s.id = q.subject_id WHERE s.teacher_id = $1),
			(SELECT COUNT(DISTINCT student_id) FROM owned WHERE status = 'approved'),
			(SELECT COUNT(*) FROM owned WHERE status = 'pending')`,
		teacherID).
		Scan(&stats.Subjects, &stats.Quizzes, &stats.UniqueStudents, &stats.PendingRequests)
	return stats, err
}

func (s *Store) StudentStats(ctx context.Context, studentID string) (domain.StudentStats, error) {
	var stats domain.StudentStats
	err := s.pool.QueryRow(ctx, `
		SELECT
			COALESCE((SELECT total_points FROM profiles WHERE id = $1), 0),
			(SELECT COUNT(*) FROM enrollments
				WHERE student_id = $1 AND kind = 'subject' AND status = 'approved'),
			(SELECT COUNT(*) FROM enrollments
				WHERE student_id = $1 AND kind = 'quiz' AND status = 'approved'),
			(SELECT COUNT(*) FROM enrollments e
				JOIN active_quiz_sessions aqs ON aqs.quiz_id = e.target_id AND aqs.status = 'active'
				WHERE e.student_id = $1 AND e.kind = 'quiz' AND e.status = 'approved'),
			(SELECT COUNT(*) FROM enrollments
				WHERE student_id = $1 AND status = 'pending')`,
		studentID).
		Scan(&stats.TotalPoints, &stats.EnrolledSubjects, &stats.EnrolledQuizzes,
			&stats.ActiveQuizzes, &stats.PendingRequests)
	return stats, err
}
