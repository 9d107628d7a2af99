package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"

	"classboard/internal/domain"
)

// CreateSubmission runs the whole submit write set in one transaction:
// submission insert, participation cleanup, cumulative profile points, and
// the denormalized enrollment score.
func (s *Store) CreateSubmission(ctx context.Context, submission domain.Submission) error {
	answers, err := json.Marshal(submission.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO quiz_submissions (id, quiz_id, student_id, answers, score, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		submission.ID, submission.QuizID, submission.StudentID, answers, submission.Score, submission.SubmittedAt)
	if uniqueViolation(err, "quiz_submissions_quiz_id_student_id_key") {
		return domain.ErrAlreadySubmitted
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM active_quiz_participation WHERE quiz_id = $1 AND student_id = $2`,
		submission.QuizID, submission.StudentID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE profiles SET total_points = total_points + $2 WHERE id = $1`,
		submission.StudentID, submission.Score); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE enrollments SET score = $3
		WHERE kind = 'quiz' AND target_id = $1 AND student_id = $2`,
		submission.QuizID, submission.StudentID, submission.Score); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) SubmissionFor(ctx context.Context, quizID, studentID string) (domain.Submission, error) {
	return s.scanSubmission(s.pool.QueryRow(ctx, `
		SELECT id, quiz_id, student_id, answers, score, submitted_at
		FROM quiz_submissions WHERE quiz_id = $1 AND student_id = $2`,
		quizID, studentID))
}

func (s *Store) ListSubmissionsByQuiz(ctx context.Context, quizID string) ([]domain.Submission, error) {
	return s.ListSubmissionsForQuizzes(ctx, []string{quizID})
}

func (s *Store) ListSubmissionsForQuizzes(ctx context.Context, quizIDs []string) ([]domain.Submission, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, quiz_id, student_id, answers, score, submitted_at
		FROM quiz_submissions WHERE quiz_id = ANY($1)
		ORDER BY submitted_at, id`, quizIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Submission
	for rows.Next() {
		submission, err := s.scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, submission)
	}
	return out, rows.Err()
}

func (s *Store) scanSubmission(row rowScanner) (domain.Submission, error) {
	var submission domain.Submission
	var answers []byte
	err := row.Scan(&submission.ID, &submission.QuizID, &submission.StudentID,
		&answers, &submission.Score, &submission.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.Submission{}, err
	}
	if err := json.Unmarshal(answers, &submission.Answers); err != nil {
		return domain.Submission{}, fmt.Errorf("unmarshal answers: %w", err)
	}
	return submission, nil
}
