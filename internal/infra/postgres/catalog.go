package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"

	"classboard/internal/domain"
)

func (s *Store) CreateSubject(ctx context.Context, subject domain.Subject) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO subjects (id, name, description, teacher_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		subject.ID, subject.Name, subject.Description, subject.TeacherID, subject.CreatedAt)
	return err
}

func (s *Store) SubjectByID(ctx context.Context, id string) (domain.Subject, error) {
	var subject domain.Subject
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, description, teacher_id, created_at
		FROM subjects WHERE id = $1`, id).
		Scan(&subject.ID, &subject.Name, &subject.Description, &subject.TeacherID, &subject.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Subject{}, domain.ErrSubjectNotFound
	}
	return subject, err
}

func (s *Store) ListSubjects(ctx context.Context) ([]domain.Subject, error) {
	return s.querySubjects(ctx, `
		SELECT id, name, description, teacher_id, created_at
		FROM subjects ORDER BY created_at, id`)
}

func (s *Store) ListSubjectsByTeacher(ctx context.Context, teacherID string) ([]domain.Subject, error) {
	return s.querySubjects(ctx, `
		SELECT id, name, description, teacher_id, created_at
		FROM subjects WHERE teacher_id = $1 ORDER BY created_at, id`, teacherID)
}

func (s *Store) querySubjects(ctx context.Context, query string, args ...interface{}) ([]domain.Subject, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Subject
	for rows.Next() {
		var subject domain.Subject
		if err := rows.Scan(&subject.ID, &subject.Name, &subject.Description, &subject.TeacherID, &subject.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, subject)
	}
	return out, rows.Err()
}

func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO quizzes (id, subject_id, title, description, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		quiz.ID, quiz.SubjectID, quiz.Title, quiz.Description, quiz.CreatedAt)
	return err
}

func (s *Store) QuizByID(ctx context.Context, id string) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := s.pool.QueryRow(ctx, `
		SELECT id, subject_id, title, description, created_at
		FROM quizzes WHERE id = $1`, id).
		Scan(&quiz.ID, &quiz.SubjectID, &quiz.Title, &quiz.Description, &quiz.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, err
}

func (s *Store) ListQuizzesBySubject(ctx context.Context, subjectID string) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, subject_id, title, description, created_at
		FROM quizzes WHERE subject_id = $1 ORDER BY created_at, id`, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Quiz
	for rows.Next() {
		var quiz domain.Quiz
		if err := rows.Scan(&quiz.ID, &quiz.SubjectID, &quiz.Title, &quiz.Description, &quiz.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, quiz)
	}
	return out, rows.Err()
}

func (s *Store) CreateQuestions(ctx context.Context, questions []domain.Question) error {
	batch := &pgx.Batch{}
	for _, question := range questions {
		options, err := json.Marshal(question.Options)
		if err != nil {
			return fmt.Errorf("marshal options: %w", err)
		}
		batch.Queue(`
			INSERT INTO questions (id, quiz_id, text, options, correct_option_index, points)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			question.ID, question.QuizID, question.Text, options, question.CorrectOption, question.Points)
	}
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range questions {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, quiz_id, text, options, correct_option_index, points
		FROM questions WHERE quiz_id = $1 ORDER BY id`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Question
	for rows.Next() {
		var question domain.Question
		var options []byte
		if err := rows.Scan(&question.ID, &question.QuizID, &question.Text, &options, &question.CorrectOption, &question.Points); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(options, &question.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
		out = append(out, question)
	}
	return out, rows.Err()
}
