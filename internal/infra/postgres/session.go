package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"

	"classboard/internal/domain"
)

func (s *Store) CreateSession(ctx context.Context, session domain.Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO active_quiz_sessions (id, quiz_id, teacher_id, status, start_time)
		VALUES ($1, $2, $3, $4, $5)`,
		session.ID, session.QuizID, session.TeacherID, string(session.Status), session.StartTime)
	if uniqueViolation(err, "active_quiz_sessions_one_active") {
		return domain.ErrSessionAlreadyActive
	}
	return err
}

func (s *Store) SessionByID(ctx context.Context, id string) (domain.Session, error) {
	return s.scanSession(s.pool.QueryRow(ctx, `
		SELECT id, quiz_id, teacher_id, status, start_time, end_time
		FROM active_quiz_sessions WHERE id = $1`, id))
}

func (s *Store) ActiveSession(ctx context.Context, quizID string) (domain.Session, error) {
	return s.scanSession(s.pool.QueryRow(ctx, `
		SELECT id, quiz_id, teacher_id, status, start_time, end_time
		FROM active_quiz_sessions WHERE quiz_id = $1 AND status = 'active'`, quizID))
}

func (s *Store) ListActiveSessions(ctx context.Context) ([]domain.Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, quiz_id, teacher_id, status, start_time, end_time
		FROM active_quiz_sessions WHERE status = 'active' ORDER BY start_time, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Session
	for rows.Next() {
		session, err := s.scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

func (s *Store) EndSession(ctx context.Context, id string, endTime time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE active_quiz_sessions SET status = 'ended', end_time = $2
		WHERE id = $1 AND status = 'active'`, id, endTime)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either the session is unknown or it already ended.
		if _, err := s.SessionByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrSessionNotActive
	}
	return nil
}

func (s *Store) UpsertParticipation(ctx context.Context, participation domain.Participation) error {
	draft, err := json.Marshal(participation.Draft)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO active_quiz_participation (id, quiz_id, student_id, start_time, last_activity, draft)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (quiz_id, student_id)
		DO UPDATE SET last_activity = EXCLUDED.last_activity, draft = EXCLUDED.draft`,
		participation.ID, participation.QuizID, participation.StudentID,
		participation.StartTime, participation.LastActivity, draft)
	return err
}

func (s *Store) ParticipationFor(ctx context.Context, quizID, studentID string) (domain.Participation, error) {
	return s.scanParticipation(s.pool.QueryRow(ctx, `
		SELECT id, quiz_id, student_id, start_time, last_activity, draft
		FROM active_quiz_participation WHERE quiz_id = $1 AND student_id = $2`,
		quizID, studentID))
}

func (s *Store) ListParticipants(ctx context.Context, quizID string) ([]domain.Participation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, quiz_id, student_id, start_time, last_activity, draft
		FROM active_quiz_participation WHERE quiz_id = $1 ORDER BY student_id`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Participation
	for rows.Next() {
		participation, err := s.scanParticipation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, participation)
	}
	return out, rows.Err()
}

func (s *Store) scanSession(row rowScanner) (domain.Session, error) {
	var session domain.Session
	var status string
	err := row.Scan(&session.ID, &session.QuizID, &session.TeacherID, &status, &session.StartTime, &session.EndTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, err
	}
	session.Status = domain.SessionStatus(status)
	return session, nil
}

func (s *Store) scanParticipation(row rowScanner) (domain.Participation, error) {
	var participation domain.Participation
	var draft []byte
	err := row.Scan(&participation.ID, &participation.QuizID, &participation.StudentID,
		&participation.StartTime, &participation.LastActivity, &draft)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Participation{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Participation{}, err
	}
	if len(draft) > 0 {
		if err := json.Unmarshal(draft, &participation.Draft); err != nil {
			return domain.Participation{}, fmt.Errorf("unmarshal draft: %w", err)
		}
	}
	return participation, nil
}
