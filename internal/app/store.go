package app

import (
	"context"
	"time"

	"classboard/internal/domain"
)

// ProfileStore persists accounts.
type ProfileStore interface {
	CreateProfile(ctx context.Context, profile domain.Profile) error
	ProfileByID(ctx context.Context, id string) (domain.Profile, error)
	ProfileByEmail(ctx context.Context, email string) (domain.Profile, error)
	ProfilesByIDs(ctx context.Context, ids []string) (map[string]domain.Profile, error)
}

// CatalogStore persists subjects, quizzes, and questions.
type CatalogStore interface {
	CreateSubject(ctx context.Context, subject domain.Subject) error
	SubjectByID(ctx context.Context, id string) (domain.Subject, error)
	ListSubjects(ctx context.Context) ([]domain.Subject, error)
	ListSubjectsByTeacher(ctx context.Context, teacherID string) ([]domain.Subject, error)
	CreateQuiz(ctx context.Context, quiz domain.Quiz) error
	QuizByID(ctx context.Context, id string) (domain.Quiz, error)
	ListQuizzesBySubject(ctx context.Context, subjectID string) ([]domain.Quiz, error)
	CreateQuestions(ctx context.Context, questions []domain.Question) error
	ListQuestions(ctx context.Context, quizID string) ([]domain.Question, error)
}

// EnrollmentStore persists subject- and quiz-level enrollments. At most one
// row exists per (student, target) pair; CreateEnrollment reports
// domain.ErrDuplicateRequest when that uniqueness would be violated.
type EnrollmentStore interface {
	CreateEnrollment(ctx context.Context, enrollment domain.Enrollment) error
	EnrollmentByID(ctx context.Context, id string) (domain.Enrollment, error)
	EnrollmentFor(ctx context.Context, kind domain.EnrollmentKind, studentID, targetID string) (domain.Enrollment, error)
	UpdateEnrollmentStatus(ctx context.Context, id string, status domain.EnrollmentStatus, decidedAt time.Time) error
	DeleteEnrollment(ctx context.Context, id string) error
	ListPendingForTeacher(ctx context.Context, teacherID string) ([]domain.Enrollment, error)
	ListApprovedStudents(ctx context.Context, quizID string) ([]string, error)
}

// SessionStore persists live sessions and participation rows.
// CreateSession reports domain.ErrSessionAlreadyActive when an active
// session already exists for the quiz.
type SessionStore interface {
	CreateSession(ctx context.Context, session domain.Session) error
	SessionByID(ctx context.Context, id string) (domain.Session, error)
	ActiveSession(ctx context.Context, quizID string) (domain.Session, error)
	ListActiveSessions(ctx context.Context) ([]domain.Session, error)
	EndSession(ctx context.Context, id string, endTime time.Time) error
	UpsertParticipation(ctx context.Context, participation domain.Participation) error
	ParticipationFor(ctx context.Context, quizID, studentID string) (domain.Participation, error)
	ListParticipants(ctx context.Context, quizID string) ([]domain.Participation, error)
}

// SubmissionStore persists scored submissions. CreateSubmission is the
// single write path for the submit transaction: it inserts the submission,
// clears the participation row, adds the score to the student's cumulative
// points, and records the score on the quiz enrollment, all atomically.
// It reports domain.ErrAlreadySubmitted for a duplicate (student, quiz).
type SubmissionStore interface {
	CreateSubmission(ctx context.Context, submission domain.Submission) error
	SubmissionFor(ctx context.Context, quizID, studentID string) (domain.Submission, error)
	ListSubmissionsByQuiz(ctx context.Context, quizID string) ([]domain.Submission, error)
	ListSubmissionsForQuizzes(ctx context.Context, quizIDs []string) ([]domain.Submission, error)
}

// StatsStore computes dashboard rollups. Missing data yields zero counts,
// never an error.
type StatsStore interface {
	TeacherStats(ctx context.Context, teacherID string) (domain.TeacherStats, error)
	StudentStats(ctx context.Context, studentID string) (domain.StudentStats, error)
}

// Store is the full persistence surface, implemented by infra/memory and
// infra/postgres.
type Store interface {
	ProfileStore
	CatalogStore
	EnrollmentStore
	SessionStore
	SubmissionStore
	StatsStore
}

// AnswerKeyRepository loads a quiz's answer key (from cache/backing store).
type AnswerKeyRepository interface {
	AnswerKey(ctx context.Context, quizID string) (domain.AnswerKey, error)
}
