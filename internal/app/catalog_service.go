package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"classboard/internal/domain"
)

// QuestionInput is the creation payload for one question.
type QuestionInput struct {
	Text          string   `json:"text" validate:"required"`
	Options       []string `json:"options" validate:"required,min=2,dive,required"`
	CorrectOption int      `json:"correctOption" validate:"gte=0"`
	Points        int      `json:"points" validate:"gt=0"`
}

// CatalogService owns subject, quiz, and question creation and listing.
// Subjects and quizzes are created once by their teacher and never updated
// by students.
type CatalogService struct {
	store interface {
		ProfileStore
		CatalogStore
	}
	now   func() time.Time
	newID func() string
}

func NewCatalogService(store Store) *CatalogService {
	return &CatalogService{store: store, now: time.Now, newID: uuid.NewString}
}

// CreateSubject registers a subject owned by the acting teacher.
func (s *CatalogService) CreateSubject(ctx context.Context, teacherID, name, description string) (domain.Subject, error) {
	if err := s.requireTeacher(ctx, teacherID); err != nil {
		return domain.Subject{}, err
	}
	subject := domain.Subject{
		ID:          s.newID(),
		Name:        name,
		Description: description,
		TeacherID:   teacherID,
		CreatedAt:   s.now(),
	}
	if err := s.store.CreateSubject(ctx, subject); err != nil {
		return domain.Subject{}, err
	}
	return subject, nil
}

// CreateQuiz registers a quiz with its questions in one step. Only the
// subject's owner may create quizzes in it.
func (s *CatalogService) CreateQuiz(ctx context.Context, teacherID, subjectID, title, description string, questions []QuestionInput) (domain.Quiz, error) {
	subject, err := s.store.SubjectByID(ctx, subjectID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if subject.TeacherID != teacherID {
		return domain.Quiz{}, domain.ErrNotAuthorized
	}

	quiz := domain.Quiz{
		ID:          s.newID(),
		SubjectID:   subjectID,
		Title:       title,
		Description: description,
		CreatedAt:   s.now(),
	}

	rows := make([]domain.Question, 0, len(questions))
	for i, input := range questions {
		if err := validateQuestion(i, input); err != nil {
			return domain.Quiz{}, err
		}
		rows = append(rows, domain.Question{
			ID:            s.newID(),
			QuizID:        quiz.ID,
			Text:          input.Text,
			Options:       input.Options,
			CorrectOption: input.CorrectOption,
			Points:        input.Points,
		})
	}

	if err := s.store.CreateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	if len(rows) > 0 {
		if err := s.store.CreateQuestions(ctx, rows); err != nil {
			return domain.Quiz{}, err
		}
	}
	return quiz, nil
}

func validateQuestion(i int, input QuestionInput) error {
	if len(input.Options) < 2 {
		return fmt.Errorf("question %d: needs at least two options: %w", i, domain.ErrInvalidQuestion)
	}
	if input.CorrectOption < 0 || input.CorrectOption >= len(input.Options) {
		return fmt.Errorf("question %d: correct option out of range: %w", i, domain.ErrInvalidQuestion)
	}
	if input.Points <= 0 {
		return fmt.Errorf("question %d: points must be positive: %w", i, domain.ErrInvalidQuestion)
	}
	return nil
}

func (s *CatalogService) Subject(ctx context.Context, id string) (domain.Subject, error) {
	return s.store.SubjectByID(ctx, id)
}

func (s *CatalogService) ListSubjects(ctx context.Context) ([]domain.Subject, error) {
	return s.store.ListSubjects(ctx)
}

func (s *CatalogService) ListSubjectsByTeacher(ctx context.Context, teacherID string) ([]domain.Subject, error) {
	return s.store.ListSubjectsByTeacher(ctx, teacherID)
}

func (s *CatalogService) Quiz(ctx context.Context, id string) (domain.Quiz, error) {
	return s.store.QuizByID(ctx, id)
}

func (s *CatalogService) ListQuizzesBySubject(ctx context.Context, subjectID string) ([]domain.Quiz, error) {
	return s.store.ListQuizzesBySubject(ctx, subjectID)
}

// Questions returns a quiz's questions, answer key included. Transport
// strips the correct indices for student-facing responses.
func (s *CatalogService) Questions(ctx context.Context, quizID string) ([]domain.Question, error) {
	if _, err := s.store.QuizByID(ctx, quizID); err != nil {
		return nil, err
	}
	return s.store.ListQuestions(ctx, quizID)
}

func (s *CatalogService) requireTeacher(ctx context.Context, id string) error {
	profile, err := s.store.ProfileByID(ctx, id)
	if err != nil {
		return err
	}
	if profile.Role != domain.RoleTeacher {
		return domain.ErrNotAuthorized
	}
	return nil
}
