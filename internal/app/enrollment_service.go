package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"classboard/internal/domain"
)

// EnrollmentService owns the enrollment request lifecycle and derives
// access rights from it. Quiz access requires BOTH an approved subject
// enrollment and an approved quiz enrollment.
type EnrollmentService struct {
	store interface {
		CatalogStore
		EnrollmentStore
	}
	locks *keyedMutex
	now   func() time.Time
	newID func() string
}

func NewEnrollmentService(store Store) *EnrollmentService {
	return &EnrollmentService{
		store: store,
		locks: newKeyedMutex(),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Request creates a pending enrollment for a subject or quiz. A pending or
// approved row for the same pair is a conflict; a rejected row is replaced,
// letting the student ask again.
func (s *EnrollmentService) Request(ctx context.Context, kind domain.EnrollmentKind, studentID, targetID string) (domain.Enrollment, error) {
	if err := s.targetExists(ctx, kind, targetID); err != nil {
		return domain.Enrollment{}, err
	}

	unlock := s.locks.Lock(string(kind) + ":" + studentID + ":" + targetID)
	defer unlock()

	existing, err := s.store.EnrollmentFor(ctx, kind, studentID, targetID)
	switch {
	case err == nil:
		if existing.Status != domain.EnrollmentRejected {
			return domain.Enrollment{}, domain.ErrDuplicateRequest
		}
		if err := s.store.DeleteEnrollment(ctx, existing.ID); err != nil {
			return domain.Enrollment{}, err
		}
	case !errors.Is(err, domain.ErrEnrollmentNotFound):
		return domain.Enrollment{}, err
	}

	enrollment := domain.Enrollment{
		ID:          s.newID(),
		Kind:        kind,
		StudentID:   studentID,
		TargetID:    targetID,
		Status:      domain.EnrollmentPending,
		RequestedAt: s.now(),
	}
	if err := s.store.CreateEnrollment(ctx, enrollment); err != nil {
		return domain.Enrollment{}, err
	}
	return enrollment, nil
}

// Cancel deletes a pending request. Only the requesting student may cancel,
// and only while the request is still pending.
func (s *EnrollmentService) Cancel(ctx context.Context, enrollmentID, actorID string) error {
	enrollment, err := s.store.EnrollmentByID(ctx, enrollmentID)
	if err != nil {
		return err
	}
	if enrollment.StudentID != actorID {
		return domain.ErrNotAuthorized
	}
	if enrollment.Status != domain.EnrollmentPending {
		return domain.ErrInvalidTransition
	}
	return s.store.DeleteEnrollment(ctx, enrollment.ID)
}

// Decide approves or rejects a pending request. Only the teacher owning the
// parent subject may decide; both outcomes are terminal.
func (s *EnrollmentService) Decide(ctx context.Context, enrollmentID, teacherID string, approve bool) (domain.Enrollment, error) {
	enrollment, err := s.store.EnrollmentByID(ctx, enrollmentID)
	if err != nil {
		return domain.Enrollment{}, err
	}

	owner, err := s.targetOwner(ctx, enrollment.Kind, enrollment.TargetID)
	if err != nil {
		return domain.Enrollment{}, err
	}
	if owner != teacherID {
		return domain.Enrollment{}, domain.ErrNotAuthorized
	}
	if enrollment.Status != domain.EnrollmentPending {
		return domain.Enrollment{}, domain.ErrInvalidTransition
	}

	status := domain.EnrollmentRejected
	if approve {
		status = domain.EnrollmentApproved
	}
	decidedAt := s.now()
	if err := s.store.UpdateEnrollmentStatus(ctx, enrollment.ID, status, decidedAt); err != nil {
		return domain.Enrollment{}, err
	}
	enrollment.Status = status
	enrollment.DecidedAt = &decidedAt
	return enrollment, nil
}

// AccessStatus reports whether a student is enrolled in, or has a pending
// request for, a subject or quiz.
func (s *EnrollmentService) AccessStatus(ctx context.Context, kind domain.EnrollmentKind, studentID, targetID string) (domain.AccessStatus, error) {
	enrollment, err := s.store.EnrollmentFor(ctx, kind, studentID, targetID)
	if errors.Is(err, domain.ErrEnrollmentNotFound) {
		return domain.AccessStatus{}, nil
	}
	if err != nil {
		return domain.AccessStatus{}, err
	}
	return domain.AccessStatus{
		Enrolled: enrollment.Status == domain.EnrollmentApproved,
		Pending:  enrollment.Status == domain.EnrollmentPending,
	}, nil
}

// CanTakeQuiz applies the combined access rule: approved on the quiz's
// subject AND on the quiz itself.
func (s *EnrollmentService) CanTakeQuiz(ctx context.Context, studentID, quizID string) (bool, error) {
	quiz, err := s.store.QuizByID(ctx, quizID)
	if err != nil {
		return false, err
	}
	subjectAccess, err := s.AccessStatus(ctx, domain.EnrollSubject, studentID, quiz.SubjectID)
	if err != nil {
		return false, err
	}
	quizAccess, err := s.AccessStatus(ctx, domain.EnrollQuiz, studentID, quizID)
	if err != nil {
		return false, err
	}
	return subjectAccess.Enrolled && quizAccess.Enrolled, nil
}

// PendingForTeacher lists every pending request targeting the teacher's
// subjects or the quizzes inside them.
func (s *EnrollmentService) PendingForTeacher(ctx context.Context, teacherID string) ([]domain.Enrollment, error) {
	return s.store.ListPendingForTeacher(ctx, teacherID)
}

func (s *EnrollmentService) targetExists(ctx context.Context, kind domain.EnrollmentKind, targetID string) error {
	if kind == domain.EnrollSubject {
		_, err := s.store.SubjectByID(ctx, targetID)
		return err
	}
	_, err := s.store.QuizByID(ctx, targetID)
	return err
}

func (s *EnrollmentService) targetOwner(ctx context.Context, kind domain.EnrollmentKind, targetID string) (string, error) {
	subjectID := targetID
	if kind == domain.EnrollQuiz {
		quiz, err := s.store.QuizByID(ctx, targetID)
		if err != nil {
			return "", err
		}
		subjectID = quiz.SubjectID
	}
	subject, err := s.store.SubjectByID(ctx, subjectID)
	if err != nil {
		return "", err
	}
	return subject.TeacherID, nil
}
