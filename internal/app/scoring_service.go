package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"classboard/internal/domain"
)

// ScoringService turns submitted answers into a persisted, scored
// submission. Submissions are immutable and unique per (student, quiz);
// the per-pair keyed mutex plus the store's uniqueness guarantee close the
// double-submit race.
type ScoringService struct {
	store  Store
	keys   AnswerKeyRepository
	access quizAccess
	hub    *MonitorHub
	locks  *keyedMutex
	now    func() time.Time
	newID  func() string
}

func NewScoringService(store Store, keys AnswerKeyRepository, access quizAccess, hub *MonitorHub) *ScoringService {
	return &ScoringService{
		store:  store,
		keys:   keys,
		access: access,
		hub:    hub,
		locks:  newKeyedMutex(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// NewScoringServiceWithClock is test-only for deterministic timestamps.
func NewScoringServiceWithClock(store Store, keys AnswerKeyRepository, access quizAccess, hub *MonitorHub, now func() time.Time) *ScoringService {
	svc := NewScoringService(store, keys, access, hub)
	svc.now = now
	return svc
}

// Submit scores and persists a student's answers. The session must still
// be open and the student fully enrolled. Unanswered questions and
// out-of-range option indices score zero.
func (s *ScoringService) Submit(ctx context.Context, quizID, studentID string, answers map[string]int) (domain.Submission, error) {
	// The session only needs to be active, not inside its deadline: a
	// client auto-submitting at zero may land just after the cutoff and
	// must still be accepted until the sweeper ends the session.
	if _, err := s.store.ActiveSession(ctx, quizID); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.Submission{}, domain.ErrSessionNotActive
		}
		return domain.Submission{}, err
	}

	allowed, err := s.access.CanTakeQuiz(ctx, studentID, quizID)
	if err != nil {
		return domain.Submission{}, err
	}
	if !allowed {
		return domain.Submission{}, domain.ErrNotEnrolled
	}

	return s.submit(ctx, quizID, studentID, answers)
}

// ForceSubmit finalizes an attempt on behalf of the system: teacher stop
// or deadline expiry. Access was checked when participation began, and the
// session may already be ending, so neither is re-checked here.
func (s *ScoringService) ForceSubmit(ctx context.Context, quizID, studentID string, answers map[string]int) error {
	_, err := s.submit(ctx, quizID, studentID, answers)
	return err
}

func (s *ScoringService) submit(ctx context.Context, quizID, studentID string, answers map[string]int) (domain.Submission, error) {
	unlock := s.locks.Lock(studentID + ":" + quizID)
	defer unlock()

	if _, err := s.store.SubmissionFor(ctx, quizID, studentID); err == nil {
		return domain.Submission{}, domain.ErrAlreadySubmitted
	} else if !errors.Is(err, domain.ErrSubmissionNotFound) {
		return domain.Submission{}, err
	}

	key, err := s.keys.AnswerKey(ctx, quizID)
	if err != nil {
		return domain.Submission{}, err
	}
	if answers == nil {
		answers = map[string]int{}
	}

	submission := domain.Submission{
		ID:          s.newID(),
		QuizID:      quizID,
		StudentID:   studentID,
		Answers:     answers,
		Score:       key.Score(answers),
		SubmittedAt: s.now(),
	}
	if err := s.store.CreateSubmission(ctx, submission); err != nil {
		return domain.Submission{}, err
	}
	s.hub.Notify(quizID)
	return submission, nil
}

// Result returns a student's submission for a quiz.
func (s *ScoringService) Result(ctx context.Context, quizID, studentID string) (domain.Submission, error) {
	return s.store.SubmissionFor(ctx, quizID, studentID)
}
