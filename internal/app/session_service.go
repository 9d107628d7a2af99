package app

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"classboard/internal/domain"
)

// forceSubmitter finalizes a participant's attempt with whatever answers
// were last recorded. Implemented by ScoringService.
type forceSubmitter interface {
	ForceSubmit(ctx context.Context, quizID, studentID string, answers map[string]int) error
}

// quizAccess derives whether a student may take a quiz. Implemented by
// EnrollmentService.
type quizAccess interface {
	CanTakeQuiz(ctx context.Context, studentID, quizID string) (bool, error)
}

// SessionService drives the quiz session state machine
// (Inactive -> Active -> Ended) and the teacher-facing monitor projection.
type SessionService struct {
	store    Store
	scorer   forceSubmitter
	access   quizAccess
	hub      *MonitorHub
	duration time.Duration
	now      func() time.Time
	newID    func() string
}

func NewSessionService(store Store, scorer forceSubmitter, access quizAccess, hub *MonitorHub, duration time.Duration) *SessionService {
	return &SessionService{
		store:    store,
		scorer:   scorer,
		access:   access,
		hub:      hub,
		duration: duration,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// NewSessionServiceWithClock is test-only for deterministic timestamps.
func NewSessionServiceWithClock(store Store, scorer forceSubmitter, access quizAccess, hub *MonitorHub, duration time.Duration, now func() time.Time) *SessionService {
	svc := NewSessionService(store, scorer, access, hub, duration)
	svc.now = now
	return svc
}

// Duration is the fixed answering window applied to every session.
func (s *SessionService) Duration() time.Duration { return s.duration }

// Start opens a session for a quiz. Only the teacher owning the quiz's
// subject may start one, and only while no session is active for the quiz.
func (s *SessionService) Start(ctx context.Context, quizID, teacherID string) (domain.Session, error) {
	if err := s.authorizeTeacher(ctx, quizID, teacherID); err != nil {
		return domain.Session{}, err
	}

	session := domain.Session{
		ID:        s.newID(),
		QuizID:    quizID,
		TeacherID: teacherID,
		Status:    domain.SessionActive,
		StartTime: s.now(),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return domain.Session{}, err
	}
	s.hub.Notify(quizID)
	return session, nil
}

// Stop ends an active session. Every student still in progress is
// force-submitted with their last recorded draft answers before the
// session row transitions to ended.
func (s *SessionService) Stop(ctx context.Context, sessionID, teacherID string) (domain.Session, error) {
	session, err := s.store.SessionByID(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if err := s.authorizeTeacher(ctx, session.QuizID, teacherID); err != nil {
		return domain.Session{}, err
	}
	if session.Status != domain.SessionActive {
		return domain.Session{}, domain.ErrSessionNotActive
	}
	return s.end(ctx, session)
}

func (s *SessionService) end(ctx context.Context, session domain.Session) (domain.Session, error) {
	s.forceSubmitStragglers(ctx, session.QuizID)

	endTime := s.now()
	if err := s.store.EndSession(ctx, session.ID, endTime); err != nil {
		return domain.Session{}, err
	}
	session.Status = domain.SessionEnded
	session.EndTime = &endTime
	s.hub.Notify(session.QuizID)
	return session, nil
}

func (s *SessionService) forceSubmitStragglers(ctx context.Context, quizID string) {
	participants, err := s.store.ListParticipants(ctx, quizID)
	if err != nil {
		log.Printf("listing participants for quiz %s: %v", quizID, err)
		return
	}
	for _, p := range participants {
		err := s.scorer.ForceSubmit(ctx, quizID, p.StudentID, p.Draft)
		if err != nil && !errors.Is(err, domain.ErrAlreadySubmitted) {
			log.Printf("force-submit for student %s on quiz %s: %v", p.StudentID, quizID, err)
		}
	}
}

// ActiveSession returns the quiz's active session, if any.
func (s *SessionService) ActiveSession(ctx context.Context, quizID string) (domain.Session, error) {
	return s.store.ActiveSession(ctx, quizID)
}

// Begin registers a student's attempt. The session must be active and
// within its deadline, and the student must hold both approvals. Calling
// it twice is an upsert, not an error.
func (s *SessionService) Begin(ctx context.Context, quizID, studentID string) (domain.Participation, error) {
	if _, err := s.requireOpenSession(ctx, quizID); err != nil {
		return domain.Participation{}, err
	}

	allowed, err := s.access.CanTakeQuiz(ctx, studentID, quizID)
	if err != nil {
		return domain.Participation{}, err
	}
	if !allowed {
		return domain.Participation{}, domain.ErrNotEnrolled
	}

	now := s.now()
	participation, err := s.store.ParticipationFor(ctx, quizID, studentID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		participation = domain.Participation{
			ID:        s.newID(),
			QuizID:    quizID,
			StudentID: studentID,
			StartTime: now,
		}
	} else if err != nil {
		return domain.Participation{}, err
	}
	participation.LastActivity = now

	if err := s.store.UpsertParticipation(ctx, participation); err != nil {
		return domain.Participation{}, err
	}
	s.hub.Notify(quizID)
	return participation, nil
}

// Heartbeat refreshes a participant's activity marker and draft answers.
// Clients are expected to call it roughly every 15 seconds while the quiz
// is open.
func (s *SessionService) Heartbeat(ctx context.Context, quizID, studentID string, draft map[string]int) error {
	if _, err := s.requireOpenSession(ctx, quizID); err != nil {
		return err
	}
	participation, err := s.store.ParticipationFor(ctx, quizID, studentID)
	if err != nil {
		return err
	}
	participation.LastActivity = s.now()
	if draft != nil {
		participation.Draft = draft
	}
	return s.store.UpsertParticipation(ctx, participation)
}

// Monitor builds the teacher's live view of an active session: one entry
// per approved student, completed if a submission exists, in progress if a
// participation row exists, not started otherwise.
func (s *SessionService) Monitor(ctx context.Context, quizID, teacherID string) (domain.MonitorSnapshot, error) {
	if err := s.authorizeTeacher(ctx, quizID, teacherID); err != nil {
		return domain.MonitorSnapshot{}, err
	}
	session, err := s.store.ActiveSession(ctx, quizID)
	if err != nil {
		return domain.MonitorSnapshot{}, err
	}
	return s.snapshot(ctx, session)
}

// WatchMonitor subscribes to monitor change ticks for a quiz. The caller
// rebuilds the snapshot on each tick and must invoke cancel when done.
func (s *SessionService) WatchMonitor(ctx context.Context, quizID, teacherID string) (<-chan struct{}, func(), error) {
	if err := s.authorizeTeacher(ctx, quizID, teacherID); err != nil {
		return nil, nil, err
	}
	if _, err := s.store.ActiveSession(ctx, quizID); err != nil {
		return nil, nil, err
	}
	ch, cancel := s.hub.Subscribe(quizID)
	return ch, cancel, nil
}

func (s *SessionService) snapshot(ctx context.Context, session domain.Session) (domain.MonitorSnapshot, error) {
	studentIDs, err := s.store.ListApprovedStudents(ctx, session.QuizID)
	if err != nil {
		return domain.MonitorSnapshot{}, err
	}
	profiles, err := s.store.ProfilesByIDs(ctx, studentIDs)
	if err != nil {
		return domain.MonitorSnapshot{}, err
	}
	submissions, err := s.store.ListSubmissionsByQuiz(ctx, session.QuizID)
	if err != nil {
		return domain.MonitorSnapshot{}, err
	}
	participants, err := s.store.ListParticipants(ctx, session.QuizID)
	if err != nil {
		return domain.MonitorSnapshot{}, err
	}

	submittedAt := make(map[string]time.Time, len(submissions))
	for _, sub := range submissions {
		submittedAt[sub.StudentID] = sub.SubmittedAt
	}
	inProgress := make(map[string]bool, len(participants))
	for _, p := range participants {
		inProgress[p.StudentID] = true
	}

	snap := domain.MonitorSnapshot{
		QuizID:    session.QuizID,
		SessionID: session.ID,
		StartTime: session.StartTime,
		Deadline:  session.Deadline(s.duration),
		UpdatedAt: s.now(),
	}
	for _, studentID := range studentIDs {
		entry := domain.MonitorEntry{
			StudentID: studentID,
			Status:    domain.ParticipantNotStarted,
		}
		if profile, ok := profiles[studentID]; ok {
			entry.Name = profile.Name
		}
		if at, ok := submittedAt[studentID]; ok {
			entry.Status = domain.ParticipantCompleted
			t := at
			entry.SubmittedAt = &t
			snap.Completed++
		} else if inProgress[studentID] {
			entry.Status = domain.ParticipantInProgress
			snap.InProgress++
		} else {
			snap.NotStarted++
		}
		snap.Entries = append(snap.Entries, entry)
	}
	sort.Slice(snap.Entries, func(i, j int) bool {
		return snap.Entries[i].Name < snap.Entries[j].Name
	})
	return snap, nil
}

// SweepExpired ends every active session whose deadline has passed,
// force-submitting stragglers. It backs the fixed 30-minute window when
// clients fail to auto-submit on their own countdown.
func (s *SessionService) SweepExpired(ctx context.Context) error {
	sessions, err := s.store.ListActiveSessions(ctx)
	if err != nil {
		return err
	}
	now := s.now()
	for _, session := range sessions {
		if session.Deadline(s.duration).After(now) {
			continue
		}
		if _, err := s.end(ctx, session); err != nil {
			log.Printf("ending expired session %s: %v", session.ID, err)
		}
	}
	return nil
}

// Run sweeps expired sessions at a fixed interval until ctx is canceled.
func (s *SessionService) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.SweepExpired(ctx); err != nil {
				log.Printf("session sweep: %v", err)
			}
		}
	}
}

func (s *SessionService) requireOpenSession(ctx context.Context, quizID string) (domain.Session, error) {
	session, err := s.store.ActiveSession(ctx, quizID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.Session{}, domain.ErrSessionNotActive
	}
	if err != nil {
		return domain.Session{}, err
	}
	if !session.Deadline(s.duration).After(s.now()) {
		return domain.Session{}, domain.ErrSessionExpired
	}
	return session, nil
}

func (s *SessionService) authorizeTeacher(ctx context.Context, quizID, teacherID string) error {
	quiz, err := s.store.QuizByID(ctx, quizID)
	if err != nil {
		return err
	}
	subject, err := s.store.SubjectByID(ctx, quiz.SubjectID)
	if err != nil {
		return err
	}
	if subject.TeacherID != teacherID {
		return domain.ErrNotAuthorized
	}
	return nil
}
