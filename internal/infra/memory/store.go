// Package memory holds the in-memory persistence layer, used by tests and
// when no postgres URL is configured.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"classboard/internal/domain"
)

// Store is a mutex-guarded in-memory implementation of app.Store. A single
// mutex covers every table, which is what makes CreateSubmission's
// multi-row write atomic here.
type Store struct {
	mu             sync.RWMutex
	profiles       map[string]domain.Profile
	emails         map[string]string
	subjects       map[string]domain.Subject
	quizzes        map[string]domain.Quiz
	questions      map[string][]domain.Question
	enrollments    map[string]domain.Enrollment
	sessions       map[string]domain.Session
	participations map[string]domain.Participation
	submissions    map[string]domain.Submission
}

func NewStore() *Store {
	return &Store{
		profiles:       make(map[string]domain.Profile),
		emails:         make(map[string]string),
		subjects:       make(map[string]domain.Subject),
		quizzes:        make(map[string]domain.Quiz),
		questions:      make(map[string][]domain.Question),
		enrollments:    make(map[string]domain.Enrollment),
		sessions:       make(map[string]domain.Session),
		participations: make(map[string]domain.Participation),
		submissions:    make(map[string]domain.Submission),
	}
}

func pairKey(quizID, studentID string) string { return quizID + ":" + studentID }

func (s *Store) CreateProfile(_ context.Context, profile domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emails[profile.Email]; ok {
		return domain.ErrEmailTaken
	}
	s.profiles[profile.ID] = profile
	s.emails[profile.Email] = profile.ID
	return nil
}

func (s *Store) ProfileByID(_ context.Context, id string) (domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[id]
	if !ok {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	return profile, nil
}

func (s *Store) ProfileByEmail(_ context.Context, email string) (domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[email]
	if !ok {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	return s.profiles[id], nil
}

func (s *Store) ProfilesByIDs(_ context.Context, ids []string) (map[string]domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.Profile, len(ids))
	for _, id := range ids {
		if profile, ok := s.profiles[id]; ok {
			out[id] = profile
		}
	}
	return out, nil
}

func (s *Store) CreateSubject(_ context.Context, subject domain.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects[subject.ID] = subject
	return nil
}

func (s *Store) SubjectByID(_ context.Context, id string) (domain.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subject, ok := s.subjects[id]
	if !ok {
		return domain.Subject{}, domain.ErrSubjectNotFound
	}
	return subject, nil
}

func (s *Store) ListSubjects(_ context.Context) ([]domain.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Subject, 0, len(s.subjects))
	for _, subject := range s.subjects {
		out = append(out, subject)
	}
	sortSubjects(out)
	return out, nil
}

func (s *Store) ListSubjectsByTeacher(_ context.Context, teacherID string) ([]domain.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Subject
	for _, subject := range s.subjects {
		if subject.TeacherID == teacherID {
			out = append(out, subject)
		}
	}
	sortSubjects(out)
	return out, nil
}

func (s *Store) CreateQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subjects[quiz.SubjectID]; !ok {
		return domain.ErrSubjectNotFound
	}
	s.quizzes[quiz.ID] = quiz
	return nil
}

func (s *Store) QuizByID(_ context.Context, id string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[id]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *Store) ListQuizzesBySubject(_ context.Context, subjectID string) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Quiz
	for _, quiz := range s.quizzes {
		if quiz.SubjectID == subjectID {
			out = append(out, quiz)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CreateQuestions(_ context.Context, questions []domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, question := range questions {
		if _, ok := s.quizzes[question.QuizID]; !ok {
			return domain.ErrQuizNotFound
		}
		s.questions[question.QuizID] = append(s.questions[question.QuizID], question)
	}
	return nil
}

func (s *Store) ListQuestions(_ context.Context, quizID string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, len(s.questions[quizID]))
	copy(out, s.questions[quizID])
	return out, nil
}

func (s *Store) CreateEnrollment(_ context.Context, enrollment domain.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.enrollments {
		if existing.Kind == enrollment.Kind &&
			existing.StudentID == enrollment.StudentID &&
			existing.TargetID == enrollment.TargetID {
			return domain.ErrDuplicateRequest
		}
	}
	s.enrollments[enrollment.ID] = enrollment
	return nil
}

func (s *Store) EnrollmentByID(_ context.Context, id string) (domain.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	enrollment, ok := s.enrollments[id]
	if !ok {
		return domain.Enrollment{}, domain.ErrEnrollmentNotFound
	}
	return enrollment, nil
}

func (s *Store) EnrollmentFor(_ context.Context, kind domain.EnrollmentKind, studentID, targetID string) (domain.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, enrollment := range s.enrollments {
		if enrollment.Kind == kind && enrollment.StudentID == studentID && enrollment.TargetID == targetID {
			return enrollment, nil
		}
	}
	return domain.Enrollment{}, domain.ErrEnrollmentNotFound
}

func (s *Store) UpdateEnrollmentStatus(_ context.Context, id string, status domain.EnrollmentStatus, decidedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	enrollment, ok := s.enrollments[id]
	if !ok {
		return domain.ErrEnrollmentNotFound
	}
	enrollment.Status = status
	enrollment.DecidedAt = &decidedAt
	s.enrollments[id] = enrollment
	return nil
}

func (s *Store) DeleteEnrollment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.enrollments[id]; !ok {
		return domain.ErrEnrollmentNotFound
	}
	delete(s.enrollments, id)
	return nil
}

func (s *Store) ListPendingForTeacher(_ context.Context, teacherID string) ([]domain.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Enrollment
	for _, enrollment := range s.enrollments {
		if enrollment.Status != domain.EnrollmentPending {
			continue
		}
		if s.ownerLocked(enrollment) == teacherID {
			out = append(out, enrollment)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RequestedAt.Equal(out[j].RequestedAt) {
			return out[i].RequestedAt.Before(out[j].RequestedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) ListApprovedStudents(_ context.Context, quizID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, enrollment := range s.enrollments {
		if enrollment.Kind == domain.EnrollQuiz &&
			enrollment.TargetID == quizID &&
			enrollment.Status == domain.EnrollmentApproved {
			out = append(out, enrollment.StudentID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) CreateSession(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.sessions {
		if existing.QuizID == session.QuizID && existing.Status == domain.SessionActive {
			return domain.ErrSessionAlreadyActive
		}
	}
	s.sessions[session.ID] = session
	return nil
}

func (s *Store) SessionByID(_ context.Context, id string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) ActiveSession(_ context.Context, quizID string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, session := range s.sessions {
		if session.QuizID == quizID && session.Status == domain.SessionActive {
			return session, nil
		}
	}
	return domain.Session{}, domain.ErrSessionNotFound
}

func (s *Store) ListActiveSessions(_ context.Context) ([]domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Session
	for _, session := range s.sessions {
		if session.Status == domain.SessionActive {
			out = append(out, session)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) EndSession(_ context.Context, id string, endTime time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if session.Status != domain.SessionActive {
		return domain.ErrSessionNotActive
	}
	session.Status = domain.SessionEnded
	session.EndTime = &endTime
	s.sessions[id] = session
	return nil
}

func (s *Store) UpsertParticipation(_ context.Context, participation domain.Participation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participations[pairKey(participation.QuizID, participation.StudentID)] = participation
	return nil
}

func (s *Store) ParticipationFor(_ context.Context, quizID, studentID string) (domain.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	participation, ok := s.participations[pairKey(quizID, studentID)]
	if !ok {
		return domain.Participation{}, domain.ErrSessionNotFound
	}
	return participation, nil
}

func (s *Store) ListParticipants(_ context.Context, quizID string) ([]domain.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Participation
	for _, participation := range s.participations {
		if participation.QuizID == quizID {
			out = append(out, participation)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

func (s *Store) CreateSubmission(_ context.Context, submission domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(submission.QuizID, submission.StudentID)
	if _, ok := s.submissions[key]; ok {
		return domain.ErrAlreadySubmitted
	}
	s.submissions[key] = submission
	delete(s.participations, key)

	if profile, ok := s.profiles[submission.StudentID]; ok {
		profile.TotalPoints += submission.Score
		s.profiles[submission.StudentID] = profile
	}
	for id, enrollment := range s.enrollments {
		if enrollment.Kind == domain.EnrollQuiz &&
			enrollment.StudentID == submission.StudentID &&
			enrollment.TargetID == submission.QuizID {
			score := submission.Score
			enrollment.Score = &score
			s.enrollments[id] = enrollment
			break
		}
	}
	return nil
}

func (s *Store) SubmissionFor(_ context.Context, quizID, studentID string) (domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	submission, ok := s.submissions[pairKey(quizID, studentID)]
	if !ok {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	return submission, nil
}

func (s *Store) ListSubmissionsByQuiz(ctx context.Context, quizID string) ([]domain.Submission, error) {
	return s.ListSubmissionsForQuizzes(ctx, []string{quizID})
}

func (s *Store) ListSubmissionsForQuizzes(_ context.Context, quizIDs []string) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[string]bool, len(quizIDs))
	for _, id := range quizIDs {
		wanted[id] = true
	}
	var out []domain.Submission
	for _, submission := range s.submissions {
		if wanted[submission.QuizID] {
			out = append(out, submission)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) TeacherStats(_ context.Context, teacherID string) (domain.TeacherStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.TeacherStats{}
	owned := make(map[string]bool)
	for id, subject := range s.subjects {
		if subject.TeacherID == teacherID {
			owned[id] = true
			stats.Subjects++
		}
	}
	ownedQuizzes := make(map[string]bool)
	for id, quiz := range s.quizzes {
		if owned[quiz.SubjectID] {
			ownedQuizzes[id] = true
			stats.Quizzes++
		}
	}

	students := make(map[string]bool)
	for _, enrollment := range s.enrollments {
		mine := (enrollment.Kind == domain.EnrollSubject && owned[enrollment.TargetID]) ||
			(enrollment.Kind == domain.EnrollQuiz && ownedQuizzes[enrollment.TargetID])
		if !mine {
			continue
		}
		switch enrollment.Status {
		case domain.EnrollmentApproved:
			students[enrollment.StudentID] = true
		case domain.EnrollmentPending:
			stats.PendingRequests++
		}
	}
	stats.UniqueStudents = len(students)
	return stats, nil
}

func (s *Store) StudentStats(_ context.Context, studentID string) (domain.StudentStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.StudentStats{}
	if profile, ok := s.profiles[studentID]; ok {
		stats.TotalPoints = profile.TotalPoints
	}

	activeQuizzes := make(map[string]bool)
	for _, session := range s.sessions {
		if session.Status == domain.SessionActive {
			activeQuizzes[session.QuizID] = true
		}
	}

	for _, enrollment := range s.enrollments {
		if enrollment.StudentID != studentID {
			continue
		}
		switch enrollment.Status {
		case domain.EnrollmentPending:
			stats.PendingRequests++
		case domain.EnrollmentApproved:
			if enrollment.Kind == domain.EnrollSubject {
				stats.EnrolledSubjects++
			} else {
				stats.EnrolledQuizzes++
				if activeQuizzes[enrollment.TargetID] {
					stats.ActiveQuizzes++
				}
			}
		}
	}
	return stats, nil
}

// ownerLocked resolves the teacher owning an enrollment's target. Callers
// hold at least a read lock.
func (s *Store) ownerLocked(enrollment domain.Enrollment) string {
	subjectID := enrollment.TargetID
	if enrollment.Kind == domain.EnrollQuiz {
		quiz, ok := s.quizzes[enrollment.TargetID]
		if !ok {
			return ""
		}
		subjectID = quiz.SubjectID
	}
	subject, ok := s.subjects[subjectID]
	if !ok {
		return ""
	}
	return subject.TeacherID
}

func sortSubjects(subjects []domain.Subject) {
	sort.Slice(subjects, func(i, j int) bool {
		if !subjects[i].CreatedAt.Equal(subjects[j].CreatedAt) {
			return subjects[i].CreatedAt.Before(subjects[j].CreatedAt)
		}
		return subjects[i].ID < subjects[j].ID
	})
}
