package domain

import "time"

// Role distinguishes the two account types. It is validated once at the
// auth boundary and carried as a strict type everywhere else.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// ParseRole converts loosely-typed input into a Role.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleTeacher:
		return RoleTeacher, nil
	case RoleStudent:
		return RoleStudent, nil
	}
	return "", ErrInvalidRole
}

// Profile is an account. TotalPoints accumulates across quiz submissions.
type Profile struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	TotalPoints  int       `json:"totalPoints"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Subject is a teacher-owned container for quizzes. The owner never changes.
type Subject struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	TeacherID   string    `json:"teacherId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Quiz belongs to a subject.
type Quiz struct {
	ID          string    `json:"id"`
	SubjectID   string    `json:"subjectId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Question is an MCQ with an ordered option list; CorrectOption indexes into Options.
type Question struct {
	ID            string   `json:"id"`
	QuizID        string   `json:"quizId"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
	Points        int      `json:"points"`
}

// EnrollmentKind says whether an enrollment targets a subject or a quiz.
type EnrollmentKind string

const (
	EnrollSubject EnrollmentKind = "subject"
	EnrollQuiz    EnrollmentKind = "quiz"
)

// EnrollmentStatus is the enrollment state machine: pending is the only
// non-terminal state; approved and rejected are terminal.
type EnrollmentStatus string

const (
	EnrollmentPending  EnrollmentStatus = "pending"
	EnrollmentApproved EnrollmentStatus = "approved"
	EnrollmentRejected EnrollmentStatus = "rejected"
)

// Enrollment is a student's request to access a subject or quiz and its
// approval state. TargetID is a subject ID or quiz ID depending on Kind.
type Enrollment struct {
	ID          string           `json:"id"`
	Kind        EnrollmentKind   `json:"kind"`
	StudentID   string           `json:"studentId"`
	TargetID    string           `json:"targetId"`
	Status      EnrollmentStatus `json:"status"`
	RequestedAt time.Time        `json:"requestedAt"`
	DecidedAt   *time.Time       `json:"decidedAt,omitempty"`
	// Score is a denormalized copy of the submission score, written on
	// submit. Quiz enrollments only.
	Score *int `json:"score,omitempty"`
}

// AccessStatus is the derived view of a student's standing on a target.
type AccessStatus struct {
	Enrolled bool `json:"enrolled"`
	Pending  bool `json:"pending"`
}

// SessionStatus is the session state machine: Active then Ended (terminal).
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionEnded  SessionStatus = "ended"
)

// Session is a teacher-initiated time window during which a quiz is answerable.
// At most one active session exists per quiz.
type Session struct {
	ID        string        `json:"id"`
	QuizID    string        `json:"quizId"`
	TeacherID string        `json:"teacherId"`
	Status    SessionStatus `json:"status"`
	StartTime time.Time     `json:"startTime"`
	EndTime   *time.Time    `json:"endTime,omitempty"`
}

// Deadline is the instant after which answers are no longer accepted.
func (s Session) Deadline(duration time.Duration) time.Time {
	return s.StartTime.Add(duration)
}

// Participation marks a student's in-progress attempt. Draft holds the
// answers last reported by heartbeat so a teacher stop can force-submit.
type Participation struct {
	ID           string         `json:"id"`
	QuizID       string         `json:"quizId"`
	StudentID    string         `json:"studentId"`
	StartTime    time.Time      `json:"startTime"`
	LastActivity time.Time      `json:"lastActivity"`
	Draft        map[string]int `json:"draft,omitempty"`
}

// Submission is the terminal, immutable artifact of an attempt.
// Answers maps question ID to the selected option index.
type Submission struct {
	ID          string         `json:"id"`
	QuizID      string         `json:"quizId"`
	StudentID   string         `json:"studentId"`
	Answers     map[string]int `json:"answers"`
	Score       int            `json:"score"`
	SubmittedAt time.Time      `json:"submittedAt"`
}

// AnswerKeyEntry is the scoring data for one question.
type AnswerKeyEntry struct {
	CorrectOption int `json:"correctOption"`
	Points        int `json:"points"`
}

// AnswerKey maps question IDs to their scoring data.
type AnswerKey map[string]AnswerKeyEntry

// Score sums the points of correctly answered questions. Unanswered
// questions and answers naming unknown questions contribute nothing;
// option range checks happened at question creation.
func (k AnswerKey) Score(answers map[string]int) int {
	total := 0
	for questionID, entry := range k {
		if selected, ok := answers[questionID]; ok && selected == entry.CorrectOption {
			total += entry.Points
		}
	}
	return total
}

// MaxScore is the sum of all question points.
func (k AnswerKey) MaxScore() int {
	total := 0
	for _, entry := range k {
		total += entry.Points
	}
	return total
}

// ParticipantStatus is the monitor-view status of one enrolled student.
type ParticipantStatus string

const (
	ParticipantNotStarted ParticipantStatus = "not_started"
	ParticipantInProgress ParticipantStatus = "in_progress"
	ParticipantCompleted  ParticipantStatus = "completed"
)

// MonitorEntry is one student row in the teacher's monitor view.
type MonitorEntry struct {
	StudentID   string            `json:"studentId"`
	Name        string            `json:"name"`
	Status      ParticipantStatus `json:"status"`
	SubmittedAt *time.Time        `json:"submittedAt,omitempty"`
}

// MonitorSnapshot is the full monitor projection for an active session.
type MonitorSnapshot struct {
	QuizID     string         `json:"quizId"`
	SessionID  string         `json:"sessionId"`
	StartTime  time.Time      `json:"startTime"`
	Deadline   time.Time      `json:"deadline"`
	Entries    []MonitorEntry `json:"entries"`
	Completed  int            `json:"completed"`
	InProgress int            `json:"inProgress"`
	NotStarted int            `json:"notStarted"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// QuizLeaderboardEntry ranks one student on one quiz.
type QuizLeaderboardEntry struct {
	StudentID   string    `json:"studentId"`
	Name        string    `json:"name"`
	Score       int       `json:"score"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// SubjectLeaderboardEntry aggregates a student's best-per-quiz scores
// across all quizzes in a subject.
type SubjectLeaderboardEntry struct {
	StudentID    string `json:"studentId"`
	Name         string `json:"name"`
	TotalScore   int    `json:"totalScore"`
	QuizCount    int    `json:"quizCount"`
	AverageScore int    `json:"averageScore"`
}

// TeacherStats is the teacher dashboard rollup.
type TeacherStats struct {
	Subjects        int `json:"subjects"`
	Quizzes         int `json:"quizzes"`
	UniqueStudents  int `json:"uniqueStudents"`
	PendingRequests int `json:"pendingRequests"`
}

// StudentStats is the student dashboard rollup.
type StudentStats struct {
	EnrolledSubjects int `json:"enrolledSubjects"`
	EnrolledQuizzes  int `json:"enrolledQuizzes"`
	ActiveQuizzes    int `json:"activeQuizzes"`
	TotalPoints      int `json:"totalPoints"`
	PendingRequests  int `json:"pendingRequests"`
}
