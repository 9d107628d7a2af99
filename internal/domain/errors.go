package domain

import "errors"

var (
	// ErrProfileNotFound is returned when a referenced account does not exist.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrSubjectNotFound is returned when a referenced subject does not exist.
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrQuizNotFound is returned when a referenced quiz does not exist.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrEnrollmentNotFound is returned when a referenced enrollment row is missing.
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	// ErrSessionNotFound is returned when no session matches the request.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSubmissionNotFound is returned when a student has no submission for a quiz.
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrEmailTaken indicates a sign-up with an already registered email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials indicates a failed sign-in.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidRole indicates a role value outside {teacher, student}.
	ErrInvalidRole = errors.New("invalid role")
	// ErrInvalidQuestion indicates a malformed question: fewer than two
	// options, an out-of-range correct index, or non-positive points.
	ErrInvalidQuestion = errors.New("invalid question")

	// ErrNotAuthorized indicates the actor lacks ownership or role for the action.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrNotEnrolled indicates the student lacks the approvals needed to take a quiz.
	ErrNotEnrolled = errors.New("not enrolled")

	// ErrDuplicateRequest indicates a non-terminal enrollment row already
	// exists for the (student, target) pair.
	ErrDuplicateRequest = errors.New("enrollment request already exists")
	// ErrInvalidTransition indicates a decide call on a non-pending enrollment.
	ErrInvalidTransition = errors.New("enrollment already decided")
	// ErrAlreadySubmitted indicates a second submission for the same (student, quiz).
	ErrAlreadySubmitted = errors.New("quiz already submitted")
	// ErrSessionAlreadyActive indicates a start while a session is active for the quiz.
	ErrSessionAlreadyActive = errors.New("quiz session already active")
	// ErrSessionNotActive indicates an action that requires an active session.
	ErrSessionNotActive = errors.New("quiz session not active")
	// ErrSessionExpired indicates the session deadline has passed.
	ErrSessionExpired = errors.New("quiz session expired")
)
