package app_test

import (
	"context"
	"testing"
	"time"

	"classboard/internal/app"
	"classboard/internal/domain"
	"classboard/internal/infra/memory"
)

var testStart = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// fixture wires every service over one in-memory store, seeded with a
// teacher, two students, and one subject holding one two-question quiz.
type fixture struct {
	store        *memory.Store
	hub          *app.MonitorHub
	enrollments  *app.EnrollmentService
	scoring      *app.ScoringService
	sessions     *app.SessionService
	leaderboards *app.LeaderboardService
	dashboards   *app.DashboardService

	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.NewStore(),
		hub:   app.NewMonitorHub(),
		clock: testStart,
	}
	now := func() time.Time { return f.clock }

	keys := memory.NewAnswerKeyCache(memory.NewStoreAnswerKeyLoader(f.store), time.Minute)
	f.enrollments = app.NewEnrollmentService(f.store)
	f.scoring = app.NewScoringServiceWithClock(f.store, keys, f.enrollments, f.hub, now)
	f.sessions = app.NewSessionServiceWithClock(f.store, f.scoring, f.enrollments, f.hub, 30*time.Minute, now)
	f.leaderboards = app.NewLeaderboardService(f.store)
	f.dashboards = app.NewDashboardService(f.store)

	ctx := context.Background()
	f.seedProfile(t, ctx, "t1", "Ms. Reed", domain.RoleTeacher)
	f.seedProfile(t, ctx, "s1", "Alice", domain.RoleStudent)
	f.seedProfile(t, ctx, "s2", "Bob", domain.RoleStudent)

	if err := f.store.CreateSubject(ctx, domain.Subject{
		ID: "sub1", Name: "Algebra", TeacherID: "t1", CreatedAt: testStart,
	}); err != nil {
		t.Fatalf("seed subject: %v", err)
	}
	if err := f.store.CreateQuiz(ctx, domain.Quiz{
		ID: "qz1", SubjectID: "sub1", Title: "Linear equations", CreatedAt: testStart,
	}); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	if err := f.store.CreateQuestions(ctx, []domain.Question{
		{ID: "q1", QuizID: "qz1", Text: "2x = 4, x?", Options: []string{"1", "2", "3"}, CorrectOption: 1, Points: 10},
		{ID: "q2", QuizID: "qz1", Text: "x + 1 = 1, x?", Options: []string{"0", "1"}, CorrectOption: 0, Points: 5},
	}); err != nil {
		t.Fatalf("seed questions: %v", err)
	}
	return f
}

func (f *fixture) seedProfile(t *testing.T, ctx context.Context, id, name string, role domain.Role) {
	t.Helper()
	err := f.store.CreateProfile(ctx, domain.Profile{
		ID: id, Name: name, Email: id + "@school.test", Role: role, CreatedAt: testStart,
	})
	if err != nil {
		t.Fatalf("seed profile %s: %v", id, err)
	}
}

// approve grants a student an already-approved enrollment, skipping the
// request/decide round trip.
func (f *fixture) approve(t *testing.T, ctx context.Context, kind domain.EnrollmentKind, studentID, targetID string) {
	t.Helper()
	decided := testStart
	err := f.store.CreateEnrollment(ctx, domain.Enrollment{
		ID:          "enr-" + string(kind) + "-" + studentID + "-" + targetID,
		Kind:        kind,
		StudentID:   studentID,
		TargetID:    targetID,
		Status:      domain.EnrollmentApproved,
		RequestedAt: testStart,
		DecidedAt:   &decided,
	})
	if err != nil {
		t.Fatalf("seed enrollment: %v", err)
	}
}

// grantQuizAccess approves the student on both the subject and the quiz.
func (f *fixture) grantQuizAccess(t *testing.T, ctx context.Context, studentID string) {
	t.Helper()
	f.approve(t, ctx, domain.EnrollSubject, studentID, "sub1")
	f.approve(t, ctx, domain.EnrollQuiz, studentID, "qz1")
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}
