package app_test

import (
	"context"
	"errors"
	"testing"

	"classboard/internal/domain"
)

func TestSubmitScoresAnswers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.grantQuizAccess(t, ctx, "s1")

	if _, err := f.sessions.Start(ctx, "qz1", "t1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	submission, err := f.scoring.Submit(ctx, "qz1", "s1", map[string]int{"q1": 1, "q2": 0})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if submission.Score != 15 {
		t.Fatalf("expected full score 15, got %d", submission.Score)
	}
	if !submission.SubmittedAt.Equal(f.clock) {
		t.Fatalf("expected submission time %v, got %v", f.clock, submission.SubmittedAt)
	}

	profile, err := f.store.ProfileByID(ctx, "s1")
	if err != nil {
		t.Fatalf("profile lookup failed: %v", err)
	}
	if profile.TotalPoints != 15 {
		t.Fatalf("expected cumulative points 15, got %d", profile.TotalPoints)
	}

	enrollment, err := f.store.EnrollmentFor(ctx, domain.EnrollQuiz, "s1", "qz1")
	if err != nil {
		t.Fatalf("enrollment lookup failed: %v", err)
	}
	if enrollment.Score == nil || *enrollment.Score != 15 {
		t.Fatalf("expected enrollment score 15, got %+v", enrollment.Score)
	}
}

func TestSubmitPartialAndInvalidAnswers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.grantQuizAccess(t, ctx, "s1")
	f.grantQuizAccess(t, ctx, "s2")

	if _, err := f.sessions.Start(ctx, "qz1", "t1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Wrong q1, correct q2; unknown question IDs are ignored.
	submission, err := f.scoring.Submit(ctx, "qz1", "s1", map[string]int{"q1": 0, "q2": 0, "ghost": 3})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if submission.Score != 5 {
		t.Fatalf("expected 5 points, got %d", submission.Score)
	}

	// Out-of-range option index scores zero for that question.
	submission, err = f.scoring.Submit(ctx, "qz1", "s2", map[string]int{"q1": 99, "q2": 0})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if submission.Score != 5 {
		t.Fatalf("expected 5 points with out-of-range q1, got %d", submission.Score)
	}
}

func TestSubmitEmptyAnswers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.grantQuizAccess(t, ctx, "s1")

	if _, err := f.sessions.Start(ctx, "qz1", "t1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	submission, err := f.scoring.Submit(ctx, "qz1", "s1", nil)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if submission.Score != 0 || submission.Answers == nil {
		t.Fatalf("expected zero-score submission with empty answers, got %+v", submission)
	}
}

func TestSubmitGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.grantQuizAccess(t, ctx, "s1")

	if _, err := f.scoring.Submit(ctx, "qz1", "s1", nil); !errors.Is(err, domain.ErrSessionNotActive) {
		t.Fatalf("expected inactive session error, got %v", err)
	}

	if _, err := f.sessions.Start(ctx, "qz1", "t1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := f.scoring.Submit(ctx, "qz1", "s2", nil); !errors.Is(err, domain.ErrNotEnrolled) {
		t.Fatalf("expected not enrolled error, got %v", err)
	}

	if _, err := f.scoring.Submit(ctx, "qz1", "s1", map[string]int{"q1": 1}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, err := f.scoring.Submit(ctx, "qz1", "s1", map[string]int{"q1": 1}); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected already submitted error, got %v", err)
	}
}

func TestForceSubmitSkipsChecksButNotDuplicates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.grantQuizAccess(t, ctx, "s1")

	// No active session needed for a force submit.
	if err := f.scoring.ForceSubmit(ctx, "qz1", "s1", map[string]int{"q2": 0}); err != nil {
		t.Fatalf("force submit failed: %v", err)
	}
	if err := f.scoring.ForceSubmit(ctx, "qz1", "s1", nil); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected already submitted, got %v", err)
	}

	submission, err := f.scoring.Result(ctx, "qz1", "s1")
	if err != nil {
		t.Fatalf("result failed: %v", err)
	}
	if submission.Score != 5 {
		t.Fatalf("expected 5 points, got %d", submission.Score)
	}
}

func TestResultMissing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.scoring.Result(ctx, "qz1", "s1"); !errors.Is(err, domain.ErrSubmissionNotFound) {
		t.Fatalf("expected submission not found, got %v", err)
	}
}
