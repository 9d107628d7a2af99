package app

import (
	"context"
	"math"
	"sort"

	"classboard/internal/domain"
)

// LeaderboardService is a pure read-side projection over submissions.
// Should duplicate submissions ever exist for a pair, only the best score
// counts, with the earliest submission breaking score ties.
type LeaderboardService struct {
	store interface {
		ProfileStore
		CatalogStore
		SubmissionStore
	}
}

func NewLeaderboardService(store Store) *LeaderboardService {
	return &LeaderboardService{store: store}
}

// QuizLeaderboard ranks students on one quiz by score descending, ties
// broken by earliest submission time.
func (s *LeaderboardService) QuizLeaderboard(ctx context.Context, quizID string) ([]domain.QuizLeaderboardEntry, error) {
	if _, err := s.store.QuizByID(ctx, quizID); err != nil {
		return nil, err
	}
	submissions, err := s.store.ListSubmissionsByQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	best := bestPerStudent(submissions)
	entries := make([]domain.QuizLeaderboardEntry, 0, len(best))
	studentIDs := make([]string, 0, len(best))
	for studentID, sub := range best {
		studentIDs = append(studentIDs, studentID)
		entries = append(entries, domain.QuizLeaderboardEntry{
			StudentID:   studentID,
			Score:       sub.Score,
			SubmittedAt: sub.SubmittedAt,
		})
	}

	profiles, err := s.store.ProfilesByIDs(ctx, studentIDs)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if profile, ok := profiles[entries[i].StudentID]; ok {
			entries[i].Name = profile.Name
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if !entries[i].SubmittedAt.Equal(entries[j].SubmittedAt) {
			return entries[i].SubmittedAt.Before(entries[j].SubmittedAt)
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// SubjectLeaderboard aggregates each student's best-per-quiz scores across
// every quiz in the subject, ranked by total descending.
func (s *LeaderboardService) SubjectLeaderboard(ctx context.Context, subjectID string) ([]domain.SubjectLeaderboardEntry, error) {
	if _, err := s.store.SubjectByID(ctx, subjectID); err != nil {
		return nil, err
	}
	quizzes, err := s.store.ListQuizzesBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if len(quizzes) == 0 {
		return []domain.SubjectLeaderboardEntry{}, nil
	}

	quizIDs := make([]string, len(quizzes))
	for i, quiz := range quizzes {
		quizIDs[i] = quiz.ID
	}
	submissions, err := s.store.ListSubmissionsForQuizzes(ctx, quizIDs)
	if err != nil {
		return nil, err
	}

	// Best score per (student, quiz), then summed per student.
	byQuiz := make(map[string][]domain.Submission)
	for _, sub := range submissions {
		byQuiz[sub.QuizID] = append(byQuiz[sub.QuizID], sub)
	}
	totals := make(map[string]*domain.SubjectLeaderboardEntry)
	for _, subs := range byQuiz {
		for studentID, best := range bestPerStudent(subs) {
			entry, ok := totals[studentID]
			if !ok {
				entry = &domain.SubjectLeaderboardEntry{StudentID: studentID}
				totals[studentID] = entry
			}
			entry.TotalScore += best.Score
			entry.QuizCount++
		}
	}

	studentIDs := make([]string, 0, len(totals))
	for studentID := range totals {
		studentIDs = append(studentIDs, studentID)
	}
	profiles, err := s.store.ProfilesByIDs(ctx, studentIDs)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.SubjectLeaderboardEntry, 0, len(totals))
	for studentID, entry := range totals {
		if profile, ok := profiles[studentID]; ok {
			entry.Name = profile.Name
		}
		entry.AverageScore = int(math.Round(float64(entry.TotalScore) / float64(entry.QuizCount)))
		entries = append(entries, *entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalScore != entries[j].TotalScore {
			return entries[i].TotalScore > entries[j].TotalScore
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

func bestPerStudent(submissions []domain.Submission) map[string]domain.Submission {
	best := make(map[string]domain.Submission)
	for _, sub := range submissions {
		current, ok := best[sub.StudentID]
		if !ok || sub.Score > current.Score ||
			(sub.Score == current.Score && sub.SubmittedAt.Before(current.SubmittedAt)) {
			best[sub.StudentID] = sub
		}
	}
	return best
}
