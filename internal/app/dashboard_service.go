package app

import (
	"context"

	"classboard/internal/domain"
)

// DashboardService serves per-role summary rollups. It never mutates and
// reports zeros for missing data rather than failing.
type DashboardService struct {
	store StatsStore
}

func NewDashboardService(store Store) *DashboardService {
	return &DashboardService{store: store}
}

func (s *DashboardService) TeacherDashboard(ctx context.Context, teacherID string) (domain.TeacherStats, error) {
	return s.store.TeacherStats(ctx, teacherID)
}

func (s *DashboardService) StudentDashboard(ctx context.Context, studentID string) (domain.StudentStats, error) {
	return s.store.StudentStats(ctx, studentID)
}
