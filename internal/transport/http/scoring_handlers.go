package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"classboard/internal/domain"
)

type submitRequest struct {
	Answers map[string]int `json:"answers"`
}

func (s *Server) submit(ctx echo.Context) error {
	req := new(submitRequest)
	if err := ctx.Bind(req); err != nil {
		return err
	}
	submission, err := s.svc.Scoring.Submit(ctx.Request().Context(), ctx.Param("id"), identity(ctx).UserID, req.Answers)
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusCreated, submission)
}

func (s *Server) result(ctx echo.Context) error {
	submission, err := s.svc.Scoring.Result(ctx.Request().Context(), ctx.Param("id"), identity(ctx).UserID)
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusOK, submission)
}

func (s *Server) quizLeaderboard(ctx echo.Context) error {
	entries, err := s.svc.Leaderboards.QuizLeaderboard(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (s *Server) subjectLeaderboard(ctx echo.Context) error {
	entries, err := s.svc.Leaderboards.SubjectLeaderboard(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (s *Server) dashboard(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	ident := identity(ctx)
	if ident.Role == domain.RoleTeacher {
		stats, err := s.svc.Dashboards.TeacherDashboard(reqCtx, ident.UserID)
		if err != nil {
			return httpError(err)
		}
		return ctx.JSON(http.StatusOK, stats)
	}
	stats, err := s.svc.Dashboards.StudentDashboard(reqCtx, ident.UserID)
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusOK, stats)
}
