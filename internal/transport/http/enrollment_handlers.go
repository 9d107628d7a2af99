package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"classboard/internal/domain"
)

type enrollmentRequest struct {
	Kind     string `json:"kind" validate:"required,oneof=subject quiz"`
	TargetID string `json:"targetId" validate:"required"`
}

type decisionRequest struct {
	Approve bool `json:"approve"`
}

func (s *Server) requestEnrollment(ctx echo.Context) error {
	req := new(enrollmentRequest)
	if err := ctx.Bind(req); err != nil {
		return err
	}
	if err := ctx.Validate(req); err != nil {
		return err
	}
	enrollment, err := s.svc.Enrollments.Request(ctx.Request().Context(),
		domain.EnrollmentKind(req.Kind), identity(ctx).UserID, req.TargetID)
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusCreated, enrollment)
}

func (s *Server) cancelEnrollment(ctx echo.Context) error {
	if err := s.svc.Enrollments.Cancel(ctx.Request().Context(), ctx.Param("id"), identity(ctx).UserID); err != nil {
		return httpError(err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) decideEnrollment(ctx echo.Context) error {
	req := new(decisionRequest)
	if err := ctx.Bind(req); err != nil {
		return err
	}
	enrollment, err := s.svc.Enrollments.Decide(ctx.Request().Context(),
		ctx.Param("id"), identity(ctx).UserID, req.Approve)
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusOK, enrollment)
}

func (s *Server) pendingEnrollments(ctx echo.Context) error {
	pending, err := s.svc.Enrollments.PendingForTeacher(ctx.Request().Context(), identity(ctx).UserID)
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusOK, pending)
}

func (s *Server) enrollmentStatus(ctx echo.Context) error {
	kind := domain.EnrollmentKind(ctx.QueryParam("kind"))
	if kind != domain.EnrollSubject && kind != domain.EnrollQuiz {
		return echo.NewHTTPError(http.StatusBadRequest, "kind must be subject or quiz")
	}
	targetID := ctx.QueryParam("targetId")
	if targetID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "targetId is required")
	}
	status, err := s.svc.Enrollments.AccessStatus(ctx.Request().Context(), kind, identity(ctx).UserID, targetID)
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusOK, status)
}
