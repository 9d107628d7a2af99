// Package http exposes the REST and websocket API on echo.
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"classboard/internal/app"
	"classboard/internal/auth"
	"classboard/internal/domain"
)

// Services bundles everything the API serves.
type Services struct {
	Auth         *auth.Service
	Catalog      *app.CatalogService
	Enrollments  *app.EnrollmentService
	Sessions     *app.SessionService
	Scoring      *app.ScoringService
	Leaderboards *app.LeaderboardService
	Dashboards   *app.DashboardService
}

type Server struct {
	app *echo.Echo
	svc Services
}

func NewServer(svc Services) *Server {
	s := &Server{app: echo.New(), svc: svc}
	s.setup()
	return s
}

type structValidator struct {
	validate *validator.Validate
}

func (v *structValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Validator = &structValidator{validate: validator.New()}
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.Recover())

	s.app.GET("/healthz", func(ctx echo.Context) error {
		return ctx.String(http.StatusOK, "ok")
	})

	v1 := s.app.Group("/v1")
	v1.POST("/auth/signup", s.signUp)
	v1.POST("/auth/signin", s.signIn)

	authed := v1.Group("", s.requireAuth)
	authed.GET("/me", s.me)

	authed.GET("/subjects", s.listSubjects)
	authed.POST("/subjects", s.createSubject, s.requireRole(domain.RoleTeacher))
	authed.GET("/subjects/:id", s.getSubject)
	authed.GET("/subjects/:id/quizzes", s.listQuizzes)
	authed.POST("/subjects/:id/quizzes", s.createQuiz, s.requireRole(domain.RoleTeacher))
	authed.GET("/subjects/:id/leaderboard", s.subjectLeaderboard)

	authed.GET("/quizzes/:id", s.getQuiz)
	authed.GET("/quizzes/:id/questions", s.listQuestions)
	authed.GET("/quizzes/:id/leaderboard", s.quizLeaderboard)

	authed.POST("/enrollments", s.requestEnrollment, s.requireRole(domain.RoleStudent))
	authed.DELETE("/enrollments/:id", s.cancelEnrollment)
	authed.POST("/enrollments/:id/decision", s.decideEnrollment, s.requireRole(domain.RoleTeacher))
	authed.GET("/enrollments/pending", s.pendingEnrollments, s.requireRole(domain.RoleTeacher))
	authed.GET("/enrollments/status", s.enrollmentStatus)

	authed.POST("/quizzes/:id/session", s.startSession, s.requireRole(domain.RoleTeacher))
	authed.GET("/quizzes/:id/session", s.activeSession)
	authed.DELETE("/sessions/:id", s.stopSession, s.requireRole(domain.RoleTeacher))
	authed.GET("/quizzes/:id/monitor", s.monitorSnapshot, s.requireRole(domain.RoleTeacher))
	authed.GET("/quizzes/:id/monitor/ws", s.monitorSocket, s.requireRole(domain.RoleTeacher))

	authed.POST("/quizzes/:id/participation", s.beginParticipation, s.requireRole(domain.RoleStudent))
	authed.PUT("/quizzes/:id/participation", s.heartbeat, s.requireRole(domain.RoleStudent))
	authed.POST("/quizzes/:id/submission", s.submit, s.requireRole(domain.RoleStudent))
	authed.GET("/quizzes/:id/submission", s.result)

	authed.GET("/dashboard", s.dashboard)
}

func (s *Server) Start(addr string) error {
	err := s.app.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

// ServeHTTP makes the server usable with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}

// httpError translates domain sentinels into API status codes. Anything
// unrecognized surfaces as a 500 through echo's default handling.
func httpError(err error) error {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}
	switch {
	case errors.Is(err, domain.ErrProfileNotFound),
		errors.Is(err, domain.ErrSubjectNotFound),
		errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrEnrollmentNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrSubmissionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, domain.ErrDuplicateRequest),
		errors.Is(err, domain.ErrAlreadySubmitted),
		errors.Is(err, domain.ErrSessionAlreadyActive),
		errors.Is(err, domain.ErrSessionNotActive),
		errors.Is(err, domain.ErrSessionExpired),
		errors.Is(err, domain.ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrNotAuthorized),
		errors.Is(err, domain.ErrNotEnrolled):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrInvalidRole),
		errors.Is(err, domain.ErrInvalidQuestion):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return err
}
