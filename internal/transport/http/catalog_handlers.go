package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"classboard/internal/app"
	"classboard/internal/domain"
)

type createSubjectRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type createQuizRequest struct {
	Title       string              `json:"title" validate:"required"`
	Description string              `json:"description"`
	Questions   []app.QuestionInput `json:"questions" validate:"required,min=1,dive"`
}

// questionView is a question as students see it: no correct index.
type questionView struct {
	ID      string   `json:"id"`
	QuizID  string   `json:"quizId"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Points  int      `json:"points"`
}

func (s *Server) createSubject(ctx echo.Context) error {
	req := new(createSubjectRequest)
	if err := ctx.Bind(req); err != nil {
		return err
	}
	if err := ctx.Validate(req); err != nil {
		return err
	}
	subject, err := s.svc.Catalog.CreateSubject(ctx.Request().Context(), identity(ctx).UserID, req.Name, req.Description)
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusCreated, subject)
}

func (s *Server) getSubject(ctx echo.Context) error {
	subject, err := s.svc.Catalog.Subject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusOK, subject)
}

func (s *Server) listSubjects(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	if ctx.QueryParam("mine") != "" && identity(ctx).Role == domain.RoleTeacher {
		subjects, err := s.svc.Catalog.ListSubjectsByTeacher(reqCtx, identity(ctx).UserID)
		if err != nil {
			return httpError(err)
		}
		return ctx.JSON(http.StatusOK, subjects)
	}
	subjects, err := s.svc.Catalog.ListSubjects(reqCtx)
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (s *Server) createQuiz(ctx echo.Context) error {
	req := new(createQuizRequest)
	if err := ctx.Bind(req); err != nil {
		return err
	}
	if err := ctx.Validate(req); err != nil {
		return err
	}
	quiz, err := s.svc.Catalog.CreateQuiz(ctx.Request().Context(),
		identity(ctx).UserID, ctx.Param("id"), req.Title, req.Description, req.Questions)
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusCreated, quiz)
}

func (s *Server) getQuiz(ctx echo.Context) error {
	quiz, err := s.svc.Catalog.Quiz(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusOK, quiz)
}

func (s *Server) listQuizzes(ctx echo.Context) error {
	quizzes, err := s.svc.Catalog.ListQuizzesBySubject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusOK, quizzes)
}

// listQuestions serves quiz questions. Teachers get the full rows; students
// get them with the correct option stripped so answer keys never leave the
// server before a submission is scored.
func (s *Server) listQuestions(ctx echo.Context) error {
	questions, err := s.svc.Catalog.Questions(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpError(err)
	}
	if identity(ctx).Role == domain.RoleTeacher {
		return ctx.JSON(http.StatusOK, questions)
	}
	views := make([]questionView, 0, len(questions))
	for _, question := range questions {
		views = append(views, questionView{
			ID:      question.ID,
			QuizID:  question.QuizID,
			Text:    question.Text,
			Options: question.Options,
			Points:  question.Points,
		})
	}
	return ctx.JSON(http.StatusOK, views)
}
