package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"classboard/internal/domain"
)

type signUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
	Role     string `json:"role" validate:"required"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token   string         `json:"token"`
	Profile domain.Profile `json:"profile"`
}

func (s *Server) signUp(ctx echo.Context) error {
	req := new(signUpRequest)
	if err := ctx.Bind(req); err != nil {
		return err
	}
	if err := ctx.Validate(req); err != nil {
		return err
	}
	profile, err := s.svc.Auth.SignUp(ctx.Request().Context(), req.Email, req.Password, req.Name, req.Role)
	if err != nil {
		return httpError(err)
	}
	token, err := s.svc.Auth.GenerateToken(profile)
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusCreated, tokenResponse{Token: token, Profile: profile})
}

func (s *Server) signIn(ctx echo.Context) error {
	req := new(signInRequest)
	if err := ctx.Bind(req); err != nil {
		return err
	}
	if err := ctx.Validate(req); err != nil {
		return err
	}
	token, profile, err := s.svc.Auth.SignIn(ctx.Request().Context(), req.Email, req.Password)
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusOK, tokenResponse{Token: token, Profile: profile})
}

func (s *Server) me(ctx echo.Context) error {
	profile, err := s.svc.Auth.Profile(ctx.Request().Context(), identity(ctx).UserID)
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusOK, profile)
}
