package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"classboard/internal/auth"
	"classboard/internal/domain"
)

const identityKey = "identity"

// requireAuth parses the bearer token and stashes the caller's identity on
// the request context. Websocket requests may carry the token in the
// access_token query parameter instead, since browsers cannot set headers
// on websocket upgrades.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		raw := strings.TrimPrefix(ctx.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
		if raw == "" {
			raw = ctx.QueryParam("access_token")
		}
		if raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
		}
		ident, err := s.svc.Auth.ParseToken(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}
		ctx.Set(identityKey, ident)
		return next(ctx)
	}
}

func (s *Server) requireRole(role domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if identity(ctx).Role != role {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
			}
			return next(ctx)
		}
	}
}

func identity(ctx echo.Context) auth.Identity {
	ident, _ := ctx.Get(identityKey).(auth.Identity)
	return ident
}
