package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"classboard/internal/domain"
)

var monitorUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type heartbeatRequest struct {
	Draft map[string]int `json:"draft"`
}

func (s *Server) startSession(ctx echo.Context) error {
	session, err := s.svc.Sessions.Start(ctx.Request().Context(), ctx.Param("id"), identity(ctx).UserID)
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusCreated, session)
}

func (s *Server) stopSession(ctx echo.Context) error {
	session, err := s.svc.Sessions.Stop(ctx.Request().Context(), ctx.Param("id"), identity(ctx).UserID)
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusOK, session)
}

func (s *Server) activeSession(ctx echo.Context) error {
	session, err := s.svc.Sessions.ActiveSession(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusOK, session)
}

func (s *Server) beginParticipation(ctx echo.Context) error {
	participation, err := s.svc.Sessions.Begin(ctx.Request().Context(), ctx.Param("id"), identity(ctx).UserID)
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusOK, participation)
}

func (s *Server) heartbeat(ctx echo.Context) error {
	req := new(heartbeatRequest)
	if err := ctx.Bind(req); err != nil {
		return err
	}
	if err := s.svc.Sessions.Heartbeat(ctx.Request().Context(), ctx.Param("id"), identity(ctx).UserID, req.Draft); err != nil {
		return httpError(err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) monitorSnapshot(ctx echo.Context) error {
	snapshot, err := s.svc.Sessions.Monitor(ctx.Request().Context(), ctx.Param("id"), identity(ctx).UserID)
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(http.StatusOK, snapshot)
}

// monitorSocket streams monitor snapshots to the quiz's teacher. A snapshot
// is pushed on connect and again whenever participation or submission state
// changes, until the session ends or the client goes away.
func (s *Server) monitorSocket(ctx echo.Context) error {
	quizID := ctx.Param("id")
	teacherID := identity(ctx).UserID
	reqCtx := ctx.Request().Context()

	// Authorize before upgrading so failures surface as HTTP statuses.
	snapshot, err := s.svc.Sessions.Monitor(reqCtx, quizID, teacherID)
	if err != nil {
		return httpError(err)
	}
	ticks, cancel, err := s.svc.Sessions.WatchMonitor(reqCtx, quizID, teacherID)
	if err != nil {
		return httpError(err)
	}
	defer cancel()

	conn, err := monitorUpgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return nil
	}
	defer conn.Close()

	if err := conn.WriteJSON(snapshot); err != nil {
		return nil
	}

	// Reads only surface client disconnects; inbound payloads are ignored.
	readerGone := make(chan struct{})
	go func() {
		defer close(readerGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ticks:
			snapshot, err := s.svc.Sessions.Monitor(reqCtx, quizID, teacherID)
			if err != nil {
				// The tick after Stop lands here once the session is gone.
				if !errors.Is(err, domain.ErrSessionNotFound) {
					log.Printf("monitor refresh for quiz %s: %v", quizID, err)
				}
				return nil
			}
			if err := conn.WriteJSON(snapshot); err != nil {
				return nil
			}
		case <-readerGone:
			return nil
		case <-reqCtx.Done():
			return nil
		}
	}
}
