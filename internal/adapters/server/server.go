// Package server exposes the mutation engine over HTTP: a JSON API for board
// mutations, a per-board SSE stream that seeds each new subscriber with a
// snapshot before live change events flow, and an MCP endpoint for agent
// tooling.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"

	"github.com/hylla/tavla/internal/adapters/realtime/hub"
	"github.com/hylla/tavla/internal/adapters/server/mcpapi"
	"github.com/hylla/tavla/internal/domain"
	"github.com/hylla/tavla/internal/engine"
)

const defaultBindAddress = "127.0.0.1:8080"

// defaultShutdownTimeout bounds graceful shutdown once cancellation starts.
const defaultShutdownTimeout = 5 * time.Second

// Config holds gateway settings.
type Config struct {
	Bind string
}

// Server routes HTTP traffic to the engine and the connection hub.
type Server struct {
	cfg    Config
	echo   *echo.Echo
	engine *engine.Engine
	hub    *hub.Hub
	auth   Authenticator
	logger *log.Logger
}

// New constructs the gateway and registers its routes.
func New(cfg Config, eng *engine.Engine, h *hub.Hub, auth Authenticator, logger *log.Logger) *Server {
	if strings.TrimSpace(cfg.Bind) == "" {
		cfg.Bind = defaultBindAddress
	}
	if logger == nil {
		logger = log.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{cfg: cfg, echo: e, engine: eng, hub: h, auth: auth, logger: logger}

	e.GET("/healthz", writeHealthStatus)
	e.GET("/readyz", writeHealthStatus)

	if mcpHandler, err := mcpapi.NewHandler(mcpapi.Config{ServerName: "tavla"}, eng); err != nil {
		logger.Error("configure mcp handler", "err", err)
	} else {
		e.Any("/mcp", s.serveMCP(mcpHandler))
	}

	api := e.Group("/api/v1")
	api.POST("/boards", s.createBoard)
	api.GET("/boards/:id", s.boardSnapshot)
	api.GET("/boards/:id/stream", s.streamBoard)
	api.POST("/boards/:id/members", s.addMember)
	api.POST("/boards/:id/columns", s.createColumn)
	api.PUT("/boards/:id/columns/order", s.reorderColumns)
	api.PUT("/columns/:id", s.updateColumn)
	api.DELETE("/columns/:id", s.deleteColumn)
	api.POST("/boards/:id/tasks", s.createTask)
	api.PUT("/tasks/:id", s.updateTask)
	api.POST("/tasks/:id/move", s.moveTask)
	api.POST("/tasks/:id/archive", s.archiveTask)
	api.POST("/tasks/:id/restore", s.restoreTask)
	api.DELETE("/tasks/:id", s.deleteTask)
	api.GET("/tasks/:id/history", s.taskHistory)
	api.POST("/tasks/:id/mentions", s.notifyMention)
	return s
}

// Handler returns the root handler, used directly by tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.cfg.Bind,
		Handler: s.echo,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		serveErrCh <- httpServer.ListenAndServe()
	}()
	s.logger.Info("gateway listening", "bind", s.cfg.Bind)

	select {
	case err := <-serveErrCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()

		shutdownErr := httpServer.Shutdown(shutdownCtx)
		serveErr := <-serveErrCh
		if shutdownErr != nil && !errors.Is(shutdownErr, context.Canceled) {
			return shutdownErr
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return serveErr
		}
		return nil
	}
}

// serveMCP authenticates the caller, stamps them onto the request context,
// and hands the request to the MCP transport. Tool handlers read the actor
// back out, so MCP calls run under the same identity rules as the JSON API.
func (s *Server) serveMCP(h http.Handler) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := s.actor(c)
		if err != nil {
			return writeError(c, err)
		}
		req := c.Request().WithContext(mcpapi.WithActor(c.Request().Context(), actor))
		h.ServeHTTP(c.Response(), req)
		return nil
	}
}

// actor resolves the acting user from the request, honoring a token query
// parameter for clients (EventSource) that cannot set headers.
func (s *Server) actor(c echo.Context) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		if token := c.QueryParam("token"); token != "" {
			header = "Bearer " + token
		}
	}
	return s.auth.UserIDFromAuthHeader(header)
}

var validationErrs = []error{
	domain.ErrInvalidID,
	domain.ErrInvalidBoardID,
	domain.ErrInvalidColumnID,
	domain.ErrInvalidName,
	domain.ErrInvalidTitle,
	domain.ErrInvalidPriority,
	domain.ErrInvalidPosition,
	domain.ErrInvalidCapacity,
	domain.ErrInvalidRole,
	domain.ErrInvalidUserID,
}

// writeError maps engine and domain errors onto HTTP statuses.
func writeError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, engine.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, engine.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrCapacityExceeded),
		errors.Is(err, engine.ErrConflict),
		errors.Is(err, engine.ErrColumnNotEmpty):
		status = http.StatusConflict
	default:
		for _, sentinel := range validationErrs {
			if errors.Is(err, sentinel) {
				status = http.StatusBadRequest
				break
			}
		}
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}

func writeHealthStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
