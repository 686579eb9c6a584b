// Package server exposes the task tree and the reminder ledger over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/existflow/tasknest/internal/apperr"
	"github.com/existflow/tasknest/internal/ledger"
	"github.com/existflow/tasknest/internal/logger"
	"github.com/existflow/tasknest/internal/model"
	"github.com/existflow/tasknest/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const credentialsMessage = "Google API credentials are not configured on the server."

// Server is the HTTP API
type Server struct {
	tasks     *service.Tasks
	reminders *ledger.Ledger
	tokenHash []byte
	echo      *echo.Echo
	log       *logger.Logger
}

// Option configures the server
type Option func(*Server)

// WithTokenHash requires a bearer token matching the bcrypt hash on every
// data route. An empty hash leaves the API open.
func WithTokenHash(hash string) Option {
	return func(s *Server) {
		if hash != "" {
			s.tokenHash = []byte(hash)
		}
	}
}

// New creates a new server
func New(tasks *service.Tasks, reminders *ledger.Ledger, opts ...Option) *Server {
	s := &Server{
		tasks:     tasks,
		reminders: reminders,
		log:       logger.WithFields(logger.F("component", "http")),
	}
	for _, o := range opts {
		o(s)
	}
	s.setupEcho()
	return s
}

func (s *Server) setupEcho() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(s.logRequests)
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())

	// Health check
	e.GET("/health", s.handleHealth)

	api := e.Group("")
	if s.tokenHash != nil {
		api.Use(s.authMiddleware)
	}

	api.GET("/tasks", s.handleGetTasks)
	api.POST("/tasks", s.handleSaveTasks)

	items := api.Group("/tasks/items")
	items.POST("", s.handleAddTask)
	items.GET("/:id", s.handleGetTask)
	items.PATCH("/:id", s.handleUpdateTask)
	items.PUT("/:id/status", s.handleSetStatus)
	items.POST("/:id/toggle-done", s.handleToggleDone)
	items.POST("/:id/toggle-expanded", s.handleToggleExpanded)
	items.DELETE("/:id", s.handleDeleteTask)

	api.GET("/reminders", s.handleListReminders)
	api.POST("/reminders", s.handleSetReminder)
	api.DELETE("/reminders/:taskId", s.handleDeleteReminder)

	s.echo = e
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	return s.echo
}

// Start starts the server. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start(addr string) error {
	s.log.Info("Server starting", logger.F("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "ok",
		"reminders": reminderState(s.reminders.Configured()),
	})
}

func reminderState(configured bool) string {
	if configured {
		return "enabled"
	}
	return "disabled"
}

func message(msg string) map[string]string {
	return map[string]string{"message": msg}
}

// fail maps err to a status code. Unclassified failures are logged and
// reported with msg only.
func (s *Server) fail(c echo.Context, err error, msg string) error {
	reqID := c.Response().Header().Get(echo.HeaderXRequestID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return c.JSON(http.StatusNotFound, message(err.Error()))
	case errors.Is(err, model.ErrInvalid):
		return c.JSON(http.StatusBadRequest, message(err.Error()))
	case errors.Is(err, apperr.ErrConfiguration):
		s.log.Error(msg, logger.F("error", err), logger.F("request_id", reqID))
		return c.JSON(http.StatusInternalServerError, message(credentialsMessage))
	default:
		s.log.Error(msg, logger.F("error", err), logger.F("kind", apperr.KindOf(err)),
			logger.F("request_id", reqID))
		return c.JSON(http.StatusInternalServerError, message(msg))
	}
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, message(msg))
}

// logRequests logs one line per request once the response is written
func (s *Server) logRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()

		err := next(c)
		if err != nil {
			c.Error(err)
		}

		res := c.Response()
		s.log.Info("HTTP Request",
			logger.F("method", req.Method),
			logger.F("uri", req.RequestURI),
			logger.F("status", res.Status),
			logger.F("size", res.Size),
			logger.F("duration", time.Since(start).String()),
			logger.F("request_id", res.Header().Get(echo.HeaderXRequestID)))
		return nil
	}
}
