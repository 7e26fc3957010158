package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/existflow/taskflow/internal/config"
	"github.com/existflow/taskflow/internal/db"
	"github.com/existflow/taskflow/internal/logger"
	"github.com/existflow/taskflow/internal/service"
)

// Server is the TaskFlow HTTP API
type Server struct {
	cfg      config.ServerConfig
	store    *db.Store
	services *service.Services
	echo     *echo.Echo
}

// New creates a server over already wired services
func New(cfg config.ServerConfig, store *db.Store, services *service.Services) *Server {
	s := &Server{
		cfg:      cfg,
		store:    store,
		services: services,
	}
	s.setupEcho()
	return s
}

func (s *Server) setupEcho() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	e.Use(requestLogger)
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{s.cfg.CORSOrigin},
		AllowCredentials: true,
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	if s.cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(s.cfg.BodyLimit))
	}

	e.GET("/health", s.handleHealth)

	api := e.Group("/api")
	api.GET("/health", s.handleHealth)

	// Auth endpoints (public)
	api.POST("/auth/signup", s.handleSignup)
	api.POST("/auth/login", s.handleLogin)
	api.GET("/auth/verify", s.handleVerifyEmail)
	api.POST("/auth/resend-verification", s.handleResendVerification, s.optionalAuth)

	// Protected endpoints
	protected := api.Group("")
	protected.Use(s.authMiddleware)
	protected.GET("/auth/me", s.handleMe)

	protected.GET("/workspaces", s.handleListWorkspaces)
	protected.POST("/workspaces", s.handleCreateWorkspace)
	protected.POST("/workspaces/:id/members", s.handleAddMember)

	protected.GET("/categories", s.handleListCategories)
	protected.POST("/categories", s.handleCreateCategory)

	protected.GET("/tasks", s.handleListTasks)
	protected.POST("/tasks", s.handleCreateTask)
	protected.GET("/tasks/:id", s.handleGetTask)
	protected.PATCH("/tasks/:id", s.handleUpdateTask)
	protected.DELETE("/tasks/:id", s.handleDeleteTask)

	protected.GET("/activities", s.handleListActivities)

	admin := protected.Group("/admin", requireAdmin)
	admin.GET("/users", s.handleListUsers)

	s.echo = e
}

// requestLogger logs every request once it has been served
func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()

		err := next(c)
		if err != nil {
			// Render now so the logged status is the one the client sees
			c.Error(err)
		}

		res := c.Response()
		fields := []logger.Field{
			logger.F("method", req.Method),
			logger.F("uri", loggedURI(req)),
			logger.F("status", res.Status),
			logger.F("size", res.Size),
			logger.F("duration", time.Since(start).String()),
			logger.F("request_id", res.Header().Get(echo.HeaderXRequestID)),
		}
		if res.Status >= http.StatusInternalServerError {
			logger.Warn("HTTP Response", fields...)
		} else {
			logger.Info("HTTP Response", fields...)
		}
		return nil
	}
}

// loggedURI is the request path and query with secrets dropped from the query
func loggedURI(req *http.Request) string {
	query := req.URL.Query()
	if len(query) == 0 {
		return req.URL.Path
	}
	for _, key := range secretParams {
		query.Del(key)
	}
	if len(query) == 0 {
		return req.URL.Path
	}
	return req.URL.Path + "?" + query.Encode()
}

// secretParams never reach the access log
var secretParams = []string{"token"}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	return s.echo
}

// Start serves on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	logger.Info("TaskFlow API listening", logger.F("addr", addr))
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	if err := s.store.Ping(c.Request().Context()); err != nil {
		logger.Error("Health check failed", logger.Err(err))
		return c.JSON(http.StatusServiceUnavailable, map[string]any{"ok": false, "db": "down"})
	}
	return c.JSON(http.StatusOK, map[string]any{"ok": true, "db": "up"})
}
