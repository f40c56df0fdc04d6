// Package api provides the journal HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pbaille/journal/internal/domain"
	"github.com/pbaille/journal/internal/insights"
	"github.com/pbaille/journal/internal/tagging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	// HeaderUserID selects the journal owner of a request
	HeaderUserID  = "X-User-ID"
	DefaultUserID = "local"

	userIDKey = "user_id"
)

// EntryStore is the entry storage used by the API
type EntryStore interface {
	AddEntry(ctx context.Context, userID, content string, createdAt time.Time) (*domain.Entry, error)
	GetEntry(ctx context.Context, id string) (*domain.Entry, error)
	FindEntry(ctx context.Context, userID, prefix string) (*domain.Entry, error)
	ListEntries(ctx context.Context, userID string, limit, offset int) ([]domain.Entry, error)
	UpdateEntry(ctx context.Context, id, content string) (*domain.Entry, error)
	DeleteEntry(ctx context.Context, id string) error
	SearchEntries(ctx context.Context, userID, query string) ([]domain.Entry, error)
}

// Insights produces reports and the narrow accessors
type Insights interface {
	Report(ctx context.Context, userID string) (*domain.AnalysisReport, error)
	Stats(ctx context.Context, userID string) (*insights.Stats, error)
	Prompts(ctx context.Context, userID string) ([]insights.Prompt, error)
}

// Tagger tags single entries on write and re-tags a user on demand
type Tagger interface {
	TagEntry(ctx context.Context, e domain.Entry) error
	TagUser(ctx context.Context, userID string) (tagging.Result, error)
}

// Config holds HTTP server configuration
type Config struct {
	Host string
	Port int
}

// Server handles HTTP requests for the journal API
type Server struct {
	echo     *echo.Echo
	entries  EntryStore
	insights Insights
	tagger   Tagger
	logger   *zap.Logger
	config   *Config
}

// NewServer creates a new API server. tagger may be nil, in which case new
// entries stay untagged and re-tagging is unavailable.
func NewServer(entries EntryStore, ins Insights, tagger Tagger, logger *zap.Logger, cfg *Config) (*Server, error) {
	if entries == nil || ins == nil {
		return nil, errors.New("entry store and insights service are required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg == nil {
		cfg = &Config{Host: "127.0.0.1", Port: 8080}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, HeaderUserID},
	}))
	e.Use(requestLogger(logger))
	e.Use(userID)

	s := &Server{
		echo:     e,
		entries:  entries,
		insights: ins,
		tagger:   tagger,
		logger:   logger,
		config:   cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.echo.GET("/entries", s.handleListEntries)
	s.echo.POST("/entries", s.handleAddEntry)
	s.echo.GET("/entries/:id", s.handleGetEntry)
	s.echo.PUT("/entries/:id", s.handleUpdateEntry)
	s.echo.DELETE("/entries/:id", s.handleDeleteEntry)
	s.echo.GET("/search", s.handleSearch)

	s.echo.GET("/insights", s.handleInsights)
	s.echo.POST("/insights/retag", s.handleRetag)
	s.echo.GET("/stats", s.handleStats)
	s.echo.GET("/prompts", s.handlePrompts)
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return nil
		}
	}
}

func userID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(HeaderUserID)
		if id == "" {
			id = DefaultUserID
		}
		c.Set(userIDKey, id)
		return next(c)
	}
}

func currentUser(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}

// Echo exposes the underlying router
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// HealthResponse is the response body for GET /health
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) internalError(msg string, err error) error {
	s.logger.Error(msg, zap.Error(err))
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
