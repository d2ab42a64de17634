// Package server exposes the HTTP API: query processing with optional SSE
// streaming, conversation management, cache administration and health probes.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/nyayagpt/nyayagpt/config"
	"github.com/nyayagpt/nyayagpt/internal/conversation"
	"github.com/nyayagpt/nyayagpt/internal/pipeline"
	"github.com/nyayagpt/nyayagpt/internal/respcache"
)

// Version reported by the health endpoints.
const Version = "1.0.0"

// VectorChecker reports vector index connectivity for the status endpoint.
type VectorChecker interface {
	Health(ctx context.Context) error
}

// Server wires the pipeline and stores into an echo application.
type Server struct {
	cfg    config.ServerConfig
	pipe   *pipeline.Pipeline
	conv   *conversation.Store
	cache  *respcache.Cache
	vector VectorChecker
	logger *log.Logger
	echo   *echo.Echo
}

// New builds the server with middleware and routes registered. vector may be
// nil when the index is unavailable; the status endpoint then reports it
// disconnected.
func New(cfg config.ServerConfig, pipe *pipeline.Pipeline, conv *conversation.Store, cache *respcache.Cache, vector VectorChecker, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	}
	s := &Server{
		cfg:    cfg,
		pipe:   pipe,
		conv:   conv,
		cache:  cache,
		vector: vector,
		logger: logger,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
	}))
	if cfg.RatePerMinute > 0 {
		e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:  rate.Limit(float64(cfg.RatePerMinute) / 60.0),
				Burst: cfg.RatePerMinute,
			}),
		}))
	}

	e.POST("/query", s.handleQuery)
	e.GET("/conversation/:id", s.handleGetConversation)
	e.DELETE("/conversation/:id", s.handleDeleteConversation)
	e.GET("/clear-cache", s.handleClearCache)
	e.GET("/", s.handleRoot)
	e.GET("/health", s.handleHealth)
	e.GET("/status", s.handleStatus)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.echo = e
	return s
}

// Handler exposes the underlying http handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	addr := s.cfg.Address
	if addr == "" {
		addr = ":8000"
	}
	s.logger.Printf("listening on %s", addr)
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
