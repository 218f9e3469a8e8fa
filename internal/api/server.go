package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/luispater/pagechain/internal/browser/launch"
	"github.com/luispater/pagechain/internal/config"
	"github.com/luispater/pagechain/internal/page"
	"github.com/luispater/pagechain/internal/runner"
	log "github.com/sirupsen/logrus"
)

const (
	queueSize   = 100
	historySize = 50
)

// Server represents the API server
type Server struct {
	engine    *gin.Engine
	server    *http.Server
	queue     *RequestQueue
	processor *ChainProcessor
	handlers  *APIHandlers
}

// ServerConfig contains configuration for the API server
type ServerConfig struct {
	Port     string
	Debug    bool
	Registry *page.Registry
	Runner   *runner.RunnerManager
	Session  *launch.Session
}

// NewServer creates a new API server instance
func NewServer(config *ServerConfig, appConfig *config.AppConfig) *Server {
	// Set gin mode
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	processor := NewChainProcessor(appConfig, config.Runner, config.Session, historySize)
	queue := NewRequestQueue(processor, queueSize)
	handlers := NewAPIHandlers(appConfig, queue, processor, config.Registry, config.Runner, config.Session)

	engine := gin.New()
	engine.Use(gin.Logger())
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	s := &Server{
		engine:    engine,
		queue:     queue,
		processor: processor,
		handlers:  handlers,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:    ":" + config.Port,
		Handler: engine,
	}

	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	v1 := s.engine.Group("/v1")
	{
		v1.GET("/pages", s.handlers.ListPages)
		v1.GET("/chains", s.handlers.ListChains)
		v1.POST("/chains/run", s.handlers.RunChain)
		v1.GET("/runs", s.handlers.ListRuns)
		v1.GET("/screenshot", s.handlers.TakeScreenshot)
	}

	s.engine.GET("/", s.index)
}

// index lists the versioned routes.
func (s *Server) index(c *gin.Context) {
	endpoints := make([]string, 0)
	for _, route := range s.engine.Routes() {
		if strings.HasPrefix(route.Path, "/v1/") {
			endpoints = append(endpoints, route.Method+" "+route.Path)
		}
	}
	sort.Strings(endpoints)
	c.JSON(http.StatusOK, gin.H{
		"message":   "Page Chain API Server",
		"version":   "1.0.0",
		"endpoints": endpoints,
	})
}

// Start listens on the configured port and serves until Stop.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return s.Serve(l)
}

// Serve runs the request queue and serves the API on l until Stop.
func (s *Server) Serve(l net.Listener) error {
	if err := s.queue.Start(); err != nil {
		_ = l.Close()
		return fmt.Errorf("failed to start request queue: %w", err)
	}

	log.Debugf("Starting API server on %s", l.Addr())
	if err := s.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server: %w", err)
	}
	return nil
}

// Stop closes the listener first so no task is queued after the queue drains.
func (s *Server) Stop(ctx context.Context) error {
	log.Debug("Stopping API server...")

	errShutdown := s.server.Shutdown(ctx)
	if err := s.queue.Stop(); err != nil {
		log.Debugf("Error stopping request queue: %v", err)
	}
	if errShutdown != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", errShutdown)
	}

	log.Debug("API server stopped")
	return nil
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
