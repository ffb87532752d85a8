// Package api exposes the scoring engine over a REST interface.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/clinical-scoring-server/internal/audit"
	"github.com/clinical-scoring-server/internal/config"
	"github.com/clinical-scoring-server/internal/middleware"
	"github.com/clinical-scoring-server/internal/scoring"
)

// RecordCache is the optional read-through cache over stored assessment
// records. A cache hit must return the record exactly as persisted.
type RecordCache interface {
	Get(ctx context.Context, id string) (*audit.Record, bool, error)
	Set(ctx context.Context, record *audit.Record) error
	Invalidate(ctx context.Context, id string) error
}

// Server represents the HTTP server.
type Server struct {
	configManager *config.Manager
	engine        *scoring.Engine
	store         audit.Store
	recordCache   RecordCache
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance. recordCache may be nil when
// the Redis cache is disabled.
func NewServer(configManager *config.Manager, engine *scoring.Engine, store audit.Store, recordCache RecordCache, logger *logrus.Logger) *Server {
	cfg := configManager.GetConfig()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.AuditLogger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())

	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit)
		router.Use(limiter.Middleware())
	}

	server := &Server{
		configManager: configManager,
		engine:        engine,
		store:         store,
		recordCache:   recordCache,
		logger:        logger,
		router:        router,
	}

	server.setupRoutes()

	return server
}

// Start starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// Router returns the underlying gin router, used by tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// setupRoutes configures the API routes.
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/profiles", s.handleListProfiles)
		v1.POST("/assessments/:profile", s.handleAssess)
		v1.POST("/screen/:profile", s.handleScreen)
		v1.POST("/parse/:profile", s.handleParse)
		v1.GET("/assessments/:id", s.handleGetAssessment)
		v1.GET("/assessments", s.handleListAssessments)
		v1.DELETE("/assessments/:id", s.handleDeleteAssessment)
	}
}

// corsMiddleware adds CORS headers to responses.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Correlation-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Length, X-Correlation-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
