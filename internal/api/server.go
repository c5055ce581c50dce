package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"twoziq/internal/analytics"
	"twoziq/internal/config"
	"twoziq/internal/logger"
	"twoziq/internal/middleware"
	"twoziq/internal/monitoring"
)

// HealthChecker is implemented by dependencies exposing liveness.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server is the HTTP surface over the analytics engine.
type Server struct {
	config     *config.Config
	router     *gin.Engine
	httpServer *http.Server
	handlers   *Handlers
	metrics    *monitoring.Metrics

	store HealthChecker
	cache HealthChecker
}

// NewServer creates the API server around an analytics service. store and
// cache may be nil when those tiers are unavailable.
func NewServer(cfg *config.Config, service *analytics.Service, metrics *monitoring.Metrics, store, cache HealthChecker) *Server {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:   cfg,
		router:   gin.New(),
		handlers: NewHandlers(service),
		metrics:  metrics,
		store:    store,
		cache:    cache,
	}
	s.setupRoutes()
	return s
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.WithRequestID())
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.ErrorHandler())
	s.router.Use(middleware.HandleErrors)
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.RateLimit(s.config.RateLimit))
	s.router.Use(middleware.WithTimeout(s.config.Server.RequestTimeout))
	s.router.Use(s.metrics.Middleware())

	v1 := s.router.Group("/api/v1")
	{
		marketGroup := v1.Group("/market")
		{
			marketGroup.GET("/valuation", s.handlers.GetValuation)
			marketGroup.GET("/pe-history", s.handlers.GetPEHistory)
		}
		v1.GET("/dca", s.handlers.GetDCA)
		v1.GET("/risk-return", s.handlers.GetRiskReturn)
		v1.GET("/analysis/:ticker", s.handlers.GetDeepAnalysis)
	}

	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	s.router.GET("/health", func(c *gin.Context) {
		storeHealth := healthOf(c.Request.Context(), s.store)
		cacheHealth := healthOf(c.Request.Context(), s.cache)
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().UTC(),
			"services": gin.H{
				"price_store": storeHealth,
				"cache":       cacheHealth,
			},
		})
	})
}

func healthOf(ctx context.Context, hc HealthChecker) string {
	if hc == nil {
		return "unavailable"
	}
	if err := hc.HealthCheck(ctx); err != nil {
		return "error"
	}
	return "ok"
}

// Start starts the HTTP server and blocks.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:           fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:        s.router,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
	}

	logger.Info("starting API server",
		"host", s.config.Server.Host,
		"port", s.config.Server.Port,
		"env", s.config.App.Env,
	)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	logger.Info("shutting down server")
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}
