// internal/interfaces/http/server.go
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/your-org/beauty-store-backend/internal/config"
	"github.com/your-org/beauty-store-backend/internal/domain/cart"
	"github.com/your-org/beauty-store-backend/internal/domain/checkout"
	"github.com/your-org/beauty-store-backend/internal/domain/product"
	"github.com/your-org/beauty-store-backend/internal/domain/user"
	"github.com/your-org/beauty-store-backend/internal/domain/welcomegift"
	"github.com/your-org/beauty-store-backend/internal/infrastructure/database/redis"
	"github.com/your-org/beauty-store-backend/internal/interfaces/http/handlers"
	"github.com/your-org/beauty-store-backend/internal/interfaces/http/middleware"
	"github.com/your-org/beauty-store-backend/internal/interfaces/http/routes"
	"github.com/your-org/beauty-store-backend/internal/pkg/anonymous"
	"gorm.io/gorm"
)

const maxRequestBody = 1 << 20

// Server represents the HTTP server
type Server struct {
	config      *config.Config
	gin         *gin.Engine
	httpServer  *http.Server
	db          *gorm.DB
	redisClient *redis.Client
	log         *logrus.Logger
	startedAt   time.Time
}

// NewServer wires services, middleware and routes. redisClient may be nil, in
// which case the gift catalogue is not cached and the global limiter is off.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, signer *anonymous.Signer, log *logrus.Logger) (*Server, error) {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := welcomegift.RegisterValidations(v); err != nil {
			return nil, fmt.Errorf("failed to register validations: %w", err)
		}
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:      cfg,
		gin:         gin.New(),
		db:          db,
		redisClient: redisClient,
		log:         log,
		startedAt:   time.Now(),
	}
	if len(cfg.Security.TrustedProxies) > 0 {
		if err := s.gin.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
			return nil, fmt.Errorf("invalid trusted proxies: %w", err)
		}
	}

	s.setupMiddleware()
	s.setupRoutes(signer)

	s.httpServer = &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      s.gin,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s, nil
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.gin
}

// Start serves until Stop is called
func (s *Server) Start() error {
	s.log.WithField("port", s.config.Server.Port).Info("🚀 HTTP server starting")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("🛑 Shutting down HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.log.Info("✅ HTTP server stopped gracefully")
	return nil
}

func (s *Server) setupMiddleware() {
	var counter middleware.WindowCounter
	if s.redisClient != nil {
		counter = s.redisClient
	}

	s.gin.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(s.log),
		middleware.Metrics(),
		middleware.CORS(s.config),
		middleware.SecurityHeaders(),
		middleware.RateLimit(counter, s.config.Security.RateLimitPerMinute, s.log),
		middleware.RequestSizeLimit(maxRequestBody),
		middleware.Timeout(s.config.Server.RequestTimeout),
	)
}

func (s *Server) setupRoutes(signer *anonymous.Signer) {
	s.gin.GET("/health", s.healthCheck)
	s.gin.GET("/ready", s.readinessCheck)
	s.gin.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var cache welcomegift.Cache
	if s.redisClient != nil {
		cache = s.redisClient
	}

	gifts := welcomegift.NewService(s.db, cache, signer, s.config, s.log)
	wg := s.config.WelcomeGift

	routes.SetupRoutes(s.gin.Group("/api"), &routes.Handlers{
		Auth:    handlers.NewAuthHandler(user.NewService(s.db, s.config), gifts, s.log),
		Product: handlers.NewProductHandler(product.NewService(s.db), s.log),
		Checkout: handlers.NewCheckoutHandler(s.db,
			cart.NewPricer(s.config), checkout.NewShippingPolicy(s.config), s.log),
		WelcomeGift:  handlers.NewWelcomeGiftHandler(gifts, signer, s.log),
		ClaimLimiter: middleware.NewClaimLimiter(wg.ClaimRateLimit, wg.ClaimRateWindow),
	}, s.config)

	s.gin.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.Response{Success: false, Message: "Route not found", Code: "NOT_FOUND"})
	})
}

func (s *Server) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := gin.H{"database": "ok"}
	healthy := true

	if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		checks["database"] = "unavailable"
		healthy = false
	}

	// Redis is optional: its loss degrades caching and rate limiting, not service
	if s.redisClient != nil {
		checks["redis"] = "ok"
		if err := s.redisClient.Redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = "degraded"
		}
	}

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "unhealthy"
	}
	c.JSON(status, gin.H{
		"status":      state,
		"checks":      checks,
		"timestamp":   time.Now().UTC(),
		"version":     s.config.App.Version,
		"environment": s.config.App.Environment,
	})
}

func (s *Server) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}
