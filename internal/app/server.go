// File: internal/app/server.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"mugo_plumbing_backend/internal/auth"
	"mugo_plumbing_backend/internal/booking"
	"mugo_plumbing_backend/internal/catalog"
	"mugo_plumbing_backend/internal/config"
	"mugo_plumbing_backend/internal/jobs"
	"mugo_plumbing_backend/internal/middleware"
	"mugo_plumbing_backend/internal/platform/elasticsearch"
	"mugo_plumbing_backend/internal/provider"
	"mugo_plumbing_backend/internal/session"
	"mugo_plumbing_backend/internal/shared"
	"mugo_plumbing_backend/internal/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers groups the HTTP handlers mounted under /api/v1.
type Handlers struct {
	User     *user.Handler
	Auth     *auth.Handler
	Catalog  *catalog.Handler
	Provider *provider.Handler
	Booking  *booking.Handler
}

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger
	esClient   *elasticsearch.ESClientWrapper

	bookingExpiryJob *jobs.BookingExpiryJob
}

// NewServer creates a new instance of our application server.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	verifier middleware.TokenVerifier,
	sessions *session.Manager,
	handlers Handlers,
	bookingExpiryJob *jobs.BookingExpiryJob,
	esClient *elasticsearch.ESClientWrapper,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	router := gin.New()

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Length", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	router.HandleMethodNotAllowed = true
	router.NoRoute(middleware.NoRoute)
	router.NoMethod(middleware.NoMethod)

	authMW := middleware.AuthMiddleware(verifier, sessions, logger.Named("AuthMiddleware"))
	providerRoleMW := middleware.RoleAuthMiddleware(shared.RoleProvider)
	adminRoleMW := middleware.RoleAuthMiddleware(shared.RoleAdmin)
	authRateLimitMW := middleware.NewRateLimiter(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst).Middleware()

	// --- Setup Routes ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "Mugo Plumbing API is healthy!"})
	})

	v1 := router.Group("/api/v1")
	handlers.Auth.RegisterRoutes(v1, authMW, authRateLimitMW)
	handlers.User.RegisterRoutes(v1, authMW)
	handlers.Catalog.RegisterRoutes(v1, authMW, adminRoleMW)
	handlers.Provider.RegisterRoutes(v1, authMW, providerRoleMW, adminRoleMW)
	handlers.Booking.RegisterRoutes(v1, authMW, providerRoleMW)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer:       httpServer,
		router:           router,
		cfg:              cfg,
		logger:           logger,
		esClient:         esClient,
		bookingExpiryJob: bookingExpiryJob,
	}, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// EnsureSearchIndex creates the providers index when search is enabled.
func (s *Server) EnsureSearchIndex(ctx context.Context) error {
	if s.esClient == nil {
		s.logger.Info("Elasticsearch client not initialized, skipping index creation.")
		return nil
	}
	return elasticsearch.CreateProvidersIndexIfNotExists(ctx, s.esClient, s.logger)
}

func (s *Server) Start() error {
	if s.bookingExpiryJob != nil {
		if err := s.bookingExpiryJob.SetupAndStart(); err != nil {
			s.logger.Error("Failed to setup and start booking expiry job", zap.Error(err))
		}
	} else {
		s.logger.Info("Booking expiry job is not configured, skipping start.")
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
		zap.String("store_driver", s.cfg.StoreDriver),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	if s.bookingExpiryJob != nil {
		s.bookingExpiryJob.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
