// Package api wires together all HTTP routes for Tender Insight Hub.
//
// Route grouping:
//   - Tender search, detail, export, analysis and the dashboard are public, as
//     the frontend shows them before sign-in. Analyze picks up the caller's
//     organization when a bearer token is supplied.
//   - /api/auth/me and document uploads require a bearer token.
//   - Login and registration sit behind a stricter rate limit than the rest of
//     the API.
package api

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/tenderhub/tender-insight-hub/internal/api/accounts"
	"github.com/tenderhub/tender-insight-hub/internal/api/dashboard"
	"github.com/tenderhub/tender-insight-hub/internal/api/tenders"
	"github.com/tenderhub/tender-insight-hub/internal/config"
	"github.com/tenderhub/tender-insight-hub/internal/db/repositories"
	"github.com/tenderhub/tender-insight-hub/internal/jobs"
	"github.com/tenderhub/tender-insight-hub/internal/middleware"
	"github.com/tenderhub/tender-insight-hub/internal/ocds"
	"github.com/tenderhub/tender-insight-hub/internal/scoring"
	"github.com/tenderhub/tender-insight-hub/internal/services"
	"github.com/tenderhub/tender-insight-hub/internal/storage"
)

// Version is reported by GET /version. It is set at build time with
// -ldflags "-X github.com/tenderhub/tender-insight-hub/internal/api.Version=...".
var Version = "dev"

// BackgroundServices holds references to background jobs and resources that must
// be stopped during graceful shutdown. The caller (cmd/server) is responsible for
// calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	ocdsSync     *jobs.OCDSSyncJob
	deadlines    *jobs.DeadlineJob
	rateLimiters []*middleware.RateLimiter
	redis        *redis.Client
}

// Shutdown stops all background goroutines. It should be called after the HTTP
// server has been shut down so that in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.ocdsSync != nil {
		bg.ocdsSync.Stop()
	}
	if bg.deadlines != nil {
		bg.deadlines.Stop()
	}
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	if bg.redis != nil {
		if err := bg.redis.Close(); err != nil {
			slog.Warn("failed to close redis client", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router and starts the background
// jobs enabled in cfg.
func NewRouter(cfg *config.Config, db *sql.DB) (*gin.Engine, *BackgroundServices, error) {
	storageBackend, err := storage.NewStorage(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	slog.Info("initialized storage backend", "backend", cfg.Storage.DefaultBackend)

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	orgRepo := repositories.NewOrganizationRepository(db)
	tenderRepo := repositories.NewTenderRepository(db)
	documentRepo := repositories.NewDocumentRepository(db)
	analysisRepo := repositories.NewAnalysisRepository(db)
	statsRepo := repositories.NewStatsRepository(sqlx.NewDb(db, "postgres"))

	// Services
	accountService := services.NewAccountService(userRepo, orgRepo, services.AccountOptions{
		TokenTTL:          cfg.Auth.TokenTTL,
		MinPasswordLength: cfg.Auth.MinPasswordLength,
	})
	tenderService := services.NewTenderService(tenderRepo, documentRepo)
	analysisService := services.NewAnalysisService(tenderRepo, analysisRepo, scoring.NewStaticScorer())
	dashboardService := services.NewDashboardService(tenderRepo, statsRepo)
	documentService := services.NewDocumentService(tenderRepo, documentRepo, storageBackend,
		cfg.Storage.DefaultBackend, cfg.Storage.URLTTL)

	bg := &BackgroundServices{}

	if cfg.Ingestion.Enabled {
		client := ocds.NewClient(cfg.Ingestion.BaseURL, cfg.Ingestion.PageSize, cfg.Ingestion.RequestTimeout)
		bg.ocdsSync = jobs.NewOCDSSyncJob(client, tenderRepo, documentRepo, cfg.Ingestion.Lookback, cfg.Ingestion.MaxPages)
		bg.ocdsSync.Start(context.Background(), cfg.Ingestion.Interval)
	}
	if cfg.Ingestion.DeadlineInterval > 0 {
		bg.deadlines = jobs.NewDeadlineJob(tenderRepo, cfg.Ingestion.DeadlineInterval)
		bg.deadlines.Start(context.Background())
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig(cfg.Security.TLS.Enabled)))
	router.Use(middleware.CORSMiddleware(cfg.Security.CORS.AllowedOrigins, cfg.Security.CORS.AllowedMethods))

	generalLimit, authLimit := newRateLimiters(cfg.Security.RateLimiting, bg)
	if generalLimit != nil {
		router.Use(middleware.RateLimitMiddleware(generalLimit))
	}

	router.GET("/health", healthCheckHandler(db))
	router.GET("/ready", readinessHandler(db, storageBackend))
	router.GET("/version", versionHandler())

	accountHandler := accounts.NewHandler(accountService)
	tenderHandler := tenders.NewHandler(tenderService, analysisService, documentService, cfg.Server.MaxUploadSize)
	statsHandler := dashboard.NewStatsHandler(dashboardService)

	requireAuth := middleware.AuthMiddleware(userRepo)
	optionalAuth := middleware.OptionalAuthMiddleware(userRepo)

	apiGroup := router.Group("/api")
	{
		authGroup := apiGroup.Group("/auth")
		if authLimit != nil {
			authGroup.Use(middleware.RateLimitMiddleware(authLimit))
		}
		authGroup.POST("/login", accountHandler.Login)
		authGroup.POST("/register", accountHandler.Register)
		authGroup.GET("/me", requireAuth, accountHandler.Me)

		tenderGroup := apiGroup.Group("/tenders")
		tenderGroup.GET("", tenderHandler.List)
		tenderGroup.GET("/export", tenderHandler.Export)
		tenderGroup.GET("/:id", tenderHandler.Get)
		tenderGroup.POST("/:id/analyze", optionalAuth, tenderHandler.Analyze)
		tenderGroup.GET("/:id/analyses", tenderHandler.ListAnalyses)
		tenderGroup.POST("/:id/documents", requireAuth, tenderHandler.UploadDocument)
		tenderGroup.GET("/:id/documents/:docID/download", tenderHandler.DownloadDocument)

		apiGroup.GET("/dashboard/stats", statsHandler.GetStats)
	}

	return router, bg, nil
}

// newRateLimiters builds the general and auth limiters. Both are nil when
// rate limiting is disabled. In-memory limiters are registered on bg so their
// cleanup goroutines stop on shutdown.
func newRateLimiters(cfg config.RateLimitingConfig, bg *BackgroundServices) (general, auth middleware.Limiter) {
	if !cfg.Enabled {
		return nil, nil
	}

	generalCfg := middleware.DefaultRateLimitConfig()
	if cfg.RequestsPerMinute > 0 {
		generalCfg.RequestsPerMinute = cfg.RequestsPerMinute
	}
	if cfg.Burst > 0 {
		generalCfg.BurstSize = cfg.Burst
	}
	authCfg := middleware.AuthRateLimitConfig()
	if cfg.AuthPerMinute > 0 {
		authCfg.RequestsPerMinute = cfg.AuthPerMinute
	}

	if cfg.RedisAddr != "" {
		bg.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		slog.Info("using redis rate limiter", "addr", cfg.RedisAddr)
		return middleware.NewRedisRateLimiter(bg.redis, "tih:ratelimit:general", generalCfg),
			middleware.NewRedisRateLimiter(bg.redis, "tih:ratelimit:auth", authCfg)
	}

	generalRL := middleware.NewRateLimiter(generalCfg)
	authRL := middleware.NewRateLimiter(authCfg)
	bg.rateLimiters = append(bg.rateLimiters, generalRL, authRL)
	return generalRL, authRL
}

// @Summary      Health check
// @Description  Returns the health status of the service, including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic. Checks the database and the document storage backend.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, checks, time"
// @Failure      503  {object}  map[string]interface{}  "ready: false, checks, error"
// @Router       /ready [get]
// readinessHandler also probes the storage backend so that a readiness gate
// fails when document uploads and downloads would error.
func readinessHandler(db *sql.DB, storageBackend storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		if err := db.PingContext(c.Request.Context()); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		// Probe a path that never exists; Exists still exercises credentials
		// and connectivity.
		if _, err := storageBackend.Exists(c.Request.Context(), ".readiness-probe"); err != nil {
			checks["storage"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "storage backend not ready",
			})
			return
		}
		checks["storage"] = "healthy"

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     Version,
			"api_version": "v1",
		})
	}
}
