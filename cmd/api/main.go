package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/abhiyeduru/mentlearn-api/api/swagger"
	"github.com/abhiyeduru/mentlearn-api/internal/handler"
	"github.com/abhiyeduru/mentlearn-api/internal/middleware"
	"github.com/abhiyeduru/mentlearn-api/internal/repository"
	"github.com/abhiyeduru/mentlearn-api/internal/service"
	"github.com/abhiyeduru/mentlearn-api/pkg/cache"
	"github.com/abhiyeduru/mentlearn-api/pkg/config"
	"github.com/abhiyeduru/mentlearn-api/pkg/database"
	"github.com/abhiyeduru/mentlearn-api/pkg/jobs"
	"github.com/abhiyeduru/mentlearn-api/pkg/logger"
	corsmiddleware "github.com/abhiyeduru/mentlearn-api/pkg/middleware/cors"
	reqidmiddleware "github.com/abhiyeduru/mentlearn-api/pkg/middleware/requestid"
	"github.com/abhiyeduru/mentlearn-api/pkg/storage"
)

// @title Mentlearn API
// @version 1.0.0
// @description Live sessions, registrations and exports for the Mentlearn platform.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, logr); err != nil {
			logr.Fatal("migrate", zap.Error(err))
		}
	}

	var rdb *redis.Client
	if cfg.Cache.Enabled {
		rdb, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, cache disabled", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	location, err := time.LoadLocation(cfg.Exports.Timezone)
	if err != nil {
		logr.Warn("unknown export timezone, using UTC", zap.String("timezone", cfg.Exports.Timezone), zap.Error(err))
		location = time.UTC
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	sessionRepo := repository.NewSessionRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	leadRepo := repository.NewLeadRepository(db)

	var cacheSvc *service.CacheService
	var exportJobRepo *repository.ExportJobRepository
	if rdb != nil {
		cacheRepo := repository.NewCacheRepository(rdb)
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, true)
		exportJobRepo = repository.NewExportJobRepository(cacheRepo, cfg.Exports.SignedURLTTL*2)
	} else {
		exportJobRepo = repository.NewExportJobRepository(nil, cfg.Exports.SignedURLTTL*2)
	}

	sessionSvc := service.NewSessionService(sessionRepo, cacheSvc, metrics, validate, logr)
	registrationSvc := service.NewRegistrationService(registrationRepo, sessionRepo, cacheSvc, metrics, validate, logr)
	leadSvc := service.NewLeadService(leadRepo, validate, logr)

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(registrationRepo, exportStore, signer, service.ExportConfig{
		APIPrefix:  cfg.APIPrefix,
		ResultTTL:  cfg.Exports.SignedURLTTL,
		Location:   location,
		DateLayout: cfg.Exports.DateLayout,
	}, logr, nil, nil)

	worker := service.NewExportWorker(exportJobRepo, exportSvc, metrics, logr)
	queue := jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		OnFailure:  worker.Fail,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()

	exportJobSvc := service.NewExportJobService(exportJobRepo, queue, exportSvc, cfg.Exports.CleanupInterval, validate, logr)
	exportJobSvc.StartCleanup(ctx)

	var uploader *storage.S3
	if cfg.Media.Enabled {
		uploader, err = storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.Media.Region,
			Bucket:          cfg.Media.Bucket,
			AccessKeyID:     cfg.Media.AccessKeyID,
			SecretAccessKey: cfg.Media.SecretAccessKey,
			PublicBaseURL:   cfg.Media.PublicBaseURL,
		}, logr)
		if err != nil {
			logr.Warn("media uploads disabled", zap.Error(err))
			uploader = nil
		}
	}
	limits := service.MediaLimits{MaxImageBytes: cfg.Media.MaxImageBytes, MaxVideoBytes: cfg.Media.MaxVideoBytes}
	mediaSvc := service.NewMediaService(nil, limits, logr)
	if uploader != nil {
		mediaSvc = service.NewMediaService(uploader, limits, logr)
	}

	service.NewCatalogRefresher(sessionSvc, cfg.Sessions.PollInterval, logr).Start(ctx)

	tokens := service.NewTokenVerifier(service.TokenVerifierConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, readinessChecks(db, rdb))
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), tokens, routeHandlers{
		sessions:      handler.NewSessionHandler(sessionSvc),
		registrations: handler.NewRegistrationHandler(registrationSvc, exportSvc),
		exports:       handler.NewExportHandler(exportJobSvc),
		leads:         handler.NewLeadHandler(leadSvc),
		media:         handler.NewMediaHandler(mediaSvc),
		metrics:       metricsHandler,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown", zap.Error(err))
	}
}

type routeHandlers struct {
	sessions      *handler.SessionHandler
	registrations *handler.RegistrationHandler
	exports       *handler.ExportHandler
	leads         *handler.LeadHandler
	media         *handler.MediaHandler
	metrics       *handler.MetricsHandler
}

func registerRoutes(api *gin.RouterGroup, tokens middleware.TokenValidator, h routeHandlers) {
	api.Use(middleware.WithResponseMeta())

	api.GET("/sessions/active", h.sessions.ListActive)
	api.POST("/registrations", h.registrations.Submit)
	api.POST("/leads/callback", h.leads.SubmitCallback)
	api.POST("/leads/partner", h.leads.SubmitPartner)
	api.GET("/exports/download/:token", h.exports.Download)

	staff := api.Group("")
	staff.Use(middleware.JWT(tokens), middleware.RequireStaff())
	{
		staff.GET("/sessions", h.sessions.List)
		staff.GET("/sessions/stats", h.sessions.Stats)
		staff.GET("/sessions/:id", h.sessions.Get)
		staff.POST("/sessions", h.sessions.Create)
		staff.PATCH("/sessions/:id", h.sessions.Update)
		staff.POST("/sessions/:id/toggle-active", h.sessions.ToggleActive)
		staff.POST("/sessions/:id/toggle-live", h.sessions.ToggleLive)
		staff.PUT("/sessions/:id/live", h.sessions.SetLive)
		staff.DELETE("/sessions/:id", h.sessions.Delete)

		staff.GET("/registrations", h.registrations.List)
		staff.GET("/registrations/export.csv", h.registrations.ExportCSV)
		staff.PATCH("/registrations/:id/status", h.registrations.SetStatus)

		staff.POST("/exports", h.exports.Create)
		staff.GET("/exports/:id", h.exports.Status)

		staff.GET("/leads", h.leads.List)
		staff.PATCH("/leads/:id/status", h.leads.SetStatus)

		staff.POST("/media", h.media.Upload)
		staff.GET("/metrics/summary", h.metrics.Summary)
	}
}

func readinessChecks(db *sqlx.DB, rdb *redis.Client) map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return checks
}
