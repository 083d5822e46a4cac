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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/brgy-records-api/api/swagger"
	"github.com/noah-isme/brgy-records-api/internal/handler"
	internalmiddleware "github.com/noah-isme/brgy-records-api/internal/middleware"
	"github.com/noah-isme/brgy-records-api/internal/models"
	"github.com/noah-isme/brgy-records-api/internal/repository"
	"github.com/noah-isme/brgy-records-api/internal/service"
	"github.com/noah-isme/brgy-records-api/pkg/cache"
	"github.com/noah-isme/brgy-records-api/pkg/config"
	"github.com/noah-isme/brgy-records-api/pkg/controlnumber"
	"github.com/noah-isme/brgy-records-api/pkg/database"
	"github.com/noah-isme/brgy-records-api/pkg/export"
	"github.com/noah-isme/brgy-records-api/pkg/jobs"
	"github.com/noah-isme/brgy-records-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/brgy-records-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/brgy-records-api/pkg/middleware/requestid"
	"github.com/noah-isme/brgy-records-api/pkg/notify"
	"github.com/noah-isme/brgy-records-api/pkg/storage"
)

// @title Barangay Records API
// @version 1.0.0
// @description 4Ps beneficiaries, scholars, staff leave and notifications
// @BasePath /
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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	checks := map[string]handler.Pinger{"postgres": db}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			// the dashboard degrades to uncached reads
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			})
		}
	}

	metrics := service.NewMetricsService()
	validate := service.NewValidator()

	files, err := storage.NewLocalStorage(cfg.Storage.PhotoDir)
	if err != nil {
		return fmt.Errorf("init photo storage: %w", err)
	}
	photoStore := storage.NewPhotoStore(files, storage.PhotoOptions{
		MaxBytes:     cfg.Storage.MaxUploadBytes,
		MaxDimension: cfg.Storage.MaxPhotoDim,
		AllowedMIMEs: cfg.Storage.AllowedMIMEs,
	})
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)
	links := service.NewPhotoLinks(signer, cfg.APIPrefix)

	sink, closeSink, err := notify.New(cfg.Notify, logr)
	if err != nil {
		return fmt.Errorf("init notification sink: %w", err)
	}
	defer closeSink()

	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(nil)
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient)
	}
	beneficiaryRepo := repository.NewBeneficiaryRepository(db, controlnumber.New(models.BeneficiaryControlPrefix), cfg.ControlNumbers.MaxAttempts)
	scholarRepo := repository.NewScholarRepository(db, controlnumber.New(models.ScholarControlPrefix), cfg.ControlNumbers.MaxAttempts)
	leaveRepo := repository.NewLeaveRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	auditSvc := service.NewAuditService(auditRepo, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cacheRepo.Enabled())

	notificationSvc := service.NewNotificationService(notificationRepo, sink, metrics, logr)
	queue := jobs.NewQueue("notifications", notificationSvc.Handle, jobs.QueueConfig{
		Workers:    cfg.Notify.Workers,
		BufferSize: 256,
		MaxRetries: cfg.Notify.Retries,
		RetryDelay: time.Second,
		Logger:     logr,
	})
	// stopped explicitly once the server has drained
	queue.Start(context.Background())
	notificationSvc.AttachQueue(queue)

	recordDeps := service.RecordDeps{
		Photos:        photoStore,
		Links:         links,
		Audit:         auditSvc,
		Cache:         cacheSvc,
		Metrics:       metrics,
		Renderer:      export.NewRenderer(),
		ExportMaxRows: cfg.Exports.MaxRows,
		Logger:        logr,
	}

	authSvc := service.NewAuthService(userRepo, auditSvc, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	userSvc := service.NewUserService(userRepo, auditSvc, validate, logr)
	beneficiarySvc := service.NewBeneficiaryService(beneficiaryRepo, validate, recordDeps)
	scholarSvc := service.NewScholarService(scholarRepo, validate, recordDeps)
	photoSvc := service.NewPhotoService(photoStore, signer, links, logr)
	leaveSvc := service.NewLeaveService(leaveRepo, userRepo, notificationSvc, auditSvc, cacheSvc, validate, logr)
	dashboardSvc := service.NewDashboardService(beneficiaryRepo, scholarRepo, leaveRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics, "/health", "/ready", "/metrics"))
	r.Use(internalmiddleware.WithResponseMeta())

	routes := &handler.Router{
		Auth:          handler.NewAuthHandler(authSvc),
		Users:         handler.NewUserHandler(userSvc),
		Beneficiaries: handler.NewBeneficiaryHandler(beneficiarySvc),
		Scholars:      handler.NewScholarHandler(scholarSvc),
		Photos:        handler.NewPhotoHandler(photoSvc, cfg.Storage.MaxUploadBytes),
		Leaves:        handler.NewLeaveHandler(leaveSvc),
		Notifications: handler.NewNotificationHandler(notificationSvc),
		Metrics:       handler.NewMetricsHandler(metrics, checks),
		Tokens:        authSvc,
		Audit:         auditSvc,
	}
	if cfg.Dashboard.Enabled {
		routes.Dashboard = handler.NewDashboardHandler(dashboardSvc)
	} else {
		routes.Dashboard = handler.NewDashboardHandler(nil)
	}
	routes.Register(r, cfg.APIPrefix)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		queue.Stop()
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	queue.Stop()
	return nil
}
