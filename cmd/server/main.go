package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookstore/backend/internal/app"
	"github.com/bookstore/backend/internal/infrastructure/config"
	"github.com/bookstore/backend/internal/infrastructure/logger"
	"github.com/bookstore/backend/internal/infrastructure/persistence"
	"github.com/bookstore/backend/internal/infrastructure/scheduler"
	"github.com/bookstore/backend/internal/interfaces/http/handler"
	"github.com/bookstore/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const (
	shutdownTimeout  = 30 * time.Second
	slowSQLThreshold = 200 * time.Millisecond
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting bookstore ERP bridge",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level), slowSQLThreshold)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()
	log.Info("Database connected",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.DBName),
	)

	tp, err := app.StartTelemetry(context.Background(), cfg, db.DB, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		_ = tp.Shutdown(context.Background())
	}()

	services, err := app.New(cfg, db.DB, log)
	if err != nil {
		log.Fatal("Failed to initialize services", zap.Error(err))
	}
	lock, err := app.NewRunLock(context.Background(), cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	tasks, err := services.ScheduledTasks(lock)
	if err != nil {
		log.Fatal("Failed to build scheduled tasks", zap.Error(err))
	}
	sched := scheduler.New(scheduler.Config{
		JobTimeout: cfg.Scheduler.JobTimeout,
		RunOnStart: cfg.Scheduler.RunOnStart,
	}, log)
	for _, task := range tasks {
		if err := sched.Register(task); err != nil {
			log.Fatal("Failed to register scheduled task", zap.Error(err))
		}
	}
	if len(tasks) > 0 {
		if err := sched.Start(context.Background()); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
	}

	if cfg.HTTP.APIKey == "" {
		log.Warn("http.api_key is empty; ERP callbacks will be refused")
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(logger.Recovery(log))
	if tp.IsEnabled() {
		engine.Use(otelgin.Middleware(cfg.App.Name))
	}
	engine.Use(logger.GinMiddleware(log))

	router.Setup(engine, router.Handlers{
		ERP:    handler.NewERPHandler(services.Inbound, cfg.ERP.DefaultCurrency, cfg.HTTP.PageSize),
		Shop:   handler.NewShopHandler(services.OrderExport),
		Health: handler.NewHealthHandler(db),
	}, router.Settings{
		APIKey:       cfg.HTTP.APIKey,
		MaxBodyBytes: cfg.HTTP.MaxBodySize,
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sched.Stop(ctx); err != nil {
		log.Warn("Scheduler did not stop cleanly", zap.Error(err))
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	log.Info("Server exited gracefully")
}
