package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"training-workspace-service/internal/config"
	"training-workspace-service/internal/handler"
	"training-workspace-service/internal/kube"
	"training-workspace-service/internal/middleware"
	"training-workspace-service/internal/repository"
	"training-workspace-service/internal/runner"
	"training-workspace-service/internal/usecase"
	"training-workspace-service/internal/workspace"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	initLogger(cfg)

	// Create database pool
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("parse db config: %v", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.Database.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		log.Fatalf("create db pool: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		log.Fatalf("ping db: %v", err)
	}
	log.Info("database connection established")

	if err := repository.EnsureSchema(context.Background(), pool); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	// Workspace
	layout := workspace.NewLayout(cfg.Workspace.Root)
	manifestPath := cfg.Workspace.ManifestPath
	if manifestPath == "" {
		manifestPath = filepath.Join(layout.Root, workspace.ManifestFile)
	}
	manifest, err := workspace.LoadManifest(manifestPath)
	if err != nil {
		log.Fatalf("load workspace manifest: %v", err)
	}
	if report := workspace.Verify(layout, manifest); !report.OK() {
		log.Warnf("workspace verification reported %d failure(s); run workspace init or fix the tree", report.Failures())
	}

	// Repositories
	runRepo := repository.NewTrainingRunRepository(pool)
	setRepo := repository.NewEmbeddingSetRepository(pool)
	evalRepo := repository.NewClassifierEvalRepository(pool)

	// Kubernetes Job launcher (optional - based on config)
	launcher, err := kube.NewLauncher(&cfg.Kubernetes)
	if err != nil {
		log.Warnf("Kubernetes launcher init failed (continuing with local execution only): %v", err)
		launcher = kube.Disabled()
	} else if launcher.IsAvailable() {
		log.Info("Kubernetes launcher initialized")
	} else {
		log.Info("Kubernetes launcher disabled")
	}

	// Local run executor
	localRunner := runner.New(runRepo, layout)

	// Use cases
	workspaceUC := usecase.NewWorkspaceUseCase(layout, manifest)
	runUC := usecase.NewRunUseCase(runRepo, localRunner, launcher, layout, cfg.Training)
	encodingUC := usecase.NewEncodingUseCase(setRepo, runRepo, layout)
	classifierUC := usecase.NewClassifierUseCase(evalRepo, setRepo, layout)

	// HTTP handlers
	h := handler.New(workspaceUC, runUC, encodingUC, classifierUC)

	// Setup router
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), gin.Recovery())

	api := router.Group("/api/v1")
	h.RegisterRoutes(api)

	// Health check with DB ping
	router.GET("/healthz", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced shutdown: %v", err)
	}
	if err := localRunner.Shutdown(ctx); err != nil {
		log.Warnf("runner shutdown incomplete: %v", err)
	}

	log.Info("server stopped")
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
