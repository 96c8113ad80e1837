package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alumnilink/internal/config"
	"alumnilink/internal/db"
	"alumnilink/internal/logger"
	"alumnilink/internal/middleware"
	"alumnilink/internal/router"
	"alumnilink/internal/services"
	"alumnilink/internal/storage/gormstore"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config")
	flag.Parse()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	cfg := config.MustLoad(*configPath)

	logg, err := logger.New(cfg.Env, cfg.Log.HashSalt)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logg.Sync()

	// Initialize Database
	gdb, err := db.Open(cfg.DB, logg)
	if err != nil {
		logg.Fatal("Failed to open database", "error", err)
	}
	if cfg.Env == "local" {
		db.SeedNews(gdb, logg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Services
	store := gormstore.New(gdb)
	metrics := services.NewMetrics(prometheus.DefaultRegisterer)

	subjects, err := services.NewCachedSubjectChecker(services.NewNewsChecker(gdb), cfg.Cache.SubjectSize, cfg.Cache.SubjectTTL)
	if err != nil {
		logg.Fatal("Failed to init subject cache", "error", err)
	}
	tree := services.NewTreeAssembler(store, services.TreeLimits{
		DefaultPageSize: cfg.Limits.Default,
		MaxPageSize:     cfg.Limits.Max,
		MaxDepth:        cfg.Limits.MaxDepth,
		MaxNodes:        cfg.Limits.MaxNodes,
	})
	reconcile := services.NewReconcileService(store, metrics, logg)
	comments := services.NewCommentService(store, subjects, tree, logg)
	votes := services.NewVoteService(store, cfg.Votes.MaxAttempts, reconcile, metrics, logg)

	// 异步校准队列 + 每日定时全量校准
	go reconcile.Run(ctx)
	if cfg.Reconcile.Scheduled {
		reconcile.StartScheduled(ctx, cfg.Reconcile.Hour)
	}

	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := router.New(router.Deps{
		DB:         gdb,
		Comments:   comments,
		Votes:      votes,
		Reconcile:  reconcile,
		AdminToken: cfg.Admin.Token,
		Gatherer:   prometheus.DefaultGatherer,
	}, router.Options{
		Log:                 logg,
		SessionName:         cfg.Session.Name,
		SessionSecret:       cfg.Session.Secret,
		TrustGatewayHeaders: cfg.Voter.TrustGatewayHeaders,
		CORSOrigins:         cfg.CORS.AllowOrigins,
		RequestTimeout:      cfg.HTTP.RequestTimeout,
		HTTPMetrics:         middleware.NewHTTPMetrics(prometheus.DefaultRegisterer),
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logg.Info("AlumniLink server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("HTTP server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logg.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("HTTP server shutdown failed", "error", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
