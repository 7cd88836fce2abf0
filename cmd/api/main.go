package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/onionpop/config"
	"github.com/GoSim-25-26J-441/onionpop/internal/bootstrap"
	cronjob "github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/cron"
	cchttp "github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/http"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/repository"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/service"
	"github.com/GoSim-25-26J-441/onionpop/internal/metrics"
)

const serviceName = "onionpop"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := bootstrap.NewLogger(cfg.App.LogLevel, cfg.App.Environment, cfg.App.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	bootstrap.SetGinMode(cfg.App.Environment)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewRegistry()

	var (
		pool      *pgxpool.Pool
		recorder  service.DecisionRecorder
		decisions cchttp.DecisionReader
	)
	if cfg.Database.DSN != "" {
		opts := bootstrap.DBOptions{DSN: cfg.Database.DSN}
		if pool, err = bootstrap.OpenDB(ctx, opts); err != nil {
			logger.Fatal("database", zap.Error(err))
		}
		defer pool.Close()

		sqlDB, err := bootstrap.OpenSQL(ctx, opts)
		if err != nil {
			logger.Fatal("database", zap.Error(err))
		}
		defer sqlDB.Close()

		repo := repository.NewDecisionRepository(sqlDB)
		recorder, decisions = repo, repo
	} else {
		logger.Warn("DB_DSN not set, decisions will not be recorded")
	}

	var rdb *redis.Client
	if cfg.Model.Store == "redis" {
		rdb, err = bootstrap.OpenRedis(ctx, bootstrap.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
	}

	store, err := bootstrap.OpenModelStore(ctx, cfg, rdb)
	if err != nil {
		logger.Fatal("model store", zap.Error(err))
	}

	svc := service.NewClassificationService(store, recorder, m, logger)
	if _, err := svc.Refresh(ctx, cfg.Model.Name); err != nil {
		logger.Warn("no model at startup, classification disabled until one is published",
			zap.String("model", cfg.Model.Name), zap.Error(err))
	}

	sched := cronjob.NewScheduler(svc, cfg.Model.Name, logger)
	if err := sched.Start(cfg.Model.ReloadCron); err != nil {
		logger.Fatal("reload scheduler", zap.Error(err))
	}
	defer sched.Stop()

	r := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:    serviceName,
		Version:        cfg.App.Version,
		CORSOrigins:    cfg.Server.CORSOrigins,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		CumulPoints:    cfg.Model.CumulPoints,
		DB:             pool,
		Redis:          rdb,
		Service:        svc,
		Decisions:      decisions,
		Metrics:        m,
		Log:            logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
