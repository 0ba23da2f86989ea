package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/galleryve/galleryve-backend/internal/accessgrants"
	"github.com/galleryve/galleryve-backend/internal/artists"
	"github.com/galleryve/galleryve-backend/internal/audit"
	"github.com/galleryve/galleryve-backend/internal/cron"
	"github.com/galleryve/galleryve-backend/internal/customers"
	"github.com/galleryve/galleryve-backend/internal/transactions"
	"github.com/galleryve/galleryve-backend/pkg/config"
	"github.com/galleryve/galleryve-backend/pkg/db"
	"github.com/galleryve/galleryve-backend/pkg/logger"
	"github.com/galleryve/galleryve-backend/pkg/metrics"
	"github.com/galleryve/galleryve-backend/pkg/migrate"
	"github.com/galleryve/galleryve-backend/pkg/redis"
)

const lockKeyFormat = "gv:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gormDB := dbClient.DB()

	grantPurge, err := cron.NewGrantPurgeJob(cron.GrantPurgeJobParams{
		Logger:     logg,
		Repository: accessgrants.NewRepository(gormDB),
		Retention:  cfg.Retention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create grant purge job", err)
		os.Exit(1)
	}

	recordPurge, err := cron.NewRecordPurgeJob(cron.RecordPurgeJobParams{
		Logger: logg,
		Purgers: map[string]cron.SoftDeletedPurger{
			"customers":    customers.NewRepository(gormDB),
			"transactions": transactions.NewRepository(gormDB),
			"artists":      artists.NewRepository(gormDB),
		},
		Retention: cfg.Retention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create record purge job", err)
		os.Exit(1)
	}

	auditRetention, err := cron.NewAuditRetentionJob(cron.AuditRetentionJobParams{
		Logger:     logg,
		Repository: audit.NewRepository(gormDB),
		Retention:  cfg.Retention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create audit retention job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(grantPurge, recordPurge, auditRetention)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Retention.SweepInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
