package main

import (
	"context"
	"net/http"
	"os"

	"github.com/galleryve/galleryve-backend/api/routes"
	"github.com/galleryve/galleryve-backend/internal/accessgrants"
	"github.com/galleryve/galleryve-backend/internal/artists"
	"github.com/galleryve/galleryve-backend/internal/audit"
	"github.com/galleryve/galleryve-backend/internal/auth"
	"github.com/galleryve/galleryve-backend/internal/customers"
	"github.com/galleryve/galleryve-backend/internal/history"
	"github.com/galleryve/galleryve-backend/internal/rbac"
	"github.com/galleryve/galleryve-backend/internal/transactions"
	"github.com/galleryve/galleryve-backend/internal/users"
	"github.com/galleryve/galleryve-backend/pkg/auth/session"
	"github.com/galleryve/galleryve-backend/pkg/config"
	"github.com/galleryve/galleryve-backend/pkg/db"
	"github.com/galleryve/galleryve-backend/pkg/logger"
	"github.com/galleryve/galleryve-backend/pkg/masking"
	"github.com/galleryve/galleryve-backend/pkg/migrate"
	"github.com/galleryve/galleryve-backend/pkg/redis"
	"github.com/joho/godotenv"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	maskOpts := masking.Options{CurrencySuffix: cfg.Masking.CurrencySuffix}

	rbacService, err := rbac.NewService(rbac.NewRepository(gormDB), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create rbac service", err)
		os.Exit(1)
	}
	for key, description := range rbac.WellKnownPermissions {
		if _, err := rbacService.EnsurePermission(context.Background(), key, description); err != nil {
			logg.Error(context.Background(), "failed to seed permission registry", err)
			os.Exit(1)
		}
	}

	auditService, err := audit.NewService(audit.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}

	historyService, err := history.NewService(history.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create history service", err)
		os.Exit(1)
	}

	grantsService, err := accessgrants.NewService(
		accessgrants.NewRepository(gormDB),
		dbClient,
		rbacService,
		auditService,
		cfg.Grants,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create access grant service", err)
		os.Exit(1)
	}

	userRepo := users.NewRepository(gormDB)

	usersService, err := users.NewService(userRepo, dbClient, rbacService, auditService, cfg.Password)
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	customersService, err := customers.NewService(
		customers.NewRepository(gormDB),
		dbClient,
		rbacService,
		auditService,
		historyService,
		grantsService,
		maskOpts,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create customers service", err)
		os.Exit(1)
	}

	transactionsService, err := transactions.NewService(
		transactions.NewRepository(gormDB),
		dbClient,
		rbacService,
		auditService,
		historyService,
		grantsService,
		maskOpts,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create transactions service", err)
		os.Exit(1)
	}

	artistsService, err := artists.NewService(
		artists.NewRepository(gormDB),
		dbClient,
		rbacService,
		auditService,
		historyService,
		maskOpts,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create artists service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, routes.Services{
			Auth:           authService,
			Users:          usersService,
			RBAC:           rbacService,
			Customers:      customersService,
			Transactions:   transactionsService,
			Artists:        artistsService,
			AccessRequests: grantsService,
			Audit:          auditService,
			History:        historyService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
