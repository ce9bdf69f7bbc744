package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/smartcanteen/canteen-backend/api/routes"
	"github.com/smartcanteen/canteen-backend/internal/auth"
	"github.com/smartcanteen/canteen-backend/internal/catalog"
	"github.com/smartcanteen/canteen-backend/internal/inventory"
	"github.com/smartcanteen/canteen-backend/internal/notifications"
	"github.com/smartcanteen/canteen-backend/internal/orders"
	"github.com/smartcanteen/canteen-backend/internal/payments"
	"github.com/smartcanteen/canteen-backend/internal/users"
	"github.com/smartcanteen/canteen-backend/pkg/config"
	"github.com/smartcanteen/canteen-backend/pkg/db"
	"github.com/smartcanteen/canteen-backend/pkg/logger"
	"github.com/smartcanteen/canteen-backend/pkg/metrics"
	"github.com/smartcanteen/canteen-backend/pkg/migrate"
	"github.com/smartcanteen/canteen-backend/pkg/outbox"
	"github.com/smartcanteen/canteen-backend/pkg/redis"
	"github.com/smartcanteen/canteen-backend/pkg/security"
)

const shutdownTimeout = 15 * time.Second

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

	registry := metrics.NewRegistry()

	deps, err := buildDependencies(cfg, logg, dbClient, redisClient, registry)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	if cfg.FeatureFlags.SeedTags {
		if _, err := deps.catalog.SeedDefaultTags(context.Background()); err != nil {
			logg.Error(context.Background(), "failed to seed default tags", err)
			os.Exit(1)
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps.router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logg.Info(ctx, "shutting down api server")
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

type dependencies struct {
	router  routes.Dependencies
	catalog *catalog.Service
}

func buildDependencies(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, registry *prometheus.Registry) (*dependencies, error) {
	conn := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	orderMetrics := metrics.NewOrderMetrics(registry)

	userRepo := users.NewRepository(conn)
	usersSvc, err := users.NewService(userRepo)
	if err != nil {
		return nil, err
	}

	authSvc, err := auth.NewService(auth.ServiceParams{
		UserRepo:  userRepo,
		Verifier:  security.NewHasher(cfg.Password),
		JWTConfig: cfg.JWT,
		Logger:    logg,
	})
	if err != nil {
		return nil, err
	}

	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn), redisClient, logg)
	if err != nil {
		return nil, err
	}

	guard := inventory.NewGuard(orderMetrics)
	inventorySvc, err := inventory.NewService(conn, dbClient, guard, logg)
	if err != nil {
		return nil, err
	}

	notifySvc, err := notifications.NewService(notifications.NewRepository(conn), emitter)
	if err != nil {
		return nil, err
	}

	paymentsSvc, err := payments.NewService(payments.NewRepository(conn), dbClient, emitter, logg)
	if err != nil {
		return nil, err
	}

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:          orders.NewRepository(conn),
		TxRunner:      dbClient,
		Users:         usersSvc,
		Catalog:       catalogSvc,
		Inventory:     guard,
		Notifications: notifySvc,
		Payments:      paymentsSvc,
		Outbox:        emitter,
		Metrics:       orderMetrics,
		Logger:        logg,
	})
	if err != nil {
		return nil, err
	}

	return &dependencies{
		catalog: catalogSvc,
		router: routes.Dependencies{
			DB:            dbClient,
			Cache:         redisClient,
			Registry:      registry,
			Auth:          authSvc,
			Users:         usersSvc,
			Catalog:       catalogSvc,
			Inventory:     inventorySvc,
			Orders:        ordersSvc,
			Payments:      paymentsSvc,
			Notifications: notifySvc,
		},
	}, nil
}
