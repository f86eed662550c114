package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fieldstock/fieldstock-backend/api/routes"
	"github.com/fieldstock/fieldstock-backend/internal/approval"
	"github.com/fieldstock/fieldstock-backend/internal/catalog"
	"github.com/fieldstock/fieldstock-backend/internal/stock"
	"github.com/fieldstock/fieldstock-backend/internal/usage"
	"github.com/fieldstock/fieldstock-backend/pkg/bigquery"
	"github.com/fieldstock/fieldstock-backend/pkg/config"
	"github.com/fieldstock/fieldstock-backend/pkg/db"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
	"github.com/fieldstock/fieldstock-backend/pkg/metrics"
	"github.com/fieldstock/fieldstock-backend/pkg/migrate"
	"github.com/fieldstock/fieldstock-backend/pkg/outbox"
	"github.com/fieldstock/fieldstock-backend/pkg/pubsub"
	"github.com/fieldstock/fieldstock-backend/pkg/redis"
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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	bqClient, err := bigquery.NewClient(context.Background(), cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap bigquery", err)
		os.Exit(1)
	}
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing bigquery", err)
		}
	}()

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	stockRepo := stock.NewRepository(dbClient.DB())
	stockService, err := stock.NewService(stock.ServiceParams{
		DB:           dbClient,
		Repo:         stockRepo,
		Catalog:      catalogService,
		Outbox:       outboxService,
		Logger:       logg,
		MaxRetries:   cfg.Approval.MaxRetries,
		RetryBackoff: cfg.Approval.RetryBackoff,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stock service", err)
		os.Exit(1)
	}

	usageRepo := usage.NewRepository(dbClient.DB())
	usageService, err := usage.NewService(usage.ServiceParams{
		DB:      dbClient,
		Repo:    usageRepo,
		Catalog: catalogService,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create usage service", err)
		os.Exit(1)
	}

	approvalService, err := approval.NewService(approval.ServiceParams{
		DB:           dbClient,
		Usage:        usageRepo,
		Stock:        stockRepo,
		Catalog:      catalogService,
		Outbox:       outboxService,
		Metrics:      metrics.NewApprovalMetrics(prometheus.DefaultRegisterer),
		Logger:       logg,
		MaxRetries:   cfg.Approval.MaxRetries,
		RetryBackoff: cfg.Approval.RetryBackoff,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create approval service", err)
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

	handler := routes.NewRouter(cfg, logg, routes.Deps{
		Redis:    redisClient,
		DB:       dbClient,
		PubSub:   pubsubClient,
		BigQuery: bqClient,
		Catalog:  catalogService,
		Stock:    stockService,
		Usage:    usageService,
		Approval: approvalService,
	})

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
