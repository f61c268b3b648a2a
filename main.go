// package main provides the entry point for the tenancy-backend microservice: user accounts,
// organizations and the membership coordinator behind a REST and GraphQL API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ortelius/tenancy-backend/database"
	membership "github.com/ortelius/tenancy-backend/events/modules/membership"
	"github.com/ortelius/tenancy-backend/internal/api"
	"github.com/ortelius/tenancy-backend/internal/config"
	"github.com/ortelius/tenancy-backend/internal/kafka"
	"github.com/ortelius/tenancy-backend/internal/logging"
	"github.com/ortelius/tenancy-backend/internal/security"
	"github.com/ortelius/tenancy-backend/internal/seed"
	"github.com/ortelius/tenancy-backend/internal/services"
	"github.com/ortelius/tenancy-backend/restapi"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger not built yet
		logging.Must("info", "console").Fatal("Failed to load configuration", zap.Error(err))
	}

	logger := logging.Must(cfg.LogLevel, cfg.LogEncoding)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize store", zap.Error(err))
	}

	tokens, err := security.NewTokenService([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.TokenTTL())
	if err != nil {
		logger.Fatal("Failed to initialize token service", zap.Error(err))
	}
	accounts := services.NewAccounts(store, security.NewHasher(cfg.BcryptCost), tokens, logger)

	coordOpts := []services.CoordinatorOption{services.WithOwnerRemoval(cfg.AllowOwnerRemoval)}
	kafkaOpts := kafka.Options{
		Brokers:  cfg.KafkaBrokersList(),
		Topic:    cfg.KafkaTopic,
		GroupID:  cfg.KafkaGroupID,
		Username: cfg.KafkaAPIKey,
		Password: cfg.KafkaAPISecret,
	}
	if len(kafkaOpts.Brokers) > 0 {
		producer := membership.NewProducer(kafkaOpts.Brokers, kafkaOpts.Topic, kafka.NewTransport(kafkaOpts))
		defer producer.Close()
		coordOpts = append(coordOpts, services.WithEventPublisher(producer))
	}
	coordinator := services.NewCoordinator(store, logger, coordOpts...)

	if len(kafkaOpts.Brokers) > 0 {
		if err := kafka.RunEventProcessor(ctx, kafkaOpts, coordinator, logger); err != nil {
			logger.Warn("Membership event processor disabled", zap.Error(err))
		}
	}

	if cfg.SeedFile != "" {
		applySeed(ctx, cfg.SeedFile, accounts, coordinator, store, logger)
	}

	app, err := api.NewFiberApp(restapi.Deps{
		Accounts:    accounts,
		Coordinator: coordinator,
		Logger:      logger,
	}, api.Options{
		AppName:        "tenancy-backend API v1.0",
		CORSOrigins:    cfg.CORSOriginsList(),
		RequestTimeout: cfg.Timeout(),
		AccessLog:      cfg.Env != "test",
	})
	if err != nil {
		logger.Fatal("Failed to create GraphQL schema", zap.Error(err))
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("Starting server", zap.String("port", cfg.Port), zap.String("store", cfg.StoreDriver))
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
	logger.Info("Server stopped")
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (database.Store, error) {
	if cfg.StoreDriver == config.StoreMemory {
		logger.Warn("Using in-memory store; data is lost on restart")
		return database.NewMemoryStore(), nil
	}

	conn, err := database.InitializeDatabase(ctx, database.Options{
		Endpoint: cfg.ArangoEndpoint(),
		User:     cfg.ArangoUser,
		Password: cfg.ArangoPass,
		Database: cfg.ArangoDatabase,
	}, logger)
	if err != nil {
		return nil, err
	}
	return database.NewArangoStore(conn, logger), nil
}

func applySeed(ctx context.Context, path string, accounts *services.Accounts, coordinator *services.Coordinator, store database.Store, logger *zap.Logger) {
	seedCfg, err := seed.Load(path)
	if err != nil {
		logger.Error("Failed to load seed file", zap.String("path", path), zap.Error(err))
		return
	}

	applier := &seed.Applier{
		Accounts:    accounts,
		Coordinator: coordinator,
		Lookup:      store.GetUserByEmail,
		Logger:      logger,
	}
	result, err := applier.Apply(ctx, seedCfg)
	if err != nil {
		logger.Error("Seed apply failed", zap.Error(err))
		return
	}
	for _, msg := range result.Errors {
		logger.Warn("Seed entry failed", zap.String("detail", msg))
	}
}
