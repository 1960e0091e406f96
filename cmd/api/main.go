package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/logger"
	"storefront/internal/observability"
	"storefront/internal/repository"
	"storefront/internal/server"

	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *server.Server, shutdownTracing observability.ShutdownFunc, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// In-flight requests get 30 seconds to finish
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Close server resources
	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	if err := shutdownTracing(ctx); err != nil {
		logger.Error("Failed to flush traces", zap.Error(err))
	}

	logger.Info("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

// connectBackends opens the store selected by STORE_DRIVER plus the optional
// Redis and Kafka connections
func connectBackends(ctx context.Context, cfg *config.Config, log *zap.Logger) (server.Backends, error) {
	var backends server.Backends

	switch cfg.Store.Driver {
	case config.StoreDriverMongo:
		mongoService, err := database.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return backends, err
		}
		backends.Mongo = mongoService

		if err := repository.EnsureMongoIndexes(ctx, mongoService.DB()); err != nil {
			return backends, err
		}
		log.Info("MongoDB indexes ensured", zap.String("database", cfg.Mongo.Database))
	default:
		dbService, err := database.New(ctx, cfg.Database)
		if err != nil {
			return backends, err
		}
		backends.SQL = dbService
		log.Info("Database health check", zap.Any("health", dbService.Health(ctx)))

		if err := database.RunMigrations(dbService.DB(), cfg.Database.MigrationsDir, log); err != nil {
			return backends, err
		}
		log.Info("Database migrations completed successfully")
	}

	if cfg.Lock.Backend == config.LockBackendRedis || cfg.RateLimit.Enabled {
		redisClient, err := database.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			return backends, err
		}
		backends.Redis = redisClient
	}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			return backends, err
		}
		backends.Publisher = publisher
		log.Info("Publishing review events to Kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	return backends, nil
}

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting storefront API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Driver),
		zap.String("lock_backend", cfg.Lock.Backend),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	shutdownTracing, err := observability.InitTracing(startCtx, cfg.Tracing, cfg.Server.Env, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	backends, err := connectBackends(startCtx, cfg, log)
	if err != nil {
		log.Fatal("Failed to connect backends", zap.Error(err))
	}

	// Create server
	srv, err := server.NewServer(cfg, log, backends)
	if err != nil {
		log.Fatal("Failed to create server", zap.Error(err))
	}

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(srv, shutdownTracing, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info("Graceful shutdown complete")
}
