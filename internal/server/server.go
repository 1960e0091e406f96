package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/lock"
	"storefront/internal/metrics"
	custommiddleware "storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Backends are the connections the server routes requests through.
// Exactly one of SQL and Mongo is set, matching the configured store driver.
type Backends struct {
	SQL       database.Service
	Mongo     *database.MongoService
	Redis     *redis.Client
	Publisher events.Publisher
}

type healthChecker interface {
	Health(ctx context.Context) map[string]string
}

type stores struct {
	products repository.ProductRepository
	carts    repository.CartRepository
	reviews  repository.ReviewRepository
	tx       repository.Transactor
	health   healthChecker
}

type Server struct {
	*http.Server
	config   *config.Config
	logger   *zap.Logger
	backends Backends
	registry *prometheus.Registry
}

func NewServer(cfg *config.Config, logger *zap.Logger, backends Backends) (*Server, error) {
	st, err := newStores(cfg.Store.Driver, backends)
	if err != nil {
		return nil, err
	}

	locker, err := newLocker(cfg.Lock, backends.Redis)
	if err != nil {
		return nil, err
	}

	if backends.Publisher == nil {
		backends.Publisher = events.NewLogPublisher(logger)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, !cfg.Server.IsProduction()))

	if cfg.RateLimit.Enabled {
		if backends.Redis == nil {
			return nil, errors.New("rate limiting requires a redis connection")
		}
		router.Use(custommiddleware.RateLimitMiddleware(backends.Redis, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         "storefront:ratelimit",
		}, logger))
	}

	router.Get("/health", healthHandler(st.health))
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Initialize services
	cartService := service.NewCartService(st.products, st.carts, st.tx, locker, m, logger)
	reviewService := service.NewReviewService(st.products, st.reviews, st.tx, locker, backends.Publisher, m, logger)
	productService := service.NewProductService(st.products, logger)

	// Create auth middleware
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)

	// Register routes
	transport.NewCartHandler(cartService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewReviewHandler(reviewService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewProductHandler(productService, logger).RegisterRoutes(router, authMiddleware)

	var handler http.Handler = router
	if cfg.Tracing.Enabled {
		handler = otelhttp.NewHandler(router, cfg.Tracing.ServiceName)
	}

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      handler,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:   cfg,
		logger:   logger,
		backends: backends,
		registry: registry,
	}

	return server, nil
}

func newStores(driver string, backends Backends) (stores, error) {
	switch driver {
	case config.StoreDriverPostgres:
		if backends.SQL == nil {
			return stores{}, errors.New("postgres store driver requires a database connection")
		}
		db := backends.SQL.DB()
		return stores{
			products: repository.NewProductRepository(db),
			carts:    repository.NewCartRepository(db),
			reviews:  repository.NewReviewRepository(db),
			tx:       repository.NewTransactor(db),
			health:   backends.SQL,
		}, nil
	case config.StoreDriverMongo:
		if backends.Mongo == nil {
			return stores{}, errors.New("mongo store driver requires a mongo connection")
		}
		db := backends.Mongo.DB()
		return stores{
			products: repository.NewMongoProductRepository(db),
			carts:    repository.NewMongoCartRepository(db),
			reviews:  repository.NewMongoReviewRepository(db),
			tx:       repository.NewMongoTransactor(backends.Mongo.Client()),
			health:   backends.Mongo,
		}, nil
	default:
		return stores{}, fmt.Errorf("unknown store driver %q", driver)
	}
}

func newLocker(cfg config.LockConfig, client *redis.Client) (lock.Locker, error) {
	opts := lock.Options{TTL: cfg.TTL, Wait: cfg.Wait, RetryInterval: cfg.RetryInterval}

	switch cfg.Backend {
	case config.LockBackendLocal:
		return lock.NewLocalLocker(opts), nil
	case config.LockBackendRedis:
		if client == nil {
			return nil, errors.New("redis lock backend requires a redis connection")
		}
		locker, err := lock.NewRedisLocker(client, opts)
		if err != nil {
			return nil, err
		}
		return locker, nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.Backend)
	}
}

func healthHandler(store healthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		stats := store.Health(ctx)
		if stats["status"] != "up" {
			custommiddleware.RespondWithJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status": "down",
				"store":  stats,
			})
			return
		}
		custommiddleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"store":  stats,
		})
	}
}

// Registry exposes the server's metrics registry
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	var errs []error
	if s.backends.Publisher != nil {
		if err := s.backends.Publisher.Close(); err != nil {
			s.logger.Error("Failed to close event publisher", zap.Error(err))
			errs = append(errs, err)
		}
	}
	if s.backends.Redis != nil {
		if err := s.backends.Redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
			errs = append(errs, err)
		}
	}
	if s.backends.SQL != nil {
		if err := s.backends.SQL.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
			errs = append(errs, err)
		}
	}
	if s.backends.Mongo != nil {
		if err := s.backends.Mongo.Close(); err != nil {
			s.logger.Error("Failed to close mongo connection", zap.Error(err))
			errs = append(errs, err)
		}
	}

	s.logger.Sync()
	return errors.Join(errs...)
}
