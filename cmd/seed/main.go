package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/logger"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	force := pflag.Bool("force", false, "insert the demo catalogue even if featured products already exist")
	pflag.Parse()

	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	productRepo, closeStore, err := openProductRepository(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to open store", zap.Error(err))
		os.Exit(1)
	}
	defer closeStore()

	created, err := seed(ctx, service.NewProductService(productRepo, log), *force)
	if err != nil {
		log.Error("Seeding failed", zap.Error(err), zap.Int("created", created))
		closeStore()
		os.Exit(1)
	}

	log.Info("Database seeded", zap.Int("created", created), zap.String("store", cfg.Store.Driver))
}

// seed inserts the demo catalogue through the product service. An already
// seeded catalogue is left alone unless force is set.
func seed(ctx context.Context, products service.ProductService, force bool) (int, error) {
	if !force {
		existing, err := products.ListFeatured(ctx, 1)
		if err != nil {
			return 0, fmt.Errorf("failed to inspect catalogue: %w", err)
		}
		if len(existing) > 0 {
			return 0, nil
		}
	}

	created := 0
	for _, item := range catalogue {
		if _, err := products.CreateProduct(ctx, item.input()); err != nil {
			return created, fmt.Errorf("failed to create %q: %w", item.name, err)
		}
		created++
	}
	return created, nil
}

func openProductRepository(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.ProductRepository, func(), error) {
	if cfg.Store.Driver == config.StoreDriverMongo {
		mongoService, err := database.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = mongoService.Close() }
		if err := repository.EnsureMongoIndexes(ctx, mongoService.DB()); err != nil {
			closeFn()
			return nil, nil, err
		}
		return repository.NewMongoProductRepository(mongoService.DB()), closeFn, nil
	}

	dbService, err := database.New(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() { _ = dbService.Close() }
	if err := database.RunMigrations(dbService.DB(), cfg.Database.MigrationsDir, log); err != nil {
		closeFn()
		return nil, nil, err
	}
	return repository.NewProductRepository(dbService.DB()), closeFn, nil
}
