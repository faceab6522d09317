// main.go
package main

import (
	"context"
	"log"

	"movers-dispatch/cmd"
	"movers-dispatch/internal/data/repository"
	"movers-dispatch/internal/usecase"
	"movers-dispatch/internal/wire"
	"movers-dispatch/pkg/cache"
	"movers-dispatch/pkg/database"
	"movers-dispatch/pkg/events"
	"movers-dispatch/pkg/geocode"
	"movers-dispatch/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	// Connect to both stores
	core1, err := database.InitDB(config.Core1)
	if err != nil {
		logger.Fatal("Failed to connect to core1 database", zap.Error(err))
	}
	defer core1.Close()

	core2, err := database.InitDB(config.Core2)
	if err != nil {
		logger.Fatal("Failed to connect to core2 database", zap.Error(err))
	}
	defer core2.Close()

	logger.Info("Databases connected successfully")

	repos := repository.NewRepository(core1, core2, logger)

	// Optional collaborators; each one is skipped when not configured
	ctx := context.Background()
	var deps usecase.Dependencies

	if config.Redis.Addr != "" {
		client, err := cache.NewRedis(ctx, config.Redis.Addr)
		if err != nil {
			logger.Warn("Redis unavailable, ranking will scan the database", zap.Error(err))
		} else {
			defer client.Close()
			deps.Locator = cache.NewDriverGeoIndex(client, logger)
			logger.Info("Driver geo index enabled", zap.String("addr", config.Redis.Addr))
		}
	}

	if config.Maps.APIKey != "" {
		geocoder, err := geocode.NewGoogleGeocoder(config.Maps.APIKey, config.Maps.Region)
		if err != nil {
			logger.Warn("Geocoder disabled", zap.Error(err))
		} else {
			deps.Geocoder = geocoder
		}
	}

	if config.RabbitMQ.URL != "" {
		publisher, err := events.NewPublisher(config.RabbitMQ.URL, config.RabbitMQ.Exchange, logger)
		if err != nil {
			logger.Warn("Event publishing disabled", zap.Error(err))
		} else {
			defer publisher.Close()
			deps.Events = publisher
		}
	}

	// Wire all dependencies
	app := wire.Wiring(repos, deps, config, logger)

	if deps.Locator != nil {
		n, err := app.Service.Location.WarmIndex(ctx)
		if err != nil {
			logger.Warn("Failed to warm driver geo index", zap.Error(err), zap.Int("indexed", n))
		} else {
			logger.Info("Driver geo index warmed", zap.Int("drivers", n))
		}
	}

	// Start server
	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	if err := cmd.APIServer(app.Router, config.App.Port, logger); err != nil {
		logger.Error("Server error", zap.Error(err))
	}
}
