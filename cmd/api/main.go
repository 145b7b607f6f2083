package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openpricemap/openpricemap/backend/internal/adapters/cache"
	"github.com/openpricemap/openpricemap/backend/internal/adapters/database"
	"github.com/openpricemap/openpricemap/backend/internal/api/handlers"
	"github.com/openpricemap/openpricemap/backend/internal/api/middleware"
	"github.com/openpricemap/openpricemap/backend/internal/api/routes"
	"github.com/openpricemap/openpricemap/backend/internal/application/services"
	"github.com/openpricemap/openpricemap/backend/internal/domain/providers"
	"github.com/openpricemap/openpricemap/backend/internal/infrastructure/clients/postgres"
	"github.com/openpricemap/openpricemap/backend/internal/infrastructure/clients/redis"
	"github.com/openpricemap/openpricemap/backend/internal/infrastructure/observability"
	"github.com/openpricemap/openpricemap/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	observability.InitLogger("openpricemap-api", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	// The API degrades gracefully without Redis: no response cache, no
	// epoch-based invalidation, but tiles still serve.
	var cacheProvider providers.CacheProvider
	var epochProvider providers.TileEpochProvider
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, serving without response cache")
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient)
		epochProvider = cache.NewRedisTileEpoch(redisClient)
	}

	cellRepo := database.NewCellAdapter(pgClient, cfg.Pipeline.Metric)
	runRepo := database.NewRunAdapter(pgClient)

	tileService := services.NewTileService(cellRepo, cfg.Tiles)

	tileHandler := handlers.NewTileHandler(tileService)
	runHandler := handlers.NewRunHandler(runRepo, cfg.Pipeline.Source, cfg.Pipeline.Metric)

	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider, epochProvider)
	}

	router := routes.NewRouter(tileHandler, runHandler, cacheMiddleware)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupRoutes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("tile API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
