package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openpricemap/openpricemap/backend/internal/adapters/cache"
	"github.com/openpricemap/openpricemap/backend/internal/adapters/database"
	"github.com/openpricemap/openpricemap/backend/internal/adapters/geocoding"
	"github.com/openpricemap/openpricemap/backend/internal/application/services"
	"github.com/openpricemap/openpricemap/backend/internal/domain/providers"
	"github.com/openpricemap/openpricemap/backend/internal/domain/repositories"
	"github.com/openpricemap/openpricemap/backend/internal/infrastructure/clients/postgres"
	"github.com/openpricemap/openpricemap/backend/internal/infrastructure/clients/redis"
	"github.com/openpricemap/openpricemap/backend/internal/infrastructure/observability"
	"github.com/openpricemap/openpricemap/backend/internal/ingest"
	"github.com/openpricemap/openpricemap/backend/pkg/config"
)

func main() {
	var intervalFlag string
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for the pipeline (e.g. 24h)")
	flag.Parse()

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("PIPELINE_INTERVAL"))
	}

	var interval time.Duration
	if intervalValue != "" {
		parsed, err := time.ParseDuration(intervalValue)
		if err != nil || parsed <= 0 {
			log.Fatal().Str("interval", intervalValue).Msg("invalid interval")
		}
		interval = parsed
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := runOnce(ctx); err != nil {
			log.Error().Err(err).Msg("pipeline run failed")
		}

		if interval <= 0 {
			break
		}

		log.Info().Dur("interval", interval).Msg("pipeline run complete, waiting for next run")

		select {
		case <-ctx.Done():
			log.Info().Msg("aggregator shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func runOnce(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	observability.InitLogger("openpricemap-aggregator", cfg.Server.Env)

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	// Without Redis the run lock falls back to an in-process lock, which
	// still prevents overlap within this aggregator.
	var locker providers.RunLocker
	var epoch providers.TileEpochProvider
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, using in-process run lock")
		locker = cache.NewLocalRunLock()
	} else {
		defer redisClient.Close()
		locker = cache.NewRedisRunLock(redisClient)
		epoch = cache.NewRedisTileEpoch(redisClient)
	}

	resolver, err := geocoding.LoadPostcodeIndex(cfg.Pipeline.PostcodesPath)
	if err != nil {
		return err
	}

	cellRepo := database.NewCellAdapter(pgClient, cfg.Pipeline.Metric)
	runRepo := database.NewRunAdapter(pgClient)

	aggregator := services.NewAggregationService(cellRepo, runRepo, resolver, locker, cfg.Pipeline)
	normalizer := services.NewNormalizerService(cellRepo)

	scope := repositories.Scope{}
	if cfg.Pipeline.NormalizerScope != "" && cfg.Pipeline.NormalizerScope != "global" {
		scope.Country = cfg.Pipeline.NormalizerScope
	}

	reader := ingest.NewPricePaidReader(cfg.Pipeline.TransactionsPath)

	for _, resolution := range cfg.Pipeline.Resolutions {
		run, err := aggregator.Run(ctx, reader, resolution)
		if err != nil {
			return err
		}

		normalized, err := normalizer.Run(ctx, resolution, scope)
		if err != nil {
			return err
		}

		log.Info().
			Str("run_id", run.ID).
			Int("resolution", resolution).
			Int("cells", run.Stats.Cells).
			Int("normalized", normalized).
			Msg("resolution pass complete")
	}

	if epoch != nil {
		if bumped, err := epoch.Bump(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to bump tile epoch")
		} else {
			log.Info().Int64("epoch", bumped).Msg("tile epoch bumped")
		}
	}

	return nil
}
