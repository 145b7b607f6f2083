package services

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/openpricemap/openpricemap/backend/internal/domain/entities"
	"github.com/openpricemap/openpricemap/backend/internal/domain/providers"
	"github.com/openpricemap/openpricemap/backend/internal/domain/repositories"
	"github.com/openpricemap/openpricemap/backend/internal/spatial"
	"github.com/openpricemap/openpricemap/backend/pkg/config"
)

const runLockTTL = time.Hour

// TransactionSource supplies the transactions of one pipeline run
type TransactionSource interface {
	Stream(fn func(tx *entities.Transaction)) error
}

// AggregationService bins transactions onto the hex grid and writes per-cell
// summaries. One run fully replaces the prior aggregates for its
// (source, metric) key.
type AggregationService struct {
	cells    repositories.CellRepository
	runs     repositories.RunRepository
	geocoder providers.GeocodeProvider
	locker   providers.RunLocker
	cfg      config.PipelineConfig
	now      func() time.Time
}

// NewAggregationService creates a new aggregation service
func NewAggregationService(
	cells repositories.CellRepository,
	runs repositories.RunRepository,
	geocoder providers.GeocodeProvider,
	locker providers.RunLocker,
	cfg config.PipelineConfig,
) *AggregationService {
	return NewAggregationServiceWithClock(cells, runs, geocoder, locker, cfg, time.Now)
}

// NewAggregationServiceWithClock allows overriding the clock (used for tests)
func NewAggregationServiceWithClock(
	cells repositories.CellRepository,
	runs repositories.RunRepository,
	geocoder providers.GeocodeProvider,
	locker providers.RunLocker,
	cfg config.PipelineConfig,
	now func() time.Time,
) *AggregationService {
	return &AggregationService{
		cells:    cells,
		runs:     runs,
		geocoder: geocoder,
		locker:   locker,
		cfg:      cfg,
		now:      now,
	}
}

type cellAccumulator struct {
	prices    []float64
	firstSeen time.Time
	lastSeen  time.Time
	country   string
	region    string
}

// Run executes one full-batch aggregation pass at the given resolution.
// Per-row failures are recorded in the run statistics; a persistence failure
// aborts the whole batch and marks the run failed.
func (s *AggregationService) Run(ctx context.Context, source TransactionSource, resolution int) (*entities.PipelineRun, error) {
	release, err := s.locker.Acquire(ctx, s.cfg.Source+":"+s.cfg.Metric, runLockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	run := &entities.PipelineRun{
		ID:         uuid.NewString(),
		Source:     s.cfg.Source,
		Metric:     s.cfg.Metric,
		Resolution: resolution,
		Status:     entities.RunStatusRunning,
		StartedAt:  s.now().UTC(),
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, err
	}

	accumulators := make(map[string]*cellAccumulator)
	stats := entities.RunStats{}

	err = source.Stream(func(tx *entities.Transaction) {
		if tx.Price <= s.cfg.PriceFloor || tx.Price >= s.cfg.PriceCeiling {
			stats.SkippedPrice++
			return
		}

		resolved, ok := s.geocoder.Resolve(tx.Postcode)
		if !ok {
			stats.SkippedGeocode++
			return
		}

		cellID := spatial.CellFor(resolved.Location.Latitude, resolved.Location.Longitude, resolution)
		acc, exists := accumulators[cellID]
		if !exists {
			acc = &cellAccumulator{firstSeen: tx.Date, lastSeen: tx.Date, country: resolved.Country}
			accumulators[cellID] = acc
		}

		acc.prices = append(acc.prices, tx.Price)
		if tx.Date.Before(acc.firstSeen) {
			acc.firstSeen = tx.Date
		}
		if tx.Date.After(acc.lastSeen) {
			acc.lastSeen = tx.Date
		}
		stats.Processed++
	})
	if err != nil {
		return s.fail(ctx, run, err)
	}

	cells := s.summarize(accumulators, resolution)
	stats.Cells = len(cells)

	if err := s.cells.UpsertCells(ctx, cells); err != nil {
		return s.fail(ctx, run, err)
	}

	if err := s.runs.MarkCompleted(ctx, run.ID, stats); err != nil {
		return s.fail(ctx, run, err)
	}

	run.Status = entities.RunStatusCompleted
	run.Stats = stats
	finished := s.now().UTC()
	run.FinishedAt = &finished

	log.Info().
		Str("run_id", run.ID).
		Str("source", run.Source).
		Str("metric", run.Metric).
		Int("resolution", resolution).
		Int("processed", stats.Processed).
		Int("skipped_price", stats.SkippedPrice).
		Int("skipped_geocode", stats.SkippedGeocode).
		Int("cells", stats.Cells).
		Msg("aggregation run completed")

	return run, nil
}

func (s *AggregationService) summarize(accumulators map[string]*cellAccumulator, resolution int) []*entities.GeoCell {
	now := s.now().UTC()

	cells := make([]*entities.GeoCell, 0, len(accumulators))
	for cellID, acc := range accumulators {
		cells = append(cells, &entities.GeoCell{
			CellID:     cellID,
			Resolution: resolution,
			Country:    acc.country,
			Region:     acc.region,
			Source:     s.cfg.Source,
			Metric:     s.cfg.Metric,
			Value:      lowerMedian(acc.prices),
			TxCount:    len(acc.prices),
			Confidence: ComputeConfidence(len(acc.prices), acc.lastSeen, now, s.cfg.ConfidenceK, s.cfg.RecencyFloor),
			FirstSeen:  acc.firstSeen,
			LastSeen:   acc.lastSeen,
			UpdatedAt:  now,
		})
	}

	// Deterministic write order so identical inputs yield identical batches
	sort.Slice(cells, func(i, j int) bool { return cells[i].CellID < cells[j].CellID })
	return cells
}

func (s *AggregationService) fail(ctx context.Context, run *entities.PipelineRun, cause error) (*entities.PipelineRun, error) {
	if err := s.runs.MarkFailed(ctx, run.ID, cause.Error()); err != nil {
		log.Error().Err(err).Str("run_id", run.ID).Msg("failed to mark run as failed")
	}
	run.Status = entities.RunStatusFailed
	run.Error = cause.Error()

	log.Error().Err(cause).Str("run_id", run.ID).Msg("aggregation run failed")
	return run, cause
}

// lowerMedian returns the median price, taking the lower-middle element for
// even-length sets instead of averaging the two middle values.
func lowerMedian(prices []float64) float64 {
	sorted := make([]float64, len(prices))
	copy(sorted, prices)
	sort.Float64s(sorted)
	return sorted[(len(sorted)-1)/2]
}

// ComputeConfidence scores a cell in [0, 1] from its sample size and data
// recency. The sample factor grows logarithmically and saturates at 1; the
// recency factor decays linearly over one year, floored so stale cells are
// never discounted to zero.
func ComputeConfidence(count int, lastSeen, now time.Time, k, recencyFloor float64) float64 {
	sample := math.Log10(float64(count)+1) / k
	if sample > 1 {
		sample = 1
	}

	ageDays := now.Sub(lastSeen).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	recency := 1 - ageDays/365
	if recency < recencyFloor {
		recency = recencyFloor
	}

	confidence := sample * recency
	if confidence > 1 {
		return 1
	}
	if confidence < 0 {
		return 0
	}
	return confidence
}
