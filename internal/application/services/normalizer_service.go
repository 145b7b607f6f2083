package services

import (
	"context"
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/openpricemap/openpricemap/backend/internal/domain/repositories"
)

// Percentiles at which cut points are computed, and the bucket assigned to
// values at or below each cut point. Values above the last cut point get 1.0.
var (
	cutPercentiles = [5]float64{0.10, 0.25, 0.50, 0.75, 0.90}
	cutBuckets     = [5]float64{0.1, 0.25, 0.5, 0.75, 0.9}
)

// NormalizerService assigns every aggregated cell a coarse six-bucket
// percentile rank of its weighted value relative to the scope. The discrete
// scale keeps client colour mapping stable against outlier cells.
type NormalizerService struct {
	cells repositories.CellRepository
}

// NewNormalizerService creates a new normalizer service
func NewNormalizerService(cells repositories.CellRepository) *NormalizerService {
	return &NormalizerService{cells: cells}
}

// Run executes the two-pass normalization over one resolution and scope,
// returning the number of cells normalized
func (s *NormalizerService) Run(ctx context.Context, resolution int, scope repositories.Scope) (int, error) {
	values, err := s.cells.GetAllWeightedValues(ctx, resolution, scope)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		log.Info().Int("resolution", resolution).Str("country", scope.Country).
			Msg("no cells in scope, skipping normalization")
		return 0, nil
	}

	cuts := CutPoints(values)

	cells, err := s.cells.ListAggregates(ctx, resolution, scope)
	if err != nil {
		return 0, err
	}

	for _, cell := range cells {
		bucket := BucketFor(cell.WeightedValue, cuts)
		if err := s.cells.SetNormalizedValue(ctx, cell.CellID, bucket); err != nil {
			return 0, err
		}
	}

	log.Info().Int("resolution", resolution).Str("country", scope.Country).
		Int("cells", len(cells)).Msg("normalization pass completed")

	return len(cells), nil
}

// CutPoints computes the five percentile cut points of the values using
// continuous interpolation between order statistics
func CutPoints(values []float64) [5]float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var cuts [5]float64
	for i, p := range cutPercentiles {
		cuts[i] = quantile(sorted, p)
	}
	return cuts
}

// quantile interpolates the p-th quantile of a sorted sample
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}

	h := p * float64(n-1)
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// BucketFor assigns a value the first bucket whose cut point it falls at or
// below; values above the 90th percentile cut get 1.0
func BucketFor(value float64, cuts [5]float64) float64 {
	for i, cut := range cuts {
		if value <= cut {
			return cutBuckets[i]
		}
	}
	return 1.0
}
