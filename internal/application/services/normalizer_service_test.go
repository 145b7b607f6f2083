package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpricemap/openpricemap/backend/internal/application/services"
	"github.com/openpricemap/openpricemap/backend/internal/domain/entities"
	"github.com/openpricemap/openpricemap/backend/internal/domain/repositories"
	apperrors "github.com/openpricemap/openpricemap/backend/pkg/errors"
)

func TestCutPoints_Interpolated(t *testing.T) {
	values := []float64{10, 1, 9, 2, 8, 3, 7, 4, 6, 5}

	cuts := services.CutPoints(values)

	assert.InDelta(t, 1.9, cuts[0], 1e-12)
	assert.InDelta(t, 3.25, cuts[1], 1e-12)
	assert.InDelta(t, 5.5, cuts[2], 1e-12)
	assert.InDelta(t, 7.75, cuts[3], 1e-12)
	assert.InDelta(t, 9.1, cuts[4], 1e-12)
}

func TestCutPoints_SingleValue(t *testing.T) {
	cuts := services.CutPoints([]float64{450000})
	for _, cut := range cuts {
		assert.Equal(t, 450000.0, cut)
	}
}

func TestCutPoints_IdenticalValues(t *testing.T) {
	cuts := services.CutPoints([]float64{100, 100, 100, 100})
	for _, cut := range cuts {
		assert.Equal(t, 100.0, cut)
	}
	// Every identical value lands in the first bucket
	assert.Equal(t, 0.1, services.BucketFor(100, cuts))
}

func TestBucketFor(t *testing.T) {
	cuts := [5]float64{100, 250, 500, 750, 900}

	assert.Equal(t, 0.1, services.BucketFor(50, cuts))
	assert.Equal(t, 0.1, services.BucketFor(100, cuts), "boundary values belong to the lower bucket")
	assert.Equal(t, 0.25, services.BucketFor(101, cuts))
	assert.Equal(t, 0.5, services.BucketFor(400, cuts))
	assert.Equal(t, 0.75, services.BucketFor(700, cuts))
	assert.Equal(t, 0.9, services.BucketFor(900, cuts))
	assert.Equal(t, 1.0, services.BucketFor(901, cuts))
}

func TestBucketFor_Monotonic(t *testing.T) {
	cuts := [5]float64{100, 250, 500, 750, 900}

	previous := 0.0
	for value := 0.0; value <= 1000; value += 7 {
		bucket := services.BucketFor(value, cuts)
		require.GreaterOrEqual(t, bucket, previous, "value %v", value)
		previous = bucket
	}
}

func TestNormalizerRun_AssignsBuckets(t *testing.T) {
	lastSeen := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	repo := newFakeCellRepo()
	repo.weightedValues = []float64{100000, 200000, 300000, 400000, 500000, 600000, 700000, 800000, 900000, 1000000}
	repo.aggregates = []*entities.AggregatedCell{
		{CellID: "cell-low", WeightedValue: 100000, LastSeen: lastSeen},
		{CellID: "cell-mid", WeightedValue: 500000, LastSeen: lastSeen},
		{CellID: "cell-top", WeightedValue: 1000000, LastSeen: lastSeen},
	}

	svc := services.NewNormalizerService(repo)
	count, err := svc.Run(context.Background(), 7, repositories.Scope{})
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	cuts := services.CutPoints(repo.weightedValues)
	assert.Equal(t, services.BucketFor(100000, cuts), repo.normalized["cell-low"])
	assert.Equal(t, services.BucketFor(500000, cuts), repo.normalized["cell-mid"])
	assert.Equal(t, 1.0, repo.normalized["cell-top"])
}

func TestNormalizerRun_EmptyScope(t *testing.T) {
	repo := newFakeCellRepo()

	svc := services.NewNormalizerService(repo)
	count, err := svc.Run(context.Background(), 7, repositories.Scope{Country: "GB"})
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, repo.normalized)
}

func TestNormalizerRun_PropagatesStorageFailure(t *testing.T) {
	repo := newFakeCellRepo()
	repo.weightedErr = apperrors.NewPersistenceError("query failed", nil)

	svc := services.NewNormalizerService(repo)
	_, err := svc.Run(context.Background(), 7, repositories.Scope{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePersistence))
}
